package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API reply. Code is 0 on success.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Business codes.
const (
	CodeSuccess          = 0
	CodeBadRequest       = 1000
	CodeUnauthorized     = 1001
	CodeNotFound         = 1003
	CodeInternalError    = 1004
	CodeCommandFailed    = 1101
	CodeInsufficientData = 1201
	CodeAIUnavailable    = 1202
)

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: "success", Data: data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{Code: CodeSuccess, Message: "created", Data: data})
}

func errorWithCode(c *gin.Context, httpCode, bizCode int, message string, data any) {
	c.JSON(httpCode, Response{Code: bizCode, Message: message, Data: data})
}

func badRequest(c *gin.Context, message string) {
	errorWithCode(c, http.StatusBadRequest, CodeBadRequest, message, nil)
}

func unauthorized(c *gin.Context, message string) {
	errorWithCode(c, http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func notFound(c *gin.Context, message string) {
	errorWithCode(c, http.StatusNotFound, CodeNotFound, message, nil)
}

func internalError(c *gin.Context, message string) {
	errorWithCode(c, http.StatusInternalServerError, CodeInternalError, message, nil)
}

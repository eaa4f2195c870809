package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerMiddleware logs method, path, status and latency of every request.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		line := fmt.Sprintf("%d | %12s | %-7s | %s", status, time.Since(start).Truncate(time.Microsecond), c.Request.Method, path)
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			line += " | " + errs
		}

		switch {
		case status >= 500:
			log.Printf("[api] [ERROR] %s", line)
		case status >= 400:
			log.Printf("[api] [WARN] %s", line)
		default:
			log.Printf("[api] [INFO] %s", line)
		}
	}
}

// RecoveryMiddleware turns a handler panic into a 500 reply.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("[api] [PANIC] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
					Code:    CodeInternalError,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// localOnly rejects cross-origin browser requests except from loopback
// origins, since the API is served on the loopback interface.
func localOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && !isLoopbackOrigin(origin) {
			errorWithCode(c, http.StatusForbidden, CodeUnauthorized, "origin not allowed", nil)
			c.Abort()
			return
		}
		if origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

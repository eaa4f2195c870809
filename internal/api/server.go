// Package api serves the daemon's command and query surface over HTTP.
//
// Routes live under /api/v1 and reply with the Response envelope. Live
// updates (session transitions, analyses, alerts) are pushed to /ws.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Atharva-Kanherkar/attentive/internal/auth"
	"github.com/Atharva-Kanherkar/attentive/internal/daemon"
	"github.com/Atharva-Kanherkar/attentive/internal/insights"
	"github.com/Atharva-Kanherkar/attentive/internal/model"
	"github.com/Atharva-Kanherkar/attentive/internal/notify"
	"github.com/Atharva-Kanherkar/attentive/internal/storage"
)

// Engine is the daemon surface the API exposes.
type Engine interface {
	StartTracking(ctx context.Context) daemon.CommandResult
	StopTracking(ctx context.Context) daemon.CommandResult
	ManualCaptureAndAnalyze(ctx context.Context) daemon.CommandResult
	Status() daemon.Status
	DashboardData(ctx context.Context) (*daemon.Dashboard, error)
	Sessions(ctx context.Context, limit, offset int) ([]model.Session, error)
	SessionDetails(ctx context.Context, id string) (*daemon.SessionDetails, error)
	AIStatus() daemon.AIStatus
	CurrentProductivityScore() daemon.Score
	Insights(ctx context.Context, timeframe string) (*insights.Result, error)
	ProductivityStats(ctx context.Context, timeframe string) (*model.ProductivityStats, error)

	CreateProject(ctx context.Context, in daemon.ProjectInput) (*model.Project, error)
	UpdateProject(ctx context.Context, id string, in daemon.ProjectInput) (*model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ProjectSessions(ctx context.Context, id string) ([]model.Session, error)
	AssignSession(ctx context.Context, sessionID, projectID string) (*model.Session, error)

	Storage() (backend, owner string)
	LoadHistory(ctx context.Context) error
}

// Server is the HTTP API.
type Server struct {
	engine Engine
	hub    *notify.Hub
	auth   *auth.Provider
	router *gin.Engine
}

// NewServer builds the router. hub and identity may be nil, in which case
// /ws and the /auth routes are not registered.
func NewServer(engine Engine, hub *notify.Hub, identity *auth.Provider, mode string) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}
	s := &Server{engine: engine, hub: hub, auth: identity, router: gin.New()}
	s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[api] Listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() {
	r := s.router
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(localOnly())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.hub != nil {
		r.GET("/ws", gin.WrapF(s.hub.ServeWS))
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/status", s.getStatus)
		v1.GET("/dashboard", s.getDashboard)
		v1.POST("/tracking/start", s.startTracking)
		v1.POST("/tracking/stop", s.stopTracking)
		v1.POST("/capture", s.captureNow)

		v1.GET("/sessions", s.listSessions)
		v1.GET("/sessions/:id", s.getSession)
		v1.PUT("/sessions/:id/project", s.assignSession)

		v1.GET("/ai/status", s.getAIStatus)
		v1.GET("/ai/score", s.getScore)
		v1.GET("/insights/:timeframe", s.getInsights)
		v1.GET("/stats/:timeframe", s.getStats)
	}

	projects := v1.Group("/projects")
	{
		projects.GET("", s.listProjects)
		projects.POST("", s.createProject)
		projects.GET("/:id", s.getProject)
		projects.PUT("/:id", s.updateProject)
		projects.DELETE("/:id", s.deleteProject)
		projects.GET("/:id/sessions", s.projectSessions)
	}

	if s.auth != nil {
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", s.login)
			authGroup.POST("/logout", s.logout)
			authGroup.GET("/me", s.me)
		}
	}
}

// fail maps an engine error onto a reply.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		notFound(c, err.Error())
	case errors.Is(err, model.ErrInvalidTimeframe), errors.Is(err, daemon.ErrInvalidProject):
		badRequest(c, err.Error())
	default:
		c.Error(err)
		internalError(c, err.Error())
	}
}

func command(c *gin.Context, res daemon.CommandResult) {
	if res.Success {
		success(c, res)
		return
	}
	errorWithCode(c, http.StatusInternalServerError, CodeCommandFailed, res.Error, res)
}

func (s *Server) getStatus(c *gin.Context) {
	success(c, s.engine.Status())
}

func (s *Server) getDashboard(c *gin.Context) {
	dash, err := s.engine.DashboardData(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	success(c, dash)
}

func (s *Server) startTracking(c *gin.Context) {
	command(c, s.engine.StartTracking(c.Request.Context()))
}

func (s *Server) stopTracking(c *gin.Context) {
	command(c, s.engine.StopTracking(c.Request.Context()))
}

func (s *Server) captureNow(c *gin.Context) {
	res := s.engine.ManualCaptureAndAnalyze(c.Request.Context())
	if !res.Success && !s.engine.AIStatus().Enabled {
		errorWithCode(c, http.StatusServiceUnavailable, CodeAIUnavailable, res.Error, res)
		return
	}
	command(c, res)
}

func (s *Server) listSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	sessions, err := s.engine.Sessions(c.Request.Context(), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{
		"sessions": sessions,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) getSession(c *gin.Context) {
	details, err := s.engine.SessionDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, details)
}

type assignRequest struct {
	ProjectID string `json:"project_id"`
}

func (s *Server) assignSession(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	sess, err := s.engine.AssignSession(c.Request.Context(), c.Param("id"), req.ProjectID)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, sess)
}

func (s *Server) getAIStatus(c *gin.Context) {
	success(c, s.engine.AIStatus())
}

func (s *Server) getScore(c *gin.Context) {
	success(c, s.engine.CurrentProductivityScore())
}

func (s *Server) getInsights(c *gin.Context) {
	res, err := s.engine.Insights(c.Request.Context(), c.Param("timeframe"))
	if err != nil {
		fail(c, err)
		return
	}
	switch res.Status {
	case insights.StatusInsufficientData:
		errorWithCode(c, http.StatusUnprocessableEntity, CodeInsufficientData, res.Message, res)
	case insights.StatusUnavailable:
		errorWithCode(c, http.StatusServiceUnavailable, CodeAIUnavailable, res.Message, res)
	default:
		success(c, res)
	}
}

func (s *Server) getStats(c *gin.Context) {
	stats, err := s.engine.ProductivityStats(c.Request.Context(), c.Param("timeframe"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, stats)
}

func (s *Server) listProjects(c *gin.Context) {
	projects, err := s.engine.ListProjects(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	success(c, projects)
}

func (s *Server) createProject(c *gin.Context) {
	var in daemon.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := s.engine.CreateProject(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, p)
}

func (s *Server) getProject(c *gin.Context) {
	p, err := s.engine.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, p)
}

func (s *Server) updateProject(c *gin.Context) {
	var in daemon.ProjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := s.engine.UpdateProject(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, p)
}

func (s *Server) deleteProject(c *gin.Context) {
	if err := s.engine.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) projectSessions(c *gin.Context) {
	sessions, err := s.engine.ProjectSessions(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, sessions)
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token is required")
		return
	}
	claims, err := s.auth.Login(req.Token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken), errors.Is(err, auth.ErrNoSecret):
		unauthorized(c, err.Error())
		return
	case err != nil:
		fail(c, err)
		return
	}
	s.reloadHistory(c)
	backend, owner := s.engine.Storage()
	success(c, gin.H{"user_id": claims.UserID, "username": claims.Username, "backend": backend, "owner": owner})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.auth.Logout(); err != nil {
		fail(c, err)
		return
	}
	s.reloadHistory(c)
	backend, owner := s.engine.Storage()
	success(c, gin.H{"backend": backend, "owner": owner})
}

// reloadHistory swaps the in-memory analysis history for the new owner's.
func (s *Server) reloadHistory(c *gin.Context) {
	if err := s.engine.LoadHistory(c.Request.Context()); err != nil {
		log.Printf("[api] %v", err)
	}
}

func (s *Server) me(c *gin.Context) {
	backend, owner := s.engine.Storage()
	claims := s.auth.Claims()
	if claims == nil {
		success(c, gin.H{"signed_in": false, "backend": backend, "owner": owner})
		return
	}
	success(c, gin.H{
		"signed_in": true,
		"user_id":   claims.UserID,
		"username":  claims.Username,
		"backend":   backend,
		"owner":     owner,
	})
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "tauri", "file":
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

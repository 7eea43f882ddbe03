// Package httpapi provides the HTTP API for bookd.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/bookd/internal/genai"
	"github.com/fyrsmithlabs/bookd/internal/store"
	"github.com/fyrsmithlabs/bookd/internal/workflow"
)

// Server provides HTTP endpoints for the book pipeline.
type Server struct {
	echo     *echo.Echo
	workflow *workflow.Service
	store    store.Store
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server around the workflow service.
func NewServer(wf *workflow.Service, st store.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if wf == nil {
		return nil, fmt.Errorf("workflow service cannot be nil")
	}
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		workflow: wf,
		store:    st,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// Echo exposes the underlying echo instance so callers can attach extra
// handlers such as /metrics.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/books", s.handleCreateBook)
	v1.GET("/books/:id", s.handleGetBook)
	v1.GET("/books/:id/status", s.handleStatus)
	v1.GET("/books/:id/logs", s.handleLogs)
	v1.POST("/books/:id/outline", s.handleGenerateOutline)
	v1.POST("/books/:id/outline/approval", s.handleOutlineApproval)
	v1.POST("/books/:id/chapters/review", s.handleChapterNotesDecision)
	v1.POST("/books/:id/chapters/generate-all", s.handleGenerateAll)
	v1.POST("/books/:id/chapters/:n", s.handleGenerateChapter)
	v1.POST("/books/:id/chapters/:n/regenerate", s.handleRegenerateChapter)
	v1.POST("/books/:id/chapters/:n/approval", s.handleApproveChapter)
	v1.POST("/books/:id/final-review/approval", s.handleFinalReviewApproval)
	v1.POST("/books/:id/compile", s.handleCompile)
}

// bookID parses the :id route parameter.
func bookID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid book id")
	}
	return id, nil
}

// httpError maps pipeline errors onto HTTP status codes. Gate denials are
// conflicts, rate-limit exhaustion surfaces the editor-facing message.
func httpError(err error) error {
	var denial *workflow.GateDenialError
	if errors.As(err, &denial) {
		return echo.NewHTTPError(http.StatusConflict, denial.Reason)
	}

	var rateLimited *genai.RateLimitError
	if errors.As(err, &rateLimited) {
		return echo.NewHTTPError(http.StatusTooManyRequests, rateLimited.UserMessage())
	}

	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "book not found")
	}

	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

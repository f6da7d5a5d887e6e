// Package http provides the HTTP API for recalld.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/config"
	"github.com/fyrsmithlabs/recalld/internal/conversation"
	"github.com/fyrsmithlabs/recalld/internal/llm"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/memory"
)

// Server provides the HTTP endpoints for recalld.
type Server struct {
	echo     *echo.Echo
	memories *memory.Service
	chat     *conversation.Service
	logger   *logging.Logger
	config   config.ServerConfig
	version  string
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg config.ServerConfig, memories *memory.Service, chat *conversation.Service, logger *logging.Logger, version string) (*Server, error) {
	if memories == nil {
		return nil, fmt.Errorf("memory service is required")
	}
	if chat == nil {
		return nil, fmt.Errorf("conversation service is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.MaxBodyBytes > 0 {
		e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Limit: fmt.Sprintf("%d", cfg.MaxBodyBytes),
		}))
	}
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})

	s := &Server{
		echo:     e,
		memories: memories,
		chat:     chat,
		logger:   logger,
		config:   cfg,
		version:  version,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/memories", s.handleStoreMemory)
	v1.GET("/memories", s.handleListMemories)
	v1.GET("/memories/recall", s.handleRecall)
	v1.GET("/memories/:id", s.handleGetMemory)
	v1.DELETE("/memories/:id", s.handleDeleteMemory)
	v1.POST("/chat", s.handleChat)
	v1.GET("/chat/history", s.handleHistory)
	v1.DELETE("/chat/history", s.handleClearHistory)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

func (s *Server) handleStoreMemory(c echo.Context) error {
	var req StoreMemoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	var (
		m   *memory.Memory
		err error
	)
	switch {
	case req.Photo != "":
		m, err = s.memories.StorePhoto(ctx, req.Photo, req.Caption, req.Mood)
	case req.Content != "":
		m, err = s.memories.Store(ctx, req.Content, req.Mood)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "content or photo is required")
	}
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (s *Server) handleListMemories(c echo.Context) error {
	memories, err := s.memories.List(c.Request().Context())
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, ListMemoriesResponse{
		Memories: memories,
		Count:    len(memories),
	})
}

func (s *Server) handleRecall(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}

	k := 0
	if raw := c.QueryParam("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "parameter k must be a positive integer")
		}
		k = parsed
	}

	results, err := s.memories.Recall(c.Request().Context(), query, k)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, RecallResponse{Query: query, Results: results})
}

func (s *Server) handleGetMemory(c echo.Context) error {
	m, err := s.memories.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleDeleteMemory(c echo.Context) error {
	if err := s.memories.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return s.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	reply, err := s.chat.Chat(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		return s.mapError(c, err)
	}

	memories := make([]string, 0, len(reply.Memories))
	for _, r := range reply.Memories {
		memories = append(memories, r.Content)
	}
	return c.JSON(http.StatusOK, ChatResponse{
		SessionID: reply.SessionID,
		Reply:     reply.Content,
		Provider:  reply.Provider,
		Mood:      reply.Mood.Label(),
		Memories:  memories,
	})
}

func (s *Server) handleHistory(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	turns, err := s.chat.History(c.Request().Context(), sessionID)
	if err != nil {
		return s.mapError(c, err)
	}
	if turns == nil {
		turns = []conversation.Turn{}
	}
	if sessionID == "" && len(turns) > 0 {
		sessionID = turns[0].SessionID
	}
	return c.JSON(http.StatusOK, HistoryResponse{SessionID: sessionID, Turns: turns})
}

func (s *Server) handleClearHistory(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	deleted, err := s.chat.ClearHistory(c.Request().Context(), sessionID)
	if err != nil {
		return s.mapError(c, err)
	}
	return c.JSON(http.StatusOK, ClearHistoryResponse{SessionID: sessionID, Deleted: deleted})
}

// mapError translates service errors into HTTP status codes.
func (s *Server) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, memory.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "memory not found")
	case errors.Is(err, memory.ErrEmptyContent):
		return echo.NewHTTPError(http.StatusBadRequest, "content cannot be empty")
	case errors.Is(err, memory.ErrInvalidPhoto):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid photo data")
	case errors.Is(err, llm.ErrEmptyPrompt):
		return echo.NewHTTPError(http.StatusBadRequest, "message cannot be empty")
	default:
		s.logger.Error(c.Request().Context(), "request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.config.Address(),
		ReadTimeout:  s.config.ReadTimeout.Duration(),
		WriteTimeout: s.config.WriteTimeout.Duration(),
	}
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", srv.Addr))
	return s.echo.StartServer(srv)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

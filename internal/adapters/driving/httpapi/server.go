// Package httpapi exposes indexing, retrieval, answering and cache
// maintenance over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-site/internal/logger"
)

// Ports holds the driving ports the API serves.
// Any of them may be nil; their routes then answer 503.
type Ports struct {
	Indexer   driving.Indexer
	Retriever driving.Retriever
	Answerer  driving.Answerer
	Cache     driving.AnswerCache

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// MCP serves the MCP streamable HTTP transport at /v1/mcp when set.
	MCP http.Handler
}

// Config configures the HTTP server.
type Config struct {
	Addr string

	// Token, when set, must be sent as a bearer token on every /v1 route.
	Token string

	// MaxQuestionLength caps question size in bytes.
	MaxQuestionLength int
}

// DefaultMaxQuestionLength is used when Config.MaxQuestionLength is unset.
const DefaultMaxQuestionLength = 2000

// Server is the HTTP API.
type Server struct {
	echo  *echo.Echo
	ports *Ports
	cfg   Config
}

// NewServer builds the router.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if ports == nil {
		return nil, errors.New("httpapi: ports are required")
	}
	if cfg.MaxQuestionLength <= 0 {
		cfg.MaxQuestionLength = DefaultMaxQuestionLength
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.HTTPErrorHandler = errorHandler

	s := &Server{echo: e, ports: ports, cfg: cfg}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if ports.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(ports.Metrics))
	}

	v1 := e.Group("/v1")
	if cfg.Token != "" {
		v1.Use(middleware.KeyAuth(func(key string, _ echo.Context) (bool, error) {
			return key == cfg.Token, nil
		}))
	}
	s.registerIndex(v1.Group("/index"))
	s.registerAnswers(v1)
	s.registerCache(v1.Group("/cache"))
	if ports.MCP != nil {
		v1.Any("/mcp", echo.WrapHandler(ports.MCP))
	}

	return s, nil
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.cfg.Addr)
		errCh <- s.echo.Start(s.cfg.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}

// errorHandler renders every error as {"error": "..."} with a status
// derived from the domain error.
func errorHandler(err error, c echo.Context) {
	code := statusFor(err)
	msg := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}

	req := c.Request()
	if code >= http.StatusInternalServerError {
		logger.Error("%d %s %s: %v", code, req.Method, req.URL.Path, err)
	} else {
		logger.Debug("%d %s %s: %v", code, req.Method, req.URL.Path, err)
	}
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrGeneratorUnavailable),
		errors.Is(err, domain.ErrNotImplemented):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrManifestUnavailable),
		errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrLeaseHeld):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var errUnavailable = echo.NewHTTPError(http.StatusServiceUnavailable, "service not configured")

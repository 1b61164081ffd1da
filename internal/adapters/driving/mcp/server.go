package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-site/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

const instructions = `Answers questions about one website from its indexed pages.
Use "retrieve" to get grounded context and source URLs, "ask" for a finished
answer (served from the answer cache when a near-identical question was asked
before) and "index_url" after a page changed.`

const shutdownTimeout = 5 * time.Second

// Server exposes site retrieval and indexing to MCP clients.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer registers the tools and resources the ports allow.
// A Retriever is required.
func NewServer(ports *Ports) (*Server, error) {
	if ports == nil {
		return nil, ErrMissingRetriever
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("mcp: %w", err)
	}
	if missing := ports.missing(); len(missing) > 0 {
		logger.Debug("MCP tools without backing service: %s", strings.Join(missing, ", "))
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "sercha-site", Version: Version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler serves the streamable HTTP transport. The HTTP API mounts it
// under /v1/mcp so it shares the API token.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// RunHTTP serves the streamable HTTP transport on addr until ctx ends.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("MCP server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-site/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-site/internal/logger"
)

var (
	serveAddr        string
	serveNoScheduler bool
	serveNoMCP       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background crawler",
	Long: `Starts the HTTP API and, unless disabled, the scheduler that works
the crawl queue and runs the periodic full reindex.

Routes:
  GET    /healthz              liveness
  GET    /metrics              Prometheus metrics
  POST   /v1/ask               {"question": "..."}
  POST   /v1/retrieve          {"question": "...", "top_k": 5}
  POST   /v1/index             queue a full reindex
  POST   /v1/index/url         {"url": "...", "force": false}
  DELETE /v1/index/url         {"url": "..."}
  POST   /v1/index/work        run one crawl batch
  GET    /v1/index/status      crawl progress
  GET    /v1/cache/find?q=...  cached answer lookup
  POST   /v1/cache/purge       {"urls": [...], "paths": [...]}
  DELETE /v1/cache/:id         delete one cached answer
  DELETE /v1/cache             clear the cache
  ANY    /v1/mcp               MCP streamable HTTP transport`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "do not run background tasks")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP transport at /v1/mcp")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if services == nil {
		return errors.New("services not configured")
	}
	logger.SetTimestamps(true)
	defer logger.SetTimestamps(false)

	addr := serveAddr
	if addr == "" {
		addr = services.ServerAddr
	}
	ports := &httpapi.Ports{
		Indexer:   services.Indexer,
		Retriever: services.Retriever,
		Answerer:  services.Answerer,
		Cache:     services.Cache,
		Metrics:   services.Metrics,
	}
	if !serveNoMCP && services.Retriever != nil {
		mcpServer, err := newMCPServer()
		if err != nil {
			return err
		}
		ports.MCP = mcpServer.Handler()
	}
	server, err := httpapi.NewServer(ports, httpapi.Config{Addr: addr, Token: services.ServerToken})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.Run(ctx)
	})
	if startScheduler(ctx, g) {
		cmd.Println("Scheduler running.")
	}
	cmd.Printf("Listening on http://%s\n", addr)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// startScheduler runs the scheduler in g until ctx ends. Reports whether it started.
func startScheduler(ctx context.Context, g *errgroup.Group) bool {
	if serveNoScheduler || services.Scheduler == nil || !services.SchedulerConfig.Enabled {
		return false
	}
	g.Go(func() error {
		err := services.Scheduler.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped: %v", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return services.Scheduler.Stop()
	})
	return true
}

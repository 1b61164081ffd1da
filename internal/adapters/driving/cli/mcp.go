package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-site/internal/adapters/driving/mcp"
)

var mcpAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose site retrieval to MCP clients",
	Long: `Starts an MCP server with the retrieve, ask and index_url tools and the
crawl status resource.

Without --addr it speaks JSON-RPC over stdio, which is what desktop
assistants expect:

  {
    "mcpServers": {
      "sercha-site": {
        "command": "/path/to/sercha-site",
        "args": ["mcp", "serve"]
      }
    }
  }

With --addr it serves the streamable HTTP transport instead. "serve" also
mounts the same transport at /v1/mcp behind the API token.`,
	Example: `  sercha-site mcp serve
  sercha-site mcp serve --addr 127.0.0.1:8081`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().StringVar(&mcpAddr, "addr", "", "serve HTTP on this address instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer builds the MCP server over the configured services.
func newMCPServer() (*mcp.Server, error) {
	if services == nil {
		return nil, errors.New("services not configured")
	}
	return mcp.NewServer(&mcp.Ports{
		Retriever: services.Retriever,
		Answerer:  services.Answerer,
		Indexer:   services.Indexer,
		Cache:     services.Cache,
	})
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	server, err := newMCPServer()
	if err != nil {
		return err
	}
	if mcpAddr == "" {
		return server.Run(cmd.Context())
	}
	cmd.PrintErrf("MCP server listening on http://%s\n", mcpAddr)
	return server.RunHTTP(cmd.Context(), mcpAddr)
}

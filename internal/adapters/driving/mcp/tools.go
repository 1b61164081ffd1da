package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Question string   `json:"question" jsonschema:"the question to find site context for"`
	TopK     int      `json:"top_k,omitempty" jsonschema:"maximum number of source pages (default from settings)"`
	URLs     []string `json:"urls,omitempty" jsonschema:"page URLs already believed relevant"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Context string             `json:"context"`
	Sources []domain.SourceRef `json:"sources"`
	Count   int                `json:"count"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from site content"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string             `json:"answer"`
	Sources  []domain.SourceRef `json:"sources"`
	Cached   bool               `json:"cached"`
	Fallback bool               `json:"fallback"`
}

// IndexURLInput is the input schema for the index_url tool.
type IndexURLInput struct {
	URL   string `json:"url" jsonschema:"the page URL to fetch and index now"`
	Force bool   `json:"force,omitempty" jsonschema:"rewrite chunks even if the content is unchanged"`
}

// IndexURLOutput is the output schema for the index_url tool.
type IndexURLOutput struct {
	URL     string `json:"url"`
	Outcome string `json:"outcome"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find site content relevant to a question, with source pages",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the site's content",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_url",
		Description: "Fetch one site page and update the index immediately",
	}, s.handleIndexURL)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	res, err := s.ports.Retriever.Retrieve(ctx, input.Question, input.TopK, domain.RetrievalHints{URLs: input.URLs})
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	sources := res.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}
	return nil, RetrieveOutput{Context: res.Context, Sources: sources, Count: len(sources)}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answerer == nil {
		return nil, AskOutput{}, errNotConfigured
	}

	ans, err := s.ports.Answerer.Answer(ctx, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := ans.Sources
	if sources == nil {
		sources = []domain.SourceRef{}
	}
	return nil, AskOutput{Answer: ans.Text, Sources: sources, Cached: ans.Cached, Fallback: ans.Fallback}, nil
}

// handleIndexURL handles the index_url tool invocation.
func (s *Server) handleIndexURL(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IndexURLInput,
) (*mcp.CallToolResult, IndexURLOutput, error) {
	if s.ports.Indexer == nil {
		return nil, IndexURLOutput{}, errNotConfigured
	}

	url := strings.TrimSpace(input.URL)
	outcome, err := s.ports.Indexer.IndexSingleURL(ctx, url, driving.IndexURLOptions{Force: input.Force})
	if err != nil {
		return nil, IndexURLOutput{}, err
	}
	return nil, IndexURLOutput{URL: url, Outcome: string(outcome)}, nil
}

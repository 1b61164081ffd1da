package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for sercha-site resources.
	uriScheme = "sercha-site://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Crawl progress, recent failures and index totals",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "answers/{question}",
		Name:        "cached-answer",
		Description: "The cached answer for a question, if one exists",
		MIMEType:    "application/json",
	}, s.handleAnswerResource)
}

// handleStatusResource returns the indexer status.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Indexer == nil {
		return jsonResult(req.Params.URI, "{}"), nil
	}

	status, err := s.ports.Indexer.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}
	return jsonResult(req.Params.URI, string(data)), nil
}

// handleAnswerResource returns the cached entry for a question.
func (s *Server) handleAnswerResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Cache == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	question := extractQuestion(req.Params.URI)
	if question == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entry, err := s.ports.Cache.Find(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("finding cached answer: %w", err)
	}
	if entry == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling answer: %w", err)
	}
	return jsonResult(req.Params.URI, string(data)), nil
}

func jsonResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}

// extractQuestion extracts the unescaped question from a URI like
// sercha-site://answers/{question}.
func extractQuestion(uri string) string {
	const prefix = uriScheme + "answers/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	q, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(q)
}

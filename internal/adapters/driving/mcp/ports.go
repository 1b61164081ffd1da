package mcp

import (
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
)

// Ports are the services behind the MCP tools. Only Retriever is
// required; tools backed by a nil port answer errNotConfigured.
type Ports struct {
	Retriever driving.Retriever
	Answerer  driving.Answerer
	Indexer   driving.Indexer
	Cache     driving.AnswerCache
}

func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}

// missing names the optional ports that are nil.
func (p *Ports) missing() []string {
	var names []string
	if p.Answerer == nil {
		names = append(names, "answerer")
	}
	if p.Indexer == nil {
		names = append(names, "indexer")
	}
	if p.Cache == nil {
		names = append(names, "cache")
	}
	return names
}

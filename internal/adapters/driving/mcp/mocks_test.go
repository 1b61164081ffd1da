package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	result *domain.Retrieval
	hints  domain.RetrievalHints
	err    error
}

func (m *mockRetriever) Retrieve(
	_ context.Context,
	_ string,
	_ int,
	hints domain.RetrievalHints,
) (*domain.Retrieval, error) {
	m.hints = hints
	if m.result == nil {
		return &domain.Retrieval{}, m.err
	}
	return m.result, m.err
}

// mockAnswerer is a mock implementation of driving.Answerer.
type mockAnswerer struct {
	answer *domain.Answer
	err    error
}

func (m *mockAnswerer) Answer(_ context.Context, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

// mockIndexer is a mock implementation of driving.Indexer.
type mockIndexer struct {
	outcome domain.IndexOutcome
	status  *domain.IndexStatus
	opts    driving.IndexURLOptions
	err     error
}

func (m *mockIndexer) IndexAll(_ context.Context, _ driving.IndexAllOptions) (*domain.IndexAllResult, error) {
	return &domain.IndexAllResult{}, m.err
}

func (m *mockIndexer) IndexSingleURL(_ context.Context, _ string, opts driving.IndexURLOptions) (domain.IndexOutcome, error) {
	m.opts = opts
	return m.outcome, m.err
}

func (m *mockIndexer) WorkBatch(_ context.Context, _ int) (*domain.BatchResult, error) {
	return &domain.BatchResult{}, m.err
}

func (m *mockIndexer) RemoveURL(_ context.Context, _ string, _ []string) (*driving.RemoveResult, error) {
	return &driving.RemoveResult{}, m.err
}

func (m *mockIndexer) Status(_ context.Context) (*domain.IndexStatus, error) {
	return m.status, m.err
}

// mockCache is a mock implementation of driving.AnswerCache.
type mockCache struct {
	entry    *domain.CacheEntry
	question string
	err      error
}

func (m *mockCache) Find(_ context.Context, question string) (*domain.CacheEntry, error) {
	m.question = question
	return m.entry, m.err
}

func (m *mockCache) Store(_ context.Context, _, _ string, _ []domain.SourceRef) error {
	return m.err
}

func (m *mockCache) PurgeBySourceURLs(_ context.Context, _, _ []string) (int, error) {
	return 0, m.err
}

func (m *mockCache) Delete(_ context.Context, _ ...string) (int, error) {
	return 0, m.err
}

func (m *mockCache) Clear(_ context.Context) (int, error) {
	return 0, m.err
}

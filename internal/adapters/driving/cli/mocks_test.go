package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/custodia-labs/sercha-site/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
)

type mockIndexer struct {
	allOpts  driving.IndexAllOptions
	urlOpts  driving.IndexURLOptions
	batches  []*domain.BatchResult
	calls    int
	batchArg int
	removed  []string
	err      error
}

func (m *mockIndexer) IndexAll(_ context.Context, opts driving.IndexAllOptions) (*domain.IndexAllResult, error) {
	m.allOpts = opts
	return &domain.IndexAllResult{OK: true, Message: "Queued 12 URLs for indexing.", Queued: 12}, m.err
}

func (m *mockIndexer) IndexSingleURL(_ context.Context, _ string, opts driving.IndexURLOptions) (domain.IndexOutcome, error) {
	m.urlOpts = opts
	return domain.OutcomeIndexed, m.err
}

func (m *mockIndexer) WorkBatch(_ context.Context, size int) (*domain.BatchResult, error) {
	m.batchArg = size
	m.calls++
	if len(m.batches) == 0 {
		return &domain.BatchResult{}, m.err
	}
	res := m.batches[0]
	m.batches = m.batches[1:]
	return res, m.err
}

func (m *mockIndexer) RemoveURL(_ context.Context, url string, variants []string) (*driving.RemoveResult, error) {
	m.removed = append([]string{url}, variants...)
	return &driving.RemoveResult{Chunks: 6, CacheEntries: 2}, m.err
}

func (m *mockIndexer) Status(_ context.Context) (*domain.IndexStatus, error) {
	return &domain.IndexStatus{
		Cursor: 4, Total: 10, Documents: 30, Chunks: 210,
		Failures: []domain.CrawlFailure{{URL: "https://example.org/broken", Reason: "status 500"}},
	}, m.err
}

type mockRetriever struct {
	result *domain.Retrieval
	topK   int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, topK int, _ domain.RetrievalHints) (*domain.Retrieval, error) {
	m.topK = topK
	return m.result, nil
}

type mockAnswerer struct {
	question string
	answer   *domain.Answer
}

func (m *mockAnswerer) Answer(_ context.Context, question string) (*domain.Answer, error) {
	m.question = question
	return m.answer, nil
}

type mockCache struct {
	entry   *domain.CacheEntry
	urls    []string
	paths   []string
	deleted []string
}

func (m *mockCache) Find(context.Context, string) (*domain.CacheEntry, error) { return m.entry, nil }

func (m *mockCache) Store(context.Context, string, string, []domain.SourceRef) error { return nil }

func (m *mockCache) PurgeBySourceURLs(_ context.Context, urls, paths []string) (int, error) {
	m.urls, m.paths = urls, paths
	return 3, nil
}

func (m *mockCache) Delete(_ context.Context, ids ...string) (int, error) {
	m.deleted = ids
	return len(ids), nil
}

func (m *mockCache) Clear(context.Context) (int, error) { return 9, nil }

type testEnv struct {
	indexer   *mockIndexer
	retriever *mockRetriever
	answerer  *mockAnswerer
	cache     *mockCache
	config    *memory.ConfigStore
}

// setupTestServices installs mocks and resets flag state for one test.
func setupTestServices(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		indexer:   &mockIndexer{},
		retriever: &mockRetriever{result: &domain.Retrieval{}},
		answerer:  &mockAnswerer{answer: &domain.Answer{Text: "We are open on weekdays."}},
		cache:     &mockCache{},
		config:    memory.NewConfigStore(),
	}

	oldServices, oldConfig, oldBoot := services, configStore, bootstrapper
	services = &Services{
		Indexer:   env.indexer,
		Retriever: env.retriever,
		Answerer:  env.answerer,
		Cache:     env.cache,
	}
	configStore = env.config
	bootstrapper = nil

	t.Cleanup(func() {
		services, configStore, bootstrapper = oldServices, oldConfig, oldBoot
		outputFormat = "auto"
		indexForce, indexDrain, configForce = false, false, false
		indexVariants, retrieveURLs = nil, nil
		indexBatchSize, retrieveTopK = 0, 0
		rootCmd.SetArgs(nil)
	})
	return env
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

const testDims = 64

// mockEmbedder hashes words into a bag-of-words vector so that texts sharing
// words have a positive cosine.
type mockEmbedder struct {
	mu       sync.Mutex
	calls    int
	embedErr error
	batchErr error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return bagOfWords(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = bagOfWords(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int             { return testDims }
func (m *mockEmbedder) ModelName() string           { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                { return nil }

func bagOfWords(text string) []float32 {
	v := make([]float32, testDims)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%testDims]++
	}
	return v
}

// mockFetcher serves canned pages. Unknown URLs fail like a 404.
type mockFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	status  map[string]int
	fetched []string
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{pages: map[string]string{}, status: map[string]int{}}
}

func (m *mockFetcher) Fetch(_ context.Context, url string) (*domain.FetchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, url)
	if code, ok := m.status[url]; ok && code >= 400 {
		return nil, fmt.Errorf("%w: %s: status %d", domain.ErrFetchFailed, url, code)
	}
	body, ok := m.pages[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s: status 404", domain.ErrFetchFailed, url)
	}
	return &domain.FetchResult{URL: url, FinalURL: url, Status: 200, ContentType: "text/html", Body: []byte(body)}, nil
}

func (m *mockFetcher) set(url, title, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[url] = fmt.Sprintf("<html><head><title>%s</title></head><body><main>%s</main></body></html>", title, content)
}

// mockManifest returns fixed entries.
type mockManifest struct {
	entries []domain.ManifestEntry
	err     error
}

func (m *mockManifest) Read(_ context.Context, _ string) ([]domain.ManifestEntry, error) {
	return m.entries, m.err
}

// mockBatchScheduler records scheduled delays.
type mockBatchScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (m *mockBatchScheduler) ScheduleCrawlBatch(_ context.Context, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, delay)
	return m.err
}

// mockMetrics counts calls.
type mockMetrics struct {
	mu       sync.Mutex
	urls     map[string]int
	batches  int
	lookups  map[string]int
	retrieve int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{urls: map[string]int{}, lookups: map[string]int{}}
}

func (m *mockMetrics) URLProcessed(outcome string) {
	m.mu.Lock()
	m.urls[outcome]++
	m.mu.Unlock()
}

func (m *mockMetrics) BatchCompleted(_ int, _ time.Duration) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
}

func (m *mockMetrics) RetrievalCompleted(_ int, _ time.Duration) {
	m.mu.Lock()
	m.retrieve++
	m.mu.Unlock()
}

func (m *mockMetrics) CacheLookup(result string) {
	m.mu.Lock()
	m.lookups[result]++
	m.mu.Unlock()
}

// mockGenerator echoes the question.
type mockGenerator struct {
	calls     int
	retrieved string
	err       error
}

func (m *mockGenerator) Generate(_ context.Context, question, retrieved string) (string, error) {
	m.calls++
	m.retrieved = retrieved
	if m.err != nil {
		return "", m.err
	}
	return "answer to " + question, nil
}

func (m *mockGenerator) ModelName() string           { return "mock" }
func (m *mockGenerator) Ping(_ context.Context) error { return nil }
func (m *mockGenerator) Close() error                { return nil }

// failingChunkStore wraps a ChunkStore and fails full-text search.
type failingChunkStore struct {
	driven.ChunkStore
}

func (f failingChunkStore) FullTextSearch(_ context.Context, _ domain.ChunkQuery) ([]domain.ScoredChunk, error) {
	return nil, errors.New("fts unavailable")
}

// Ensure mocks implement interfaces
var (
	_ driven.EmbeddingService = (*mockEmbedder)(nil)
	_ driven.Fetcher          = (*mockFetcher)(nil)
	_ driven.ManifestReader   = (*mockManifest)(nil)
	_ driven.BatchScheduler   = (*mockBatchScheduler)(nil)
	_ driven.Metrics          = (*mockMetrics)(nil)
	_ driven.AnswerGenerator  = (*mockGenerator)(nil)
)

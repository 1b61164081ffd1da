package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Full-text relevance is approximated by counting needle occurrences.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks []domain.Chunk
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{}
}

// DocumentState returns what is stored for a document key.
func (s *ChunkStore) DocumentState(ctx context.Context, docKey string) (*domain.DocumentState, error) {
	states, _ := s.DocumentStates(ctx, []string{docKey})
	st, ok := states[docKey]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// DocumentStates returns the stored state for each known key.
func (s *ChunkStore) DocumentStates(_ context.Context, docKeys []string) (map[string]domain.DocumentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(docKeys))
	for _, k := range docKeys {
		wanted[k] = true
	}

	states := make(map[string]domain.DocumentState)
	for _, c := range s.chunks {
		if !wanted[c.DocKey] {
			continue
		}
		st, ok := states[c.DocKey]
		if !ok {
			st = domain.DocumentState{DocKey: c.DocKey, URL: c.URL, Category: c.Category, ContentHash: c.ContentHash}
		}
		st.Chunks++
		if c.UpdatedAt.After(st.UpdatedAt) {
			st.UpdatedAt = c.UpdatedAt
		}
		states[c.DocKey] = st
	}
	return states, nil
}

// ReplaceDocument deletes chunks under docKeys or paths, then inserts chunks.
func (s *ChunkStore) ReplaceDocument(_ context.Context, docKeys, paths []string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteLocked(docKeys, paths)
	now := time.Now().UTC()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = now
		}
		c.Embedding = slices.Clone(c.Embedding)
		s.chunks = append(s.chunks, c)
	}
	return nil
}

// DeleteDocuments removes chunks by document key and by normalised path.
func (s *ChunkStore) DeleteDocuments(_ context.Context, docKeys, paths []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(docKeys, paths), nil
}

func (s *ChunkStore) deleteLocked(docKeys, paths []string) int {
	before := len(s.chunks)
	s.chunks = slices.DeleteFunc(s.chunks, func(c domain.Chunk) bool {
		return slices.Contains(docKeys, c.DocKey) || slices.Contains(paths, c.Path)
	})
	return before - len(s.chunks)
}

// FullTextSearch scores chunks by total needle occurrences in title and content.
func (s *ChunkStore) FullTextSearch(_ context.Context, q domain.ChunkQuery) ([]domain.ScoredChunk, error) {
	return s.search(q, func(haystack, needle string) float64 {
		return float64(strings.Count(haystack, needle))
	}), nil
}

// SubstringSearch scores chunks by the number of distinct needles they contain.
func (s *ChunkStore) SubstringSearch(_ context.Context, q domain.ChunkQuery) ([]domain.ScoredChunk, error) {
	return s.search(q, func(haystack, needle string) float64 {
		if strings.Contains(haystack, needle) {
			return 1
		}
		return 0
	}), nil
}

func (s *ChunkStore) search(q domain.ChunkQuery, score func(haystack, needle string) float64) []domain.ScoredChunk {
	var needles []string
	for _, n := range append(slices.Clone(q.Phrases), q.Terms...) {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" && !slices.Contains(needles, n) {
			needles = append(needles, n)
		}
	}
	if len(needles) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ScoredChunk
	for _, c := range s.chunks {
		if q.Category != "" && c.Category != q.Category {
			continue
		}
		haystack := strings.ToLower(c.Title + " " + c.Content)
		var raw float64
		for _, n := range needles {
			raw += score(haystack, n)
		}
		if raw > 0 {
			out = append(out, domain.ScoredChunk{Chunk: c, Raw: raw})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Raw > out[j].Raw })
	return truncate(out, q.Limit)
}

// ListByCategory returns chunks of one category, most recently updated first.
func (s *ChunkStore) ListByCategory(_ context.Context, category string, limit int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ScoredChunk
	for _, c := range s.chunks {
		if c.Category == category {
			out = append(out, domain.ScoredChunk{Chunk: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Chunk.UpdatedAt.After(out[j].Chunk.UpdatedAt)
	})
	return truncate(out, limit), nil
}

// Stats returns document and chunk totals.
func (s *ChunkStore) Stats(_ context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make(map[string]bool)
	for _, c := range s.chunks {
		docs[c.DocKey] = true
	}
	return domain.IndexStats{Documents: len(docs), Chunks: len(s.chunks)}, nil
}

func truncate(in []domain.ScoredChunk, limit int) []domain.ScoredChunk {
	if limit <= 0 {
		limit = domain.DefaultCandidateLimit
	}
	if len(in) > limit {
		return in[:limit]
	}
	return in
}

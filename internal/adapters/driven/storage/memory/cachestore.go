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

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry // by hash
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{entries: make(map[string]domain.CacheEntry)}
}

// GetByHash returns the entry with the given question hash.
func (s *CacheStore) GetByHash(_ context.Context, hash string) (*domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[hash]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// ListByLength returns entries within a normalised length window, most recent first.
func (s *CacheStore) ListByLength(_ context.Context, minLen, maxLen, limit int) ([]domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CacheEntry
	for _, e := range s.entries {
		if n := e.NormalizedLength(); n >= minLen && n <= maxLen {
			out = append(out, e)
		}
	}
	sortRecent(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Upsert inserts the entry or updates the one sharing its hash.
func (s *CacheStore) Upsert(_ context.Context, entry *domain.CacheEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[entry.Hash]; ok {
		entry.ID = existing.ID
		entry.HitCount = existing.HitCount
		entry.LastHitAt = existing.LastHitAt
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	e := *entry
	e.Sources = domain.DecodeSources(domain.EncodeSources(entry.Sources))
	s.entries[entry.Hash] = e
	return nil
}

// RecordHit increments the hit counter of an entry.
func (s *CacheStore) RecordHit(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, e := range s.entries {
		if e.ID == id {
			e.HitCount++
			t := at
			e.LastHitAt = &t
			s.entries[hash] = e
			return nil
		}
	}
	return nil
}

// ListMentioning returns entries whose sources contain any fragment.
func (s *CacheStore) ListMentioning(_ context.Context, fragments []string) ([]domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.CacheEntry
	for _, e := range s.entries {
		blob := domain.EncodeSources(e.Sources)
		if slices.ContainsFunc(fragments, func(f string) bool { return f != "" && strings.Contains(blob, f) }) {
			out = append(out, e)
		}
	}
	sortRecent(out)
	return out, nil
}

// Delete removes entries by ID.
func (s *CacheStore) Delete(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for hash, e := range s.entries {
		if slices.Contains(ids, e.ID) {
			delete(s.entries, hash)
			n++
		}
	}
	return n, nil
}

// Clear removes every entry.
func (s *CacheStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[string]domain.CacheEntry)
	return n, nil
}

func sortRecent(entries []domain.CacheEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

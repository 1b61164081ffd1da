package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

// CacheStore persists answer cache entries.
type CacheStore interface {
	// GetByHash returns the most recent entry with the given question hash.
	// Returns nil and no error if there is none.
	GetByHash(ctx context.Context, hash string) (*domain.CacheEntry, error)

	// ListByLength returns entries whose normalised question length lies in
	// [minLen, maxLen], most recent first, at most limit entries.
	ListByLength(ctx context.Context, minLen, maxLen, limit int) ([]domain.CacheEntry, error)

	// Upsert inserts the entry or updates the one sharing its hash.
	Upsert(ctx context.Context, entry *domain.CacheEntry) error

	// RecordHit increments the hit counter of an entry.
	RecordHit(ctx context.Context, id string, at time.Time) error

	// ListMentioning returns entries whose stored sources contain any fragment.
	// It is a coarse pre-filter; callers confirm matches on decoded sources.
	ListMentioning(ctx context.Context, fragments []string) ([]domain.CacheEntry, error)

	// Delete removes entries by ID and returns how many were removed.
	Delete(ctx context.Context, ids []string) (int, error)

	// Clear removes every entry and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

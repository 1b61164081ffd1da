package driving

import (
	"context"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

// AnswerCache maps questions, exactly or nearly, to earlier answers.
type AnswerCache interface {
	// Find returns the cached entry for question, or nil if there is none.
	Find(ctx context.Context, question string) (*domain.CacheEntry, error)

	// Store saves an answer, replacing any entry for the same normalised question.
	Store(ctx context.Context, question, answer string, sources []domain.SourceRef) error

	// PurgeBySourceURLs deletes entries citing any of urls or paths.
	// Returns the number of entries deleted.
	PurgeBySourceURLs(ctx context.Context, urls, paths []string) (int, error)

	// Delete removes entries by ID.
	Delete(ctx context.Context, ids ...string) (int, error)

	// Clear removes every entry.
	Clear(ctx context.Context) (int, error)
}

package driven

import (
	"context"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

// ChunkStore persists page chunks and answers candidate lookups.
type ChunkStore interface {
	// DocumentState returns what is stored for a document key.
	// Returns nil and no error if nothing is stored.
	DocumentState(ctx context.Context, docKey string) (*domain.DocumentState, error)

	// DocumentStates returns the stored state for each known key, keyed by doc key.
	// Unknown keys are absent from the map. Implementations batch large inputs.
	DocumentStates(ctx context.Context, docKeys []string) (map[string]domain.DocumentState, error)

	// ReplaceDocument deletes every chunk stored under any of docKeys or paths,
	// then inserts chunks. Callers pass the full chunk set of one page.
	ReplaceDocument(ctx context.Context, docKeys, paths []string, chunks []domain.Chunk) error

	// DeleteDocuments removes chunks by document key and by normalised path.
	// Returns the number of chunk rows removed.
	DeleteDocuments(ctx context.Context, docKeys, paths []string) (int, error)

	// FullTextSearch ranks chunks against the query terms and phrases.
	// Raw scores are non-negative, higher is better.
	FullTextSearch(ctx context.Context, q domain.ChunkQuery) ([]domain.ScoredChunk, error)

	// SubstringSearch matches chunks containing any term or phrase.
	// Raw scores count the matched terms and phrases.
	SubstringSearch(ctx context.Context, q domain.ChunkQuery) ([]domain.ScoredChunk, error)

	// ListByCategory returns chunks of one category without text ranking.
	ListByCategory(ctx context.Context, category string, limit int) ([]domain.ScoredChunk, error)

	// Stats returns document and chunk totals.
	Stats(ctx context.Context) (domain.IndexStats, error)
}

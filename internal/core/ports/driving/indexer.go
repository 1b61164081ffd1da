package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

// IndexAllOptions configures a full reindex request.
type IndexAllOptions struct {
	// Force queues every manifest URL, including ones already indexed.
	Force bool
}

// IndexURLOptions configures a single-URL reindex.
type IndexURLOptions struct {
	// Force rewrites the chunks even when the content hash is unchanged.
	Force bool

	// KnownVariants are extra URLs whose chunks should be purged first,
	// such as the page's previous address after a move.
	KnownVariants []string

	// LastModified is the manifest hint used when the page has no dates.
	LastModified *time.Time
}

// RemoveResult reports what a document removal deleted.
type RemoveResult struct {
	Chunks       int `json:"chunks"`
	CacheEntries int `json:"cache_entries"`
}

// Indexer drives the crawl pipeline.
type Indexer interface {
	// IndexAll reads the site manifest and queues every URL that needs indexing.
	IndexAll(ctx context.Context, opts IndexAllOptions) (*domain.IndexAllResult, error)

	// IndexSingleURL fetches and indexes one URL immediately, outside the queue.
	IndexSingleURL(ctx context.Context, url string, opts IndexURLOptions) (domain.IndexOutcome, error)

	// WorkBatch processes up to batchSize queued URLs under the crawl lease.
	// A held lease is not an error: the result reports LeaseHeld.
	WorkBatch(ctx context.Context, batchSize int) (*domain.BatchResult, error)

	// RemoveURL deletes a page's chunks and the cached answers citing it.
	RemoveURL(ctx context.Context, url string, variants []string) (*RemoveResult, error)

	// Status reports crawl progress and index totals.
	Status(ctx context.Context) (*domain.IndexStatus, error)
}

package driving

import "context"

// Scheduler drives crawl batches and the nightly reindex in the background.
type Scheduler interface {
	// Start ticks until ctx ends. Tasks persisted by an earlier process
	// resume where they left off.
	Start(ctx context.Context) error

	// Stop waits for an in-flight task to finish. Safe to call twice.
	Stop() error
}

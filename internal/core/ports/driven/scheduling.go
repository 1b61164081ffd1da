package driven

import (
	"context"
	"time"
)

// BatchScheduler arms the next crawl worker run.
type BatchScheduler interface {
	// ScheduleCrawlBatch makes a crawl batch due after delay.
	ScheduleCrawlBatch(ctx context.Context, delay time.Duration) error
}

// Metrics records operational counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// URLProcessed counts one crawled URL by outcome.
	URLProcessed(outcome string)

	// BatchCompleted records a finished worker batch.
	BatchCompleted(processed int, elapsed time.Duration)

	// RetrievalCompleted records one retrieval and how many sources it returned.
	RetrievalCompleted(sources int, elapsed time.Duration)

	// CacheLookup counts an answer cache lookup by result: exact, fuzzy or miss.
	CacheLookup(result string)
}

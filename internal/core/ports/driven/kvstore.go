package driven

import (
	"context"
	"time"
)

// KeyValueStore holds small pieces of process-wide state, such as the crawl
// queue, and the crawl lease.
type KeyValueStore interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key without expiry.
	Set(ctx context.Context, key, value string) error

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// AcquireLease stores holder under key if the key is free or expired.
	// Returns false without error when another holder owns the lease.
	AcquireLease(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)

	// ReleaseLease removes the lease only if holder still owns it.
	ReleaseLease(ctx context.Context, key, holder string) error
}

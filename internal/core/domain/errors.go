package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Neither indexing nor retrieval can run without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGeneratorUnavailable indicates no answer generator is configured.
	ErrGeneratorUnavailable = errors.New("answer generator unavailable")

	// ErrMissingCredentials indicates a remote service was configured without credentials.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrFetchFailed indicates a page could not be fetched or returned status >= 400.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrManifestUnavailable indicates the site manifest could not be read.
	ErrManifestUnavailable = errors.New("manifest unavailable")

	// ErrLeaseHeld indicates another worker holds the crawl lease.
	ErrLeaseHeld = errors.New("crawl lease held")

	// ErrInvalidCrawlState indicates persisted crawl state violates cursor <= total <= len(queue).
	ErrInvalidCrawlState = errors.New("invalid crawl state")
)

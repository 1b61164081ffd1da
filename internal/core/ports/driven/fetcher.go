package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

// Fetcher retrieves site pages over HTTP.
type Fetcher interface {
	// Fetch GETs url following redirects. Transport failures and statuses
	// of 400 and above return an error wrapping domain.ErrFetchFailed.
	Fetch(ctx context.Context, url string) (*domain.FetchResult, error)
}

// ManifestReader reads the site manifest tree.
type ManifestReader interface {
	// Read returns every page listed under manifestURL, following
	// sub-manifests. Order follows the manifests; duplicates may occur.
	Read(ctx context.Context, manifestURL string) ([]domain.ManifestEntry, error)
}

// PageExtractor turns fetched HTML into a Page.
type PageExtractor interface {
	// Extract parses body fetched from pageURL. lastModified is the manifest
	// hint used when the page itself carries no dates.
	Extract(pageURL string, body []byte, lastModified *time.Time) (*domain.Page, error)
}

// TextSplitter splits plain text into sentence-aligned chunks.
type TextSplitter interface {
	Split(text string) []string
}

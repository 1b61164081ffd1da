package domain

import (
	"slices"
	"strings"
	"time"
)

// Default settings values.
const (
	DefaultFetchTimeout        = 20 * time.Second
	DefaultUserAgent           = "sercha-site"
	DefaultBatchSize           = 5
	DefaultThrottleDelay       = 500 * time.Millisecond
	DefaultRescheduleDelay     = 30 * time.Second
	DefaultLeaseTTL            = 5 * time.Minute
	DefaultChunkSize           = 1200
	MinChunkSize               = 400
	DefaultTopK                = 5
	DefaultCandidateLimit      = 300
	DefaultMinCosine           = 0.25
	DefaultSnippetLength       = 500
	DefaultCacheSimilarity     = 99.0
	DefaultCacheLengthWindow   = 2
	DefaultCacheCandidateLimit = 50
	DefaultMaxFailures         = 50
	DefaultFallbackAnswer      = "Sorry, I could not find an answer to that question on this site."
)

// DefaultContentSelectors are tried in order to find the main content region.
var DefaultContentSelectors = []string{"#primary", "main", "article", ".entry-content", "#content"}

// DefaultCategorySynonyms maps categories to the question words that hint at them.
func DefaultCategorySynonyms() map[string][]string {
	return map[string][]string{
		"vacatures": {"vacature", "vacatures", "baan", "banen", "job", "jobs", "vacancy", "vacancies", "werken", "solliciteren"},
		"nieuws":    {"nieuws", "news", "blog", "artikel", "artikelen", "bericht", "berichten"},
		"events":    {"event", "events", "evenement", "evenementen", "agenda", "activiteit", "activiteiten"},
	}
}

// Settings is the immutable engine configuration.
// Build one at the boundary and call WithDefaults once; services only read it.
type Settings struct {
	// SiteURL is the base URL of the site being indexed.
	SiteURL string

	// ManifestURL is the sitemap (or sitemap index) listing pages.
	// Defaults to SiteURL + "/sitemap.xml".
	ManifestURL string

	// SkipURLs lists URLs or paths never to index.
	SkipURLs []string

	// ContentSelectors are CSS selectors tried in order for the main content.
	ContentSelectors []string

	// InsecureSkipVerify disables TLS certificate verification for fetches.
	InsecureSkipVerify bool

	// FetchTimeout bounds a single page fetch.
	FetchTimeout time.Duration

	// UserAgent is sent with every fetch.
	UserAgent string

	// BatchSize is how many queued URLs one worker run processes.
	BatchSize int

	// ThrottleDelay is the minimum gap between URLs in a batch. Negative disables it.
	ThrottleDelay time.Duration

	// RescheduleDelay is how long to wait before the next batch.
	RescheduleDelay time.Duration

	// LeaseTTL bounds how long a crashed worker can block the queue.
	LeaseTTL time.Duration

	// ChunkSize is the chunk character budget, never below MinChunkSize.
	ChunkSize int

	// TopK is the default number of documents retrieved.
	TopK int

	// CandidateLimit caps chunks fetched per candidate query.
	CandidateLimit int

	// MinCosine is the relevance floor. Zero selects the default; a
	// negative value disables the floor.
	MinCosine float64

	// SnippetLength is the maximum snippet length in characters.
	SnippetLength int

	// CategoryPriority orders categories from most to least boosted.
	CategoryPriority []string

	// CategorySynonyms maps a category to question words that hint at it.
	CategorySynonyms map[string][]string

	// DefaultCategory is the last-resort category for candidate retrieval.
	DefaultCategory string

	// FallbackAnswer is returned when retrieval yields no context.
	FallbackAnswer string

	// CacheSimilarity is the minimum similarity percentage for a fuzzy cache hit.
	CacheSimilarity float64

	// CacheLengthWindow is the +/- normalised length window for fuzzy lookups.
	CacheLengthWindow int

	// CacheCandidateLimit caps entries compared during a fuzzy lookup.
	CacheCandidateLimit int

	// MaxFailures caps the recorded crawl failure list.
	MaxFailures int
}

// WithDefaults returns a copy with every unset field defaulted and
// every slice and map cloned.
func (s Settings) WithDefaults() Settings {
	s.SiteURL = strings.TrimRight(strings.TrimSpace(s.SiteURL), "/")
	if s.ManifestURL == "" && s.SiteURL != "" {
		s.ManifestURL = s.SiteURL + "/sitemap.xml"
	}
	s.SkipURLs = slices.Clone(s.SkipURLs)
	if len(s.ContentSelectors) == 0 {
		s.ContentSelectors = slices.Clone(DefaultContentSelectors)
	} else {
		s.ContentSelectors = slices.Clone(s.ContentSelectors)
	}
	if s.FetchTimeout <= 0 {
		s.FetchTimeout = DefaultFetchTimeout
	}
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	if s.ThrottleDelay == 0 {
		s.ThrottleDelay = DefaultThrottleDelay
	}
	if s.RescheduleDelay <= 0 {
		s.RescheduleDelay = DefaultRescheduleDelay
	}
	if s.LeaseTTL <= 0 {
		s.LeaseTTL = DefaultLeaseTTL
	}
	if s.ChunkSize <= 0 {
		s.ChunkSize = DefaultChunkSize
	}
	if s.ChunkSize < MinChunkSize {
		s.ChunkSize = MinChunkSize
	}
	if s.TopK <= 0 {
		s.TopK = DefaultTopK
	}
	if s.CandidateLimit <= 0 {
		s.CandidateLimit = DefaultCandidateLimit
	}
	if s.MinCosine == 0 {
		s.MinCosine = DefaultMinCosine
	}
	if s.SnippetLength <= 0 {
		s.SnippetLength = DefaultSnippetLength
	}
	s.CategoryPriority = slices.Clone(s.CategoryPriority)
	if len(s.CategorySynonyms) == 0 {
		s.CategorySynonyms = DefaultCategorySynonyms()
	} else {
		syn := make(map[string][]string, len(s.CategorySynonyms))
		for k, v := range s.CategorySynonyms {
			syn[k] = slices.Clone(v)
		}
		s.CategorySynonyms = syn
	}
	if s.DefaultCategory == "" {
		s.DefaultCategory = DefaultCategory
	}
	if s.FallbackAnswer == "" {
		s.FallbackAnswer = DefaultFallbackAnswer
	}
	if s.CacheSimilarity <= 0 {
		s.CacheSimilarity = DefaultCacheSimilarity
	}
	if s.CacheLengthWindow <= 0 {
		s.CacheLengthWindow = DefaultCacheLengthWindow
	}
	if s.CacheCandidateLimit <= 0 {
		s.CacheCandidateLimit = DefaultCacheCandidateLimit
	}
	if s.MaxFailures <= 0 {
		s.MaxFailures = DefaultMaxFailures
	}
	return s
}

// IsSkipped reports whether rawURL matches an entry of the skip-list.
// Entries may be full URLs or bare paths.
func (s Settings) IsSkipped(rawURL string) bool {
	canonical := CanonicalURL(rawURL)
	path := NormalizePath(rawURL)
	for _, skip := range s.SkipURLs {
		skip = strings.TrimSpace(skip)
		if skip == "" {
			continue
		}
		if strings.Contains(skip, "://") {
			if slices.Contains(URLVariants(skip), canonical) {
				return true
			}
			continue
		}
		if NormalizePath(skip) == path {
			return true
		}
	}
	return false
}

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultCategory is the category assigned to pages whose URL has no path segment.
const DefaultCategory = "page"

// Page is the extracted form of one fetched site page.
// It is the input to chunking and embedding.
type Page struct {
	// URL is the address the page was fetched from.
	URL string

	// Title is the first non-empty of <title> or og:title.
	Title string

	// Content is the whitespace-collapsed plain text of the main content region.
	Content string

	// Category is the slug of the first URL path segment.
	Category string

	// Metadata holds every valid JSON-LD block as a JSON array, or "" if none.
	Metadata string

	// PublishedAt is the publication time, if known.
	PublishedAt *time.Time

	// ModifiedAt is the last modification time, if known.
	ModifiedAt *time.Time
}

// ContentHash returns the hash shared by every chunk of this page.
func (p *Page) ContentHash() string {
	return HashText(p.Content)
}

// Chunk represents a searchable unit within a page.
// All chunks of one page share DocKey and ContentHash, and their
// Index values run contiguously from 0.
type Chunk struct {
	// ID is the unique identifier for the chunk row.
	ID string

	// DocKey is the stable document key (the canonical page URL).
	DocKey string

	// URL is the page URL as fetched.
	URL string

	// Path is the normalised URL path, used to purge scheme and slash variants.
	Path string

	// Category is the coarse classification derived from the URL path.
	Category string

	// Title is the page title.
	Title string

	// Index is the 0-based ordinal of this chunk within its page.
	Index int

	// Content is the text content of this chunk.
	Content string

	// Embedding is the unit-normalised vector for semantic matching.
	Embedding []float32

	// ContentHash is the hash of the whole page's plain text.
	ContentHash string

	// PublishedAt is the page publication time, if known.
	PublishedAt *time.Time

	// ModifiedAt is the page modification time, if known.
	ModifiedAt *time.Time

	// UpdatedAt is when this chunk row was written.
	UpdatedAt time.Time

	// Metadata is the page's structured data blob (JSON array), may be empty.
	Metadata string
}

// DocumentState summarises what the chunk store holds for one document.
type DocumentState struct {
	DocKey      string
	URL         string
	Category    string
	ContentHash string
	Chunks      int
	UpdatedAt   time.Time
}

// Unchanged reports whether a freshly extracted page matches the stored state.
func (s *DocumentState) Unchanged(hash, category string) bool {
	return s != nil && s.ContentHash == hash && s.Category == category
}

// ChunkQuery restricts a candidate lookup in the chunk store.
type ChunkQuery struct {
	// Category limits results to one category. Empty means the whole index.
	Category string

	// Terms are matched individually (any-of).
	Terms []string

	// Phrases are matched as exact sequences.
	Phrases []string

	// Limit caps the number of rows returned.
	Limit int
}

// HasText reports whether the query carries any lexical signal.
func (q ChunkQuery) HasText() bool {
	return len(q.Terms) > 0 || len(q.Phrases) > 0
}

// ScoredChunk is a chunk returned by a lexical lookup with its raw relevance.
// Raw is unbounded and non-negative; zero for unranked listings.
type ScoredChunk struct {
	Chunk Chunk
	Raw   float64
}

// IndexStats reports chunk store totals.
type IndexStats struct {
	Documents int
	Chunks    int
}

// HashText returns the hex-encoded SHA-256 of s.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Package chunker splits page text into sentence-aligned chunks.
package chunker

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.TextSplitter = (*Splitter)(nil)

var (
	// \p{Z} covers the no-break space that &nbsp; decodes to.
	whitespace = regexp.MustCompile(`[\s\p{Z}]+`)

	// A sentence ends at '.', '!' or '?' followed by whitespace.
	sentenceEnd = regexp.MustCompile(`[.!?][\s\p{Z}]`)
)

// Splitter splits text into chunks of at most chunkSize characters.
// It implements the driven.TextSplitter interface.
type Splitter struct {
	chunkSize int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk budget in characters.
// Budgets below domain.MinChunkSize are raised to it.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// New creates a new splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{chunkSize: domain.DefaultChunkSize}
	for _, opt := range opts {
		opt(s)
	}
	if s.chunkSize < domain.MinChunkSize {
		s.chunkSize = domain.MinChunkSize
	}
	return s
}

// ChunkSize returns the effective budget.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Split splits text into chunks.
func (s *Splitter) Split(text string) []string {
	return Split(text, s.chunkSize)
}

// Split collapses whitespace in text and greedily packs whole sentences into
// chunks of at most maxChars characters. A sentence longer than maxChars
// becomes a chunk of its own. maxChars is raised to domain.MinChunkSize.
func Split(text string, maxChars int) []string {
	if maxChars < domain.MinChunkSize {
		maxChars = domain.MinChunkSize
	}

	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	for _, sentence := range sentences(text) {
		n := len([]rune(sentence))
		if bufLen > 0 && bufLen+1+n > maxChars {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
		if bufLen > 0 {
			buf.WriteByte(' ')
			bufLen++
		}
		buf.WriteString(sentence)
		bufLen += n
	}
	if bufLen > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// sentences splits whitespace-collapsed text after each terminator.
// The terminator stays with its sentence; the separating space is dropped.
func sentences(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// The terminator is one byte; the separator after it may be more.
		out = append(out, text[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

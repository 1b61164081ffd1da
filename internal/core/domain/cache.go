package domain

import (
	"bytes"
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// SourceRef attributes an answer to one site page.
type SourceRef struct {
	Title string  `json:"title"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// CacheEntry is a stored question and its answer.
// Hash is unique across entries.
type CacheEntry struct {
	ID         string      `json:"id"`
	Question   string      `json:"question"`
	Normalized string      `json:"normalized"`
	Hash       string      `json:"hash"`
	Answer     string      `json:"answer"`
	Sources    []SourceRef `json:"sources"`
	CreatedAt  time.Time   `json:"created_at"`
	HitCount   int         `json:"hit_count"`
	LastHitAt  *time.Time  `json:"last_hit_at,omitempty"`
}

// NormalizedLength is the rune length used for the fuzzy lookup window.
func (e *CacheEntry) NormalizedLength() int {
	return len([]rune(e.Normalized))
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// NormalizeQuestion strips markup, decodes entities, lower-cases and
// collapses every run of non-alphanumeric characters to one space.
func NormalizeQuestion(q string) string {
	q = tagPattern.ReplaceAllString(q, " ")
	q = html.UnescapeString(q)
	q = strings.ToLower(q)

	var b strings.Builder
	space := false
	for _, r := range q {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// QuestionHash returns the cache key for an already normalised question.
func QuestionHash(normalized string) string {
	return HashText(normalized)
}

// EncodeSources serialises sources as a JSON array, dropping entries without a URL.
func EncodeSources(sources []SourceRef) string {
	kept := make([]SourceRef, 0, len(sources))
	for _, s := range sources {
		if strings.TrimSpace(s.URL) == "" {
			continue
		}
		kept = append(kept, s)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Keep "&" literal so raw URLs match the stored blob.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(kept); err != nil {
		return "[]"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// SourceFragments returns the substrings a sources blob holding u may
// contain: u itself and, when different, its HTML-escaped JSON form
// written by older versions.
func SourceFragments(u string) []string {
	data, err := json.Marshal(u)
	if err != nil {
		return []string{u}
	}
	escaped := strings.Trim(string(data), `"`)
	if escaped == u {
		return []string{u}
	}
	return []string{u, escaped}
}

// DecodeSources parses a stored sources blob. Anything that is not a JSON
// array yields nil; array entries that are not objects with a string url are dropped.
func DecodeSources(raw string) []SourceRef {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}

	out := make([]SourceRef, 0, len(items))
	for _, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		u, ok := fields["url"].(string)
		if !ok || strings.TrimSpace(u) == "" {
			continue
		}
		ref := SourceRef{URL: u}
		if t, ok := fields["title"].(string); ok {
			ref.Title = t
		}
		switch v := fields["score"].(type) {
		case float64:
			ref.Score = v
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				ref.Score = f
			}
		}
		out = append(out, ref)
	}
	return out
}

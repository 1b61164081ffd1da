// Package sitemap reads XML sitemaps and sitemap indexes.
package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/logger"
)

// Ensure Reader implements the interface.
var _ driven.ManifestReader = (*Reader)(nil)

// DefaultMaxDepth bounds sitemap index nesting.
const DefaultMaxDepth = 3

// Reader walks a sitemap tree using a Fetcher.
type Reader struct {
	fetcher  driven.Fetcher
	maxDepth int
}

// New creates a sitemap reader.
func New(fetcher driven.Fetcher) *Reader {
	return &Reader{fetcher: fetcher, maxDepth: DefaultMaxDepth}
}

// entry is a <url> or <sitemap> element.
type entry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// document covers both <urlset> and <sitemapindex>.
type document struct {
	XMLName  xml.Name
	URLs     []entry `xml:"url"`
	Sitemaps []entry `xml:"sitemap"`
}

// Read returns every page listed under manifestURL.
// The root manifest must load; a broken sub-manifest is logged and skipped.
func (r *Reader) Read(ctx context.Context, manifestURL string) ([]domain.ManifestEntry, error) {
	if strings.TrimSpace(manifestURL) == "" {
		return nil, fmt.Errorf("%w: no manifest URL", domain.ErrManifestUnavailable)
	}

	doc, err := r.load(ctx, manifestURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrManifestUnavailable, manifestURL, err)
	}

	visited := map[string]bool{domain.CanonicalURL(manifestURL): true}
	var out []domain.ManifestEntry
	r.collect(ctx, doc, 0, visited, &out)
	return out, nil
}

func (r *Reader) collect(ctx context.Context, doc document, depth int, visited map[string]bool, out *[]domain.ManifestEntry) {
	for _, u := range doc.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" {
			continue
		}
		*out = append(*out, domain.ManifestEntry{URL: loc, LastModified: parseLastMod(u.LastMod)})
	}

	for _, sm := range doc.Sitemaps {
		loc := strings.TrimSpace(sm.Loc)
		key := domain.CanonicalURL(loc)
		if loc == "" || visited[key] {
			continue
		}
		if depth+1 > r.maxDepth {
			logger.Warn("sitemap: %s exceeds depth %d, skipped", loc, r.maxDepth)
			continue
		}
		if ctx.Err() != nil {
			return
		}
		visited[key] = true

		child, err := r.load(ctx, loc)
		if err != nil {
			logger.Warn("sitemap: %s: %v", loc, err)
			continue
		}
		r.collect(ctx, child, depth+1, visited, out)
	}
}

func (r *Reader) load(ctx context.Context, url string) (document, error) {
	res, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return document{}, err
	}
	body, err := maybeGunzip(res.Body)
	if err != nil {
		return document{}, err
	}
	doc := parse(body)
	logger.Debug("sitemap: %s lists %d urls and %d sitemaps", url, len(doc.URLs), len(doc.Sitemaps))
	return doc, nil
}

// parse decodes body as XML and falls back to pattern matching when the
// XML is malformed or yields nothing.
func parse(body []byte) document {
	var doc document
	if err := xml.Unmarshal(body, &doc); err == nil && (len(doc.URLs) > 0 || len(doc.Sitemaps) > 0) {
		return doc
	}
	return scan(body)
}

var (
	blockPattern   = regexp.MustCompile(`(?is)<\s*(url|sitemap)\b[^>]*>(.*?)<\s*/\s*(?:url|sitemap)\s*>`)
	locPattern     = regexp.MustCompile(`(?is)<\s*loc\s*>\s*(?:<!\[CDATA\[)?\s*(.*?)\s*(?:\]\]>)?\s*<\s*/\s*loc\s*>`)
	lastModPattern = regexp.MustCompile(`(?is)<\s*lastmod\s*>\s*(.*?)\s*<\s*/\s*lastmod\s*>`)
)

func scan(body []byte) document {
	var doc document
	for _, m := range blockPattern.FindAllSubmatch(body, -1) {
		loc := locPattern.FindSubmatch(m[2])
		if loc == nil {
			continue
		}
		e := entry{Loc: html.UnescapeString(string(loc[1]))}
		if lm := lastModPattern.FindSubmatch(m[2]); lm != nil {
			e.LastMod = string(lm[1])
		}
		if strings.EqualFold(string(m[1]), "sitemap") {
			doc.Sitemaps = append(doc.Sitemaps, e)
		} else {
			doc.URLs = append(doc.URLs, e)
		}
	}
	return doc
}

func maybeGunzip(body []byte) ([]byte, error) {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gunzip: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, 50<<20))
}

// parseLastMod accepts W3C datetime and the looser formats plugins emit.
func parseLastMod(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return nil
		}
	}
	t = t.UTC()
	return &t
}

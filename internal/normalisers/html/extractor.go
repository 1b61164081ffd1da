package html

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/araddon/dateparse"
	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// Extractor turns fetched HTML into a domain.Page.
type Extractor struct {
	selectors []cascadia.Selector
}

// New creates an extractor that tries the given CSS selectors in order.
// With no selectors, domain.DefaultContentSelectors are used.
func New(selectors ...string) (*Extractor, error) {
	if len(selectors) == 0 {
		selectors = domain.DefaultContentSelectors
	}
	e := &Extractor{}
	for _, s := range selectors {
		sel, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("compile selector %q: %w", s, err)
		}
		e.selectors = append(e.selectors, sel)
	}
	return e, nil
}

// Extract parses body as the HTML of pageURL.
// lastModified is the manifest hint used when the page carries no dates.
func (e *Extractor) Extract(pageURL string, body []byte, lastModified *time.Time) (*domain.Page, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", domain.ErrInvalidInput, err)
	}

	page := &domain.Page{
		URL:      pageURL,
		Title:    extractTitle(root),
		Category: domain.CategoryFromURL(pageURL),
	}

	blocks := jsonLDBlocks(root)
	if len(blocks) > 0 {
		if data, err := json.Marshal(blocks); err == nil {
			page.Metadata = string(data)
		}
	}

	page.Content = e.mainContent(root, pageURL, body)

	page.PublishedAt, page.ModifiedAt = jsonLDDates(blocks)
	if page.PublishedAt == nil {
		page.PublishedAt = parseDate(metaContent(root, "article:published_time"))
	}
	if page.ModifiedAt == nil {
		page.ModifiedAt = parseDate(metaContent(root, "article:modified_time"))
	}
	if page.ModifiedAt == nil && lastModified != nil {
		t := *lastModified
		page.ModifiedAt = &t
	}

	return page, nil
}

func (e *Extractor) mainContent(root *html.Node, pageURL string, body []byte) string {
	for _, sel := range e.selectors {
		if n := sel.MatchFirst(root); n != nil {
			if text := nodeText(n); text != "" {
				return text
			}
		}
	}

	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		if article, err := readability.FromReader(bytes.NewReader(body), u); err == nil {
			if text := collapse(article.TextContent); text != "" {
				return text
			}
		}
	}

	if b := findFirst(root, atom.Body); b != nil {
		return nodeText(b)
	}
	return nodeText(root)
}

func extractTitle(root *html.Node) string {
	if t := findFirst(root, atom.Title); t != nil {
		if title := nodeText(t); title != "" {
			return title
		}
	}
	return collapse(metaContent(root, "og:title"))
}

// metaContent returns the content of the first <meta> whose property or name is key.
func metaContent(root *html.Node, key string) string {
	var out string
	walk(root, func(n *html.Node) bool {
		if out != "" {
			return false
		}
		if n.Type != html.ElementNode || n.DataAtom != atom.Meta {
			return true
		}
		if strings.EqualFold(attr(n, "property"), key) || strings.EqualFold(attr(n, "name"), key) {
			out = strings.TrimSpace(attr(n, "content"))
		}
		return true
	})
	return out
}

// jsonLDBlocks returns every application/ld+json script body that is valid JSON.
func jsonLDBlocks(root *html.Node) []json.RawMessage {
	var blocks []json.RawMessage
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != atom.Script {
			return true
		}
		if !strings.Contains(strings.ToLower(attr(n, "type")), "ld+json") {
			return false
		}
		var raw strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				raw.WriteString(c.Data)
			}
		}
		data := bytes.TrimSpace([]byte(raw.String()))
		if len(data) > 0 && json.Valid(data) {
			blocks = append(blocks, json.RawMessage(data))
		}
		return false
	})
	return blocks
}

// jsonLDDates finds the first datePublished and dateModified across blocks,
// looking inside arrays and @graph lists.
func jsonLDDates(blocks []json.RawMessage) (published, modified *time.Time) {
	var visit func(v any)
	visit = func(v any) {
		switch node := v.(type) {
		case []any:
			for _, item := range node {
				visit(item)
			}
		case map[string]any:
			if published == nil {
				if s, ok := node["datePublished"].(string); ok {
					published = parseDate(s)
				}
			}
			if modified == nil {
				if s, ok := node["dateModified"].(string); ok {
					modified = parseDate(s)
				}
			}
			if graph, ok := node["@graph"]; ok {
				visit(graph)
			}
		}
	}

	for _, b := range blocks {
		var v any
		if err := json.Unmarshal(b, &v); err == nil {
			visit(v)
		}
	}
	return published, modified
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	// Themes emit all sorts of human formats ("March 3, 2024 10:00").
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}

// Elements whose text is never page content.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Head:     true,
}

// Elements that separate words.
var blockLevel = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Table: true, atom.Blockquote: true, atom.Pre: true, atom.Section: true,
	atom.Article: true, atom.Header: true, atom.Footer: true, atom.Main: true,
	atom.Nav: true, atom.Aside: true, atom.Figure: true, atom.Figcaption: true,
	atom.Dd: true, atom.Dt: true, atom.Title: true,
}

// nodeText returns the whitespace-collapsed text below n.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skipped[n.DataAtom] {
				return
			}
			if blockLevel[n.DataAtom] {
				b.WriteByte(' ')
				defer b.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return collapse(b.String())
}

// whitespace includes \p{Z} so no-break spaces collapse too.
var whitespace = regexp.MustCompile(`[\s\p{Z}]+`)

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

func findFirst(root *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return false
		}
		return true
	})
	return found
}

// walk visits nodes depth-first; fn returns false to skip a node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

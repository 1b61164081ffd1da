package html

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

func mustExtractor(t *testing.T, selectors ...string) *Extractor {
	t.Helper()
	e, err := New(selectors...)
	require.NoError(t, err)
	return e
}

func TestNew(t *testing.T) {
	e := mustExtractor(t)
	assert.Len(t, e.selectors, len(domain.DefaultContentSelectors))
}

func TestNew_InvalidSelector(t *testing.T) {
	_, err := New("main", "[[[")
	assert.Error(t, err)
}

func TestExtract_TitleAndPrimaryContent(t *testing.T) {
	body := `<html><head><title>  Werken bij   ons </title>
<style>.x{color:red}</style></head>
<body>
<nav>Home | Contact</nav>
<div id="primary"><h1>Vacatures</h1><p>Wij zoeken een <b>developer</b> in Amsterdam.</p>
<script>var tracking = true;</script></div>
<footer>Copyright</footer>
</body></html>`

	page, err := mustExtractor(t).Extract("https://example.com/vacatures/developer/", []byte(body), nil)
	require.NoError(t, err)

	assert.Equal(t, "Werken bij ons", page.Title)
	assert.Equal(t, "Vacatures Wij zoeken een developer in Amsterdam.", page.Content)
	assert.Equal(t, "vacatures", page.Category)
	assert.Empty(t, page.Metadata)
	assert.Nil(t, page.PublishedAt)
	assert.Nil(t, page.ModifiedAt)
}

func TestExtract_SelectorOrder(t *testing.T) {
	body := `<html><body><article>Article text</article><main>Main text</main></body></html>`

	page, err := mustExtractor(t).Extract("https://example.com/", []byte(body), nil)
	require.NoError(t, err)
	assert.Equal(t, "Main text", page.Content)

	page, err = mustExtractor(t, "article", "main").Extract("https://example.com/", []byte(body), nil)
	require.NoError(t, err)
	assert.Equal(t, "Article text", page.Content)
}

func TestExtract_EmptySelectorMatchFallsThrough(t *testing.T) {
	body := `<html><body><div id="primary">   </div><article>Real content</article></body></html>`

	page, err := mustExtractor(t).Extract("https://example.com/x", []byte(body), nil)
	require.NoError(t, err)
	assert.Equal(t, "Real content", page.Content)
}

func TestExtract_BodyFallback(t *testing.T) {
	body := `<html><body><span>Only</span> <span>body text</span></body></html>`

	page, err := mustExtractor(t, "#missing").Extract("/", []byte(body), nil)
	require.NoError(t, err)
	assert.Equal(t, "Only body text", page.Content)
	assert.Equal(t, domain.DefaultCategory, page.Category)
}

func TestExtract_OpenGraphTitle(t *testing.T) {
	body := `<html><head><title> </title><meta property="og:title" content="OG Title"></head><body><main>x</main></body></html>`

	page, err := mustExtractor(t).Extract("https://example.com/", []byte(body), nil)
	require.NoError(t, err)
	assert.Equal(t, "OG Title", page.Title)
}

func TestExtract_JSONLD(t *testing.T) {
	body := `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"Article","datePublished":"2024-03-01T10:00:00+01:00","dateModified":"2024-03-05"}]}</script>
<script type="application/ld+json">{ not json </script>
<meta property="article:published_time" content="2020-01-01T00:00:00Z">
</head><body><main>Nieuws</main></body></html>`

	page, err := mustExtractor(t).Extract("https://example.com/nieuws/item", []byte(body), nil)
	require.NoError(t, err)

	var blocks []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(page.Metadata), &blocks))
	assert.Len(t, blocks, 1)

	require.NotNil(t, page.PublishedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), *page.PublishedAt)
	require.NotNil(t, page.ModifiedAt)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), *page.ModifiedAt)
}

func TestExtract_MetaDatesAndHint(t *testing.T) {
	hint := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	body := `<html><head><meta property="article:published_time" content="2023-05-01T08:00:00Z"></head><body><main>x</main></body></html>`
	page, err := mustExtractor(t).Extract("https://example.com/a", []byte(body), &hint)
	require.NoError(t, err)
	require.NotNil(t, page.PublishedAt)
	assert.Equal(t, time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC), *page.PublishedAt)
	require.NotNil(t, page.ModifiedAt)
	assert.Equal(t, hint, *page.ModifiedAt)

	body = `<html><head><meta property="article:modified_time" content="2023-05-02"></head><body><main>x</main></body></html>`
	page, err = mustExtractor(t).Extract("https://example.com/a", []byte(body), &hint)
	require.NoError(t, err)
	assert.Nil(t, page.PublishedAt)
	assert.Equal(t, time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC), *page.ModifiedAt)
}

func TestParseDate(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("yesterday"))
	assert.NotNil(t, parseDate("2024-01-02"))
	assert.NotNil(t, parseDate("2024-01-02T03:04:05"))
	assert.NotNil(t, parseDate("2024-01-02T03:04:05+0200"))

	human := parseDate("October 7, 2024")
	require.NotNil(t, human)
	assert.Equal(t, time.Date(2024, 10, 7, 0, 0, 0, 0, time.UTC), *human)
}

func TestExtract_CollapsesNoBreakSpaces(t *testing.T) {
	body := `<html><body><main><p>Open op maandag.&nbsp;&nbsp;Gesloten&nbsp;op zondag.</p></main></body></html>`

	page, err := mustExtractor(t).Extract("https://example.com/contact", []byte(body), nil)
	require.NoError(t, err)

	assert.Equal(t, "Open op maandag. Gesloten op zondag.", page.Content)
}

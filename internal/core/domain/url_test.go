package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalURL(t *testing.T) {
	assert.Equal(t, "https://example.com/", CanonicalURL("HTTPS://Example.COM"))
	assert.Equal(t, "https://example.com/a/b", CanonicalURL(" https://example.com/a/b#top "))
	assert.Equal(t, "https://example.com/a?x=1", CanonicalURL("https://example.com/a?x=1"))
	assert.Equal(t, "not a url", CanonicalURL("not a url"))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", NormalizePath("https://example.com"))
	assert.Equal(t, "/", NormalizePath("https://example.com/"))
	assert.Equal(t, "/vacatures", NormalizePath("https://example.com/vacatures/"))
	assert.Equal(t, "/vacatures/dev", NormalizePath("http://example.com/vacatures/dev"))
	assert.Equal(t, "/contact", NormalizePath("contact/"))
}

func TestURLVariants(t *testing.T) {
	variants := URLVariants("https://example.com/news/item/")

	assert.Equal(t, "https://example.com/news/item/", variants[0])
	assert.ElementsMatch(t, []string{
		"https://example.com/news/item/",
		"https://example.com/news/item",
		"http://example.com/news/item/",
		"http://example.com/news/item",
	}, variants)
}

func TestURLVariants_Root(t *testing.T) {
	variants := URLVariants("http://example.com")

	assert.ElementsMatch(t, []string{"http://example.com/", "https://example.com/"}, variants)
}

func TestCategoryFromURL(t *testing.T) {
	tests := map[string]string{
		"https://example.com/":                  DefaultCategory,
		"https://example.com":                   DefaultCategory,
		"https://example.com/vacatures/dev":     "vacatures",
		"https://example.com/Nieuws/":           "nieuws",
		"https://example.com/over%20ons/team":   "over-ons",
		"https://example.com/2024_events/party": "2024-events",
	}

	for in, want := range tests {
		assert.Equal(t, want, CategoryFromURL(in), in)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hello-world", Slugify("Hello, World!"))
	assert.Equal(t, "", Slugify("---"))
	assert.Equal(t, "a-b", Slugify("a__b"))
}

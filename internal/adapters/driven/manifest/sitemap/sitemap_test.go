package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

type fakeFetcher struct {
	bodies map[string]string
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*domain.FetchResult, error) {
	f.calls = append(f.calls, url)
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("404")
	}
	return &domain.FetchResult{URL: url, FinalURL: url, Status: 200, Body: []byte(body)}, nil
}

const urlset = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.org/a</loc><lastmod>2024-05-01T10:00:00+02:00</lastmod></url>
  <url><loc>https://example.org/b</loc></url>
  <url><loc>  </loc></url>
</urlset>`

func TestRead_URLSet(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"https://example.org/sitemap.xml": urlset}}

	entries, err := New(f).Read(context.Background(), "https://example.org/sitemap.xml")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "https://example.org/a", entries[0].URL)
	require.NotNil(t, entries[0].LastModified)
	assert.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), *entries[0].LastModified)
	assert.Nil(t, entries[1].LastModified)
}

func TestRead_IndexRecursesAndSkipsBrokenChildren(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{
		"https://example.org/index.xml": `<sitemapindex>
			<sitemap><loc>https://example.org/posts.xml</loc></sitemap>
			<sitemap><loc>https://example.org/missing.xml</loc></sitemap>
			<sitemap><loc>https://example.org/index.xml</loc></sitemap>
		</sitemapindex>`,
		"https://example.org/posts.xml": urlset,
	}}

	entries, err := New(f).Read(context.Background(), "https://example.org/index.xml")

	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, []string{
		"https://example.org/index.xml",
		"https://example.org/posts.xml",
		"https://example.org/missing.xml",
	}, f.calls)
}

func TestRead_DepthLimit(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{
		"https://example.org/0.xml": `<sitemapindex><sitemap><loc>https://example.org/1.xml</loc></sitemap></sitemapindex>`,
		"https://example.org/1.xml": `<sitemapindex><sitemap><loc>https://example.org/2.xml</loc></sitemap></sitemapindex>`,
		"https://example.org/2.xml": `<urlset><url><loc>https://example.org/deep</loc></url></urlset>`,
	}}
	r := New(f)
	r.maxDepth = 1

	entries, err := r.Read(context.Background(), "https://example.org/0.xml")

	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotContains(t, f.calls, "https://example.org/2.xml")
}

func TestRead_RootFailure(t *testing.T) {
	_, err := New(&fakeFetcher{}).Read(context.Background(), "https://example.org/sitemap.xml")
	assert.ErrorIs(t, err, domain.ErrManifestUnavailable)

	_, err = New(&fakeFetcher{}).Read(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrManifestUnavailable)
}

func TestRead_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(urlset))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	f := &fakeFetcher{bodies: map[string]string{"https://example.org/sitemap.xml.gz": buf.String()}}

	entries, err := New(f).Read(context.Background(), "https://example.org/sitemap.xml.gz")

	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestParse_MalformedFallsBackToScan(t *testing.T) {
	body := []byte(`<urlset><url><loc><![CDATA[https://example.org/x?a=1&b=2]]></loc>
		<lastmod>May 3, 2024</lastmod></url>
		<url><loc>https://example.org/y?a=1&amp;b=2</loc></url>
		<broken`)

	doc := parse(body)

	require.Len(t, doc.URLs, 2)
	assert.Equal(t, "https://example.org/x?a=1&b=2", doc.URLs[0].Loc)
	assert.Equal(t, "May 3, 2024", doc.URLs[0].LastMod)
	assert.Equal(t, "https://example.org/y?a=1&b=2", doc.URLs[1].Loc)
}

func TestParseLastMod(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{in: "", want: nil},
		{in: "not a date", want: nil},
		{in: "2024-01-02", want: ptr(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))},
		{in: "2024-01-02T03:04:05Z", want: ptr(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLastMod(tt.in))
		})
	}
}

func ptr(t time.Time) *time.Time { return &t }

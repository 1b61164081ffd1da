package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuestion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Wat zijn de vacatures?", "wat zijn de vacatures"},
		{"  Hello,   WORLD!!  ", "hello world"},
		{"<b>Openings</b>tijden &amp; adres", "openings tijden adres"},
		{"Caf&eacute; open?", "café open"},
		{"", ""},
		{"?!", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuestion(tt.in), tt.in)
	}
}

func TestNormalizeQuestion_IsIdempotent(t *testing.T) {
	q := "Wanneer is het <em>volgende</em> event in Utrecht, 2024?"
	once := NormalizeQuestion(q)
	assert.Equal(t, once, NormalizeQuestion(once))
}

func TestQuestionHash_Stable(t *testing.T) {
	assert.Equal(t, QuestionHash("abc"), QuestionHash("abc"))
	assert.NotEqual(t, QuestionHash("abc"), QuestionHash("abd"))
	assert.Len(t, QuestionHash("abc"), 64)
}

func TestEncodeDecodeSources(t *testing.T) {
	sources := []SourceRef{
		{Title: "Jobs", URL: "https://example.com/vacatures", Score: 0.91},
		{Title: "no url", URL: ""},
	}

	raw := EncodeSources(sources)
	decoded := DecodeSources(raw)

	require.Len(t, decoded, 1)
	assert.Equal(t, sources[0], decoded[0])
}

func TestEncodeSources_Empty(t *testing.T) {
	assert.Equal(t, "[]", EncodeSources(nil))
}

func TestDecodeSources_Tolerant(t *testing.T) {
	assert.Nil(t, DecodeSources(""))
	assert.Nil(t, DecodeSources("not json"))
	assert.Nil(t, DecodeSources(`{"url":"https://example.com"}`))

	raw := `[
		"just a string",
		42,
		{"title": "missing url"},
		{"title": 7, "url": "https://example.com/a", "score": "0.5"},
		{"title": "B", "url": "https://example.com/b", "score": {"bad": true}},
		{"title": "C", "url": "https://example.com/c", "score": 0.25}
	]`

	decoded := DecodeSources(raw)

	require.Len(t, decoded, 3)
	assert.Equal(t, SourceRef{Title: "", URL: "https://example.com/a", Score: 0.5}, decoded[0])
	assert.Equal(t, SourceRef{Title: "B", URL: "https://example.com/b", Score: 0}, decoded[1])
	assert.Equal(t, SourceRef{Title: "C", URL: "https://example.com/c", Score: 0.25}, decoded[2])
}

func TestCacheEntry_NormalizedLength(t *testing.T) {
	e := CacheEntry{Normalized: "café"}
	assert.Equal(t, 4, e.NormalizedLength())
}

func TestEncodeSources_KeepsQueryStringsLiteral(t *testing.T) {
	blob := EncodeSources([]SourceRef{{Title: "Agenda <2025>", URL: "https://example.com/agenda?cat=1&page=2"}})

	assert.Contains(t, blob, "https://example.com/agenda?cat=1&page=2")
	assert.Contains(t, blob, "Agenda <2025>")
	assert.False(t, strings.HasSuffix(blob, "\n"))
	assert.Equal(t, "https://example.com/agenda?cat=1&page=2", DecodeSources(blob)[0].URL)
}

func TestSourceFragments(t *testing.T) {
	assert.Equal(t, []string{"/nieuws/x"}, SourceFragments("/nieuws/x"))
	assert.Equal(t,
		[]string{"/agenda?cat=1&page=2", `/agenda?cat=1\u0026page=2`},
		SourceFragments("/agenda?cat=1&page=2"))
}

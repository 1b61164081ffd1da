package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSnippet_ShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "short text", snippet("short text", []string{"text"}, 50))
}

func TestSnippet_CentredOnMatch(t *testing.T) {
	text := strings.Repeat("a ", 100) + "Amsterdam" + strings.Repeat(" b", 100)
	got := snippet(text, []string{"zzz", "amsterdam"}, 40)

	assert.Contains(t, got, "Amsterdam")
	assert.True(t, strings.HasPrefix(got, ellipsis))
	assert.True(t, strings.HasSuffix(got, ellipsis))
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 40+2*utf8.RuneCountInString(ellipsis))
}

func TestSnippet_NoMatchStartsAtBeginning(t *testing.T) {
	text := "Begin " + strings.Repeat("x", 100)
	got := snippet(text, []string{"missing"}, 20)
	assert.True(t, strings.HasPrefix(got, "Begin"))
	assert.True(t, strings.HasSuffix(got, ellipsis))
}

func TestSnippet_MultibyteSafe(t *testing.T) {
	text := strings.Repeat("é", 50) + "café" + strings.Repeat("ü", 50)
	got := snippet(text, []string{"CAFÉ"}, 10)
	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "café")
}

func TestSnippet_MatchNearEndKeepsFullWindow(t *testing.T) {
	text := strings.Repeat("x", 100) + "end"
	got := snippet(text, []string{"end"}, 20)
	assert.True(t, strings.HasSuffix(got, "end"))
	assert.Equal(t, 20, utf8.RuneCountInString(strings.TrimPrefix(got, ellipsis)))
}

package services

import (
	"strings"
	"unicode"
)

const ellipsis = "…"

// snippet cuts text to at most maxLen runes centred on the earliest
// occurrence of any needle. Without a match it starts at the beginning.
// A truncated side is marked with an ellipsis.
func snippet(text string, needles []string, maxLen int) string {
	runes := []rune(text)
	if maxLen <= 0 || len(runes) <= maxLen {
		return text
	}

	lower := lowerRunes(runes)
	pos := -1
	for _, n := range needles {
		if n == "" {
			continue
		}
		if i := runeIndex(lower, lowerRunes([]rune(n))); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}

	start := 0
	if pos > 0 {
		start = pos - maxLen/2
		if start < 0 {
			start = 0
		}
	}
	end := start + maxLen
	if end > len(runes) {
		end = len(runes)
		start = end - maxLen
	}

	out := strings.TrimSpace(string(runes[start:end]))
	if start > 0 {
		out = ellipsis + out
	}
	if end < len(runes) {
		out += ellipsis
	}
	return out
}

// lowerRunes lower-cases rune by rune so indexes stay aligned with the input.
func lowerRunes(r []rune) []rune {
	out := make([]rune, len(r))
	for i, c := range r {
		out[i] = unicode.ToLower(c)
	}
	return out
}

func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

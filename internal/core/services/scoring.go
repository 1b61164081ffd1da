package services

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

// Score weights and boosts.
const (
	weightLexical  = 0.5
	weightCosine   = 0.4
	weightCoverage = 0.1
	weightNumeric  = 0.1

	boostPriorityMax = 0.2
	boostCategory    = 0.5
	boostHub         = 0.4
	boostTitleTerms  = 0.3
	boostTitleFuzzy  = 0.1
	boostRecency     = 0.1
	boostDateMention = 0.2
	boostHint        = 0.05

	recencyWindow = 365 * 24 * time.Hour
)

// scoringInput is everything scoreCandidate needs besides the candidate.
type scoringInput struct {
	question    string
	constraints constraints
	hint        string
	priority    []string
	queryVector []float32
	hints       domain.RetrievalHints
	now         time.Time
}

// scored is a candidate chunk with its score breakdown.
type scored struct {
	chunk    domain.Chunk
	lexical  float64
	cosine   float64
	coverage float64
	numeric  bool
	category bool
	hub      bool
	boost    float64
	score    float64
}

// squash maps a non-negative raw relevance score into [0, 1).
func squash(raw float64) float64 {
	if raw <= 0 {
		return 0
	}
	return 2/(1+math.Exp(-raw)) - 1
}

// scoreCandidate computes the final score of one candidate.
func scoreCandidate(in scoringInput, cand domain.ScoredChunk) scored {
	c := cand.Chunk
	text := strings.ToLower(c.Title + " " + c.Content)
	title := strings.ToLower(c.Title)
	required := in.constraints.required()

	s := scored{
		chunk:    c,
		lexical:  squash(cand.Raw),
		cosine:   domain.CosineSimilarity(in.queryVector, c.Embedding),
		coverage: coverage(required, text),
		numeric:  numbersPresent(in.constraints.numbers, text),
	}

	if in.hint != "" {
		s.category = c.Category == in.hint
		s.hub = c.Path == "/"+in.hint
	}

	s.boost = priorityBoost(in.priority, c.Category)
	if s.category {
		s.boost += boostCategory
	}
	if s.hub {
		s.boost += boostHub
	}
	if len(required) > 0 {
		s.boost += boostTitleTerms * coverage(required, title)
	}
	if title != "" {
		s.boost += boostTitleFuzzy * similarityPercent(title, strings.ToLower(in.question)) / 100
	}
	s.boost += recencyBoost(c, in.now)
	if dateMentioned(in.constraints.dates, text, c) {
		s.boost += boostDateMention
	}
	s.boost += hintBoost(in.hints, c)

	s.score = weightLexical*s.lexical +
		weightCosine*s.cosine +
		weightCoverage*s.coverage +
		s.boost
	if s.numeric {
		s.score += weightNumeric
	}
	return s
}

// coverage is the fraction of required items found in text, 1 when none are required.
func coverage(required []string, text string) float64 {
	if len(required) == 0 {
		return 1
	}
	found := 0
	for _, r := range required {
		if strings.Contains(text, r) {
			found++
		}
	}
	return float64(found) / float64(len(required))
}

// numbersPresent reports whether every number appears digit-wise in text.
func numbersPresent(numbers []string, text string) bool {
	if len(numbers) == 0 {
		return true
	}
	var have []string
	for _, n := range numberPattern.FindAllString(text, -1) {
		have = append(have, digitsOnly(n))
	}
	for _, n := range numbers {
		if !slices.Contains(have, n) {
			return false
		}
	}
	return true
}

// priorityBoost spaces boosts linearly over the priority list; the first
// category gets the largest.
func priorityBoost(priority []string, category string) float64 {
	i := slices.Index(priority, category)
	if i < 0 {
		return 0
	}
	n := float64(len(priority))
	return boostPriorityMax * (n - float64(i)) / n
}

// recencyBoost decays linearly to zero over a year from the publish date.
func recencyBoost(c domain.Chunk, now time.Time) float64 {
	at := c.PublishedAt
	if at == nil {
		at = c.ModifiedAt
	}
	if at == nil {
		return 0
	}
	age := now.Sub(*at)
	if age < 0 {
		age = 0
	}
	if age >= recencyWindow {
		return 0
	}
	return boostRecency * (1 - float64(age)/float64(recencyWindow))
}

func dateMentioned(dates []dateMention, text string, c domain.Chunk) bool {
	for _, d := range dates {
		if strings.Contains(text, d.raw) {
			return true
		}
		if c.PublishedAt != nil && sameDay(d.day, *c.PublishedAt) {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	b = b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func hintBoost(hints domain.RetrievalHints, c domain.Chunk) float64 {
	var b float64
	if slices.Contains(hints.DocKeys, c.DocKey) {
		b += boostHint
	}
	for _, u := range hints.URLs {
		if slices.Contains(domain.URLVariants(u), c.DocKey) {
			b += boostHint
			break
		}
	}
	return b
}

// passesFilter applies exclusions and the any-of gate. Candidates in the
// hinted category skip the gate.
func passesFilter(c constraints, hint string, chunk domain.Chunk) bool {
	if strings.TrimSpace(chunk.Content) == "" {
		return false
	}
	text := strings.ToLower(chunk.Title + " " + chunk.Content)
	for _, ex := range c.exclusions {
		if strings.Contains(text, ex) {
			return false
		}
	}
	if hint != "" && chunk.Category == hint {
		return true
	}
	required := c.required()
	if len(required) == 0 {
		return true
	}
	for _, r := range required {
		if strings.Contains(text, r) {
			return true
		}
	}
	return false
}

// aboveFloor applies the cosine floor; category and hub matches bypass it.
// A negative floor lets everything through.
func aboveFloor(s scored, minCosine float64) bool {
	return minCosine < 0 || s.category || s.hub || s.cosine >= minCosine
}

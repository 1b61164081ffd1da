package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

func TestSquash(t *testing.T) {
	assert.Equal(t, 0.0, squash(0))
	assert.Equal(t, 0.0, squash(-3))
	assert.InDelta(t, 0.4621, squash(1), 0.0001)
	assert.Less(t, squash(2), squash(3))
	assert.Less(t, squash(50), 1.0+1e-9)
}

func TestScoreCandidate_CategoryHintNeverRanksLower(t *testing.T) {
	in := scoringInput{
		question:    "vacatures amsterdam",
		constraints: extractConstraints("vacatures amsterdam"),
		hint:        "vacatures",
		queryVector: []float32{1, 0},
		now:         time.Now(),
	}
	base := domain.Chunk{Title: "Baan", Content: "Werken in Amsterdam", Embedding: []float32{1, 0}, Path: "/x/y"}

	plain := base
	plain.Category = "nieuws"
	hinted := base
	hinted.Category = "vacatures"

	a := scoreCandidate(in, domain.ScoredChunk{Chunk: hinted, Raw: 1})
	b := scoreCandidate(in, domain.ScoredChunk{Chunk: plain, Raw: 1})
	assert.True(t, a.category)
	assert.GreaterOrEqual(t, a.score, b.score)
	assert.InDelta(t, boostCategory, a.score-b.score, 1e-9)
}

func TestScoreCandidate_Components(t *testing.T) {
	in := scoringInput{
		question:    "museum 2024",
		constraints: extractConstraints("museum 2024"),
		queryVector: []float32{1, 0},
		now:         time.Now(),
	}
	c := domain.Chunk{Title: "Museum", Content: "Open since 2024.", Embedding: []float32{1, 0}}
	s := scoreCandidate(in, domain.ScoredChunk{Chunk: c, Raw: 0})

	assert.InDelta(t, 1.0, s.cosine, 1e-9)
	assert.Equal(t, 1.0, s.coverage)
	assert.True(t, s.numeric)
	assert.Zero(t, s.lexical)
	assert.False(t, s.category)
	assert.False(t, s.hub)
}

func TestAboveFloor(t *testing.T) {
	assert.True(t, aboveFloor(scored{cosine: 0, hub: true}, 0.25))
	assert.True(t, aboveFloor(scored{cosine: 0, category: true}, 0.25))
	assert.False(t, aboveFloor(scored{cosine: 0.1}, 0.25))
	assert.True(t, aboveFloor(scored{cosine: 0.25}, 0.25))
	assert.True(t, aboveFloor(scored{cosine: -0.3}, -1))
	assert.True(t, aboveFloor(scored{cosine: -0.3}, -0.1))
}

func TestCoverage(t *testing.T) {
	assert.Equal(t, 1.0, coverage(nil, "anything"))
	assert.Equal(t, 0.5, coverage([]string{"foo", "bar"}, "a foo b"))
}

func TestNumbersPresent(t *testing.T) {
	assert.True(t, numbersPresent(nil, "text"))
	assert.True(t, numbersPresent([]string{"3200"}, "salaris €3.200 per maand"))
	assert.False(t, numbersPresent([]string{"3000"}, "salaris €3.200 per maand"))
	assert.False(t, numbersPresent([]string{"32"}, "salaris 3200"))
}

func TestPriorityBoost(t *testing.T) {
	p := []string{"vacatures", "nieuws"}
	assert.InDelta(t, 0.2, priorityBoost(p, "vacatures"), 1e-9)
	assert.InDelta(t, 0.1, priorityBoost(p, "nieuws"), 1e-9)
	assert.Zero(t, priorityBoost(p, "page"))
}

func TestRecencyBoost(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fresh := now
	old := now.AddDate(-2, 0, 0)
	half := now.Add(-recencyWindow / 2)

	assert.InDelta(t, boostRecency, recencyBoost(domain.Chunk{PublishedAt: &fresh}, now), 1e-9)
	assert.InDelta(t, boostRecency/2, recencyBoost(domain.Chunk{ModifiedAt: &half}, now), 1e-9)
	assert.Zero(t, recencyBoost(domain.Chunk{PublishedAt: &old}, now))
	assert.Zero(t, recencyBoost(domain.Chunk{}, now))
}

func TestDateMentioned(t *testing.T) {
	published := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	dates := extractDates("Wat gebeurde er op 1 mei 2024?")
	assert.True(t, dateMentioned(dates, "niets", domain.Chunk{PublishedAt: &published}))
	assert.True(t, dateMentioned(dates, "op 1 mei 2024 was het feest", domain.Chunk{}))
	assert.False(t, dateMentioned(dates, "niets", domain.Chunk{}))
}

func TestPassesFilter(t *testing.T) {
	c := extractConstraints("museum zonder tickets")
	assert.True(t, passesFilter(c, "", domain.Chunk{Content: "The museum is open"}))
	assert.False(t, passesFilter(c, "", domain.Chunk{Content: "Museum tickets on sale"}))
	assert.False(t, passesFilter(c, "", domain.Chunk{Content: "Nothing relevant"}))
	assert.True(t, passesFilter(c, "agenda", domain.Chunk{Content: "Nothing relevant", Category: "agenda"}))
	assert.False(t, passesFilter(c, "", domain.Chunk{Content: "  "}))
	assert.True(t, passesFilter(constraints{}, "", domain.Chunk{Content: "anything"}))
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-site/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

type answerFixture struct {
	svc       *AnswerService
	cache     *AnswerCacheService
	generator *mockGenerator
	retriever *RetrieverService
}

func newAnswerFixture(t *testing.T) *answerFixture {
	t.Helper()
	settings := domain.Settings{MinCosine: 0.01}.WithDefaults()
	store := memory.NewChunkStore()
	seed(t, store, testChunk("https://example.com/m", "Museum", "m", 0, "The museum opens at nine."))

	f := &answerFixture{
		cache:     NewAnswerCacheService(settings, memory.NewCacheStore()),
		generator: &mockGenerator{},
		retriever: NewRetrieverService(settings, store, &mockEmbedder{}),
	}
	f.svc = NewAnswerService(settings, f.cache, f.retriever, f.generator)
	return f
}

func TestAnswer_GeneratesThenServesFromCache(t *testing.T) {
	f := newAnswerFixture(t)
	ctx := context.Background()

	first, err := f.svc.Answer(ctx, "When does the museum open?")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.False(t, first.Fallback)
	assert.Equal(t, "answer to When does the museum open?", first.Text)
	require.Len(t, first.Sources, 1)
	assert.Contains(t, f.generator.retrieved, "The museum opens at nine.")

	second, err := f.svc.Answer(ctx, "when does the museum open")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, 1, f.generator.calls)
}

func TestAnswer_FallbackIsNotCached(t *testing.T) {
	f := newAnswerFixture(t)
	ctx := context.Background()

	ans, err := f.svc.Answer(ctx, "zebra giraffe olifant")
	require.NoError(t, err)
	assert.True(t, ans.Fallback)
	assert.Equal(t, domain.DefaultFallbackAnswer, ans.Text)
	assert.Empty(t, ans.Sources)
	assert.Zero(t, f.generator.calls)

	entry, err := f.cache.Find(ctx, "zebra giraffe olifant")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestAnswer_GeneratorErrors(t *testing.T) {
	f := newAnswerFixture(t)
	f.generator.err = assert.AnError
	_, err := f.svc.Answer(context.Background(), "museum")
	assert.ErrorIs(t, err, assert.AnError)

	f.svc.generator = nil
	_, err = f.svc.Answer(context.Background(), "museum")
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	f := newAnswerFixture(t)
	_, err := f.svc.Answer(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswer_WithoutCache(t *testing.T) {
	f := newAnswerFixture(t)
	f.svc.cache = nil
	ans, err := f.svc.Answer(context.Background(), "museum")
	require.NoError(t, err)
	assert.False(t, ans.Cached)
}

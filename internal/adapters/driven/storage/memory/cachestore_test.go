package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

func entry(q string, created time.Time, sources ...domain.SourceRef) *domain.CacheEntry {
	n := domain.NormalizeQuestion(q)
	return &domain.CacheEntry{Question: q, Normalized: n, Hash: domain.QuestionHash(n), Answer: "a:" + q, Sources: sources, CreatedAt: created}
}

func TestCacheStore_Lifecycle(t *testing.T) {
	s := NewCacheStore()
	ctx := context.Background()
	base := time.Now().UTC()

	first := entry("abcdef", base, domain.SourceRef{URL: "https://example.com/a", Title: "A"})
	require.NoError(t, s.Upsert(ctx, first))
	require.NoError(t, s.RecordHit(ctx, first.ID, base))

	// Upsert keeps identity and hit stats.
	again := entry("ABCDEF!", base.Add(time.Second))
	require.NoError(t, s.Upsert(ctx, again))
	assert.Equal(t, first.ID, again.ID)

	got, err := s.GetByHash(ctx, first.Hash)
	require.NoError(t, err)
	assert.Equal(t, "a:ABCDEF!", got.Answer)
	assert.Equal(t, 1, got.HitCount)

	require.NoError(t, s.Upsert(ctx, entry("abcdefg", base.Add(2*time.Second), domain.SourceRef{URL: "https://example.com/b"})))
	require.NoError(t, s.Upsert(ctx, entry("abcdefghijk", base)))

	window, err := s.ListByLength(ctx, 4, 8, 10)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "abcdefg", window[0].Normalized)

	mentioning, err := s.ListMentioning(ctx, []string{"example.com/b"})
	require.NoError(t, err)
	require.Len(t, mentioning, 1)

	n, err := s.Delete(ctx, []string{mentioning[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	missing, err := s.GetByHash(ctx, first.Hash)
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.ErrorIs(t, s.Upsert(ctx, nil), domain.ErrInvalidInput)
}

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueStore_Values(t *testing.T) {
	s := NewKeyValueStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "crawl:cursor", "2"))
	v, ok, err := s.Get(ctx, "crawl:cursor")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, s.Delete(ctx, "crawl:cursor", "missing"))
	_, ok, _ = s.Get(ctx, "crawl:cursor")
	assert.False(t, ok)
}

func TestKeyValueStore_Lease(t *testing.T) {
	s := NewKeyValueStore()
	ctx := context.Background()
	now := time.Now()
	s.SetClock(func() time.Time { return now })

	ok, err := s.AcquireLease(ctx, "crawl:lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.AcquireLease(ctx, "crawl:lock", "b", time.Minute)
	assert.False(t, ok)

	require.NoError(t, s.ReleaseLease(ctx, "crawl:lock", "b"))
	holder, ok, _ := s.Get(ctx, "crawl:lock")
	assert.True(t, ok)
	assert.Equal(t, "a", holder)

	now = now.Add(time.Minute)
	ok, _ = s.AcquireLease(ctx, "crawl:lock", "b", time.Minute)
	assert.True(t, ok, "expired lease can be taken over")

	require.NoError(t, s.ReleaseLease(ctx, "crawl:lock", "b"))
	_, ok, _ = s.Get(ctx, "crawl:lock")
	assert.False(t, ok)
}

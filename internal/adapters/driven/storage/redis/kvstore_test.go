package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a throwaway Redis container and returns its address.
func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return host + ":" + port.Port()
}

func TestConnect_RequiresAddr(t *testing.T) {
	_, err := Connect(context.Background(), Options{})
	assert.Error(t, err)
}

func TestKeyValueStore_Redis(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	s, err := Connect(ctx, Options{Addr: addr, DialTimeout: 5 * time.Second, Prefix: "test:"})
	require.NoError(t, err)
	defer s.Close()

	t.Run("values", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "crawl:cursor")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Set(ctx, "crawl:cursor", "7"))
		v, ok, err := s.Get(ctx, "crawl:cursor")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "7", v)

		raw, err := s.client.Get(ctx, "test:crawl:cursor").Result()
		require.NoError(t, err)
		assert.Equal(t, "7", raw, "keys are prefixed")

		require.NoError(t, s.Delete(ctx, "crawl:cursor", "crawl:total"))
		_, ok, err = s.Get(ctx, "crawl:cursor")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lease", func(t *testing.T) {
		ok, err := s.AcquireLease(ctx, "crawl:lock", "a", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.AcquireLease(ctx, "crawl:lock", "b", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.ReleaseLease(ctx, "crawl:lock", "b"))
		holder, ok, err := s.Get(ctx, "crawl:lock")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "a", holder)

		require.NoError(t, s.ReleaseLease(ctx, "crawl:lock", "a"))
		ok, err = s.AcquireLease(ctx, "crawl:lock", "b", 200*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)

		assert.Eventually(t, func() bool {
			_, held, _ := s.Get(ctx, "crawl:lock")
			return !held
		}, 5*time.Second, 50*time.Millisecond, "lease expires by TTL")
	})
}

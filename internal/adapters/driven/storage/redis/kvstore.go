// Package redis provides a Redis-backed driven.KeyValueStore.
//
// It lets several sercha-site processes share one crawl queue and lease:
// the lease is a SET NX PX key and is released with a compare-and-delete script.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "sercha-site:"

// Ensure KeyValueStore implements the interface.
var _ driven.KeyValueStore = (*KeyValueStore)(nil)

// releaseScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Options configures the Redis connection.
type Options struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	Prefix      string
}

// KeyValueStore implements driven.KeyValueStore on Redis.
type KeyValueStore struct {
	client *goredis.Client
	prefix string
}

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, opts Options) (*KeyValueStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address required")
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", opts.Addr, err)
	}
	if pong != "PONG" {
		client.Close()
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}

	return New(client, opts.Prefix), nil
}

// New wraps an existing client. An empty prefix selects DefaultPrefix.
func New(client *goredis.Client, prefix string) *KeyValueStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &KeyValueStore{client: client, prefix: prefix}
}

// Close closes the underlying client.
func (s *KeyValueStore) Close() error {
	return s.client.Close()
}

func (s *KeyValueStore) key(k string) string {
	return s.prefix + k
}

// Get returns the value for key and whether it exists.
func (s *KeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting key %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key without expiry.
func (s *KeyValueStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

// Delete removes keys.
func (s *KeyValueStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	if err := s.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("deleting keys: %w", err)
	}
	return nil
}

// AcquireLease sets key to holder with a TTL if it is not already set.
func (s *KeyValueStore) AcquireLease(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", key, err)
	}
	return ok, nil
}

// ReleaseLease removes the lease only if holder still owns it.
func (s *KeyValueStore) ReleaseLease(ctx context.Context, key, holder string) error {
	if err := releaseScript.Run(ctx, s.client, []string{s.key(key)}, holder).Err(); err != nil {
		return fmt.Errorf("releasing lease %s: %w", key, err)
	}
	return nil
}

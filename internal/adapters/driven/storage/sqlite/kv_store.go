package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// kvStore implements driven.KeyValueStore over the kv table.
// Expiry is stored as Unix milliseconds; NULL never expires.
type kvStore struct {
	store *Store
	now   func() time.Time
}

var _ driven.KeyValueStore = (*kvStore)(nil)

// Get returns the value for key, ignoring expired rows.
func (s *kvStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.store.db.QueryRowContext(ctx, `
		SELECT value FROM kv
		WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)
	`, key, s.now().UnixMilli()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("getting key %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key without expiry.
func (s *kvStore) Set(ctx context.Context, key, value string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, NULL)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = NULL
	`, key, value)
	if err != nil {
		return fmt.Errorf("setting key %s: %w", key, err)
	}
	return nil
}

// Delete removes keys.
func (s *kvStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM kv WHERE key IN ("+placeholders(len(keys))+")", args...); err != nil {
		return fmt.Errorf("deleting keys: %w", err)
	}
	return nil
}

// AcquireLease takes the lease if the key is absent or expired.
func (s *kvStore) AcquireLease(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	now := s.now()
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
		WHERE kv.expires_at IS NOT NULL AND kv.expires_at <= ?
	`, key, holder, now.Add(ttl).UnixMilli(), now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquiring lease %s: %w", key, err)
	}
	return n == 1, nil
}

// ReleaseLease removes the lease only if holder still owns it.
func (s *kvStore) ReleaseLease(ctx context.Context, key, holder string) error {
	if _, err := s.store.db.ExecContext(ctx,
		"DELETE FROM kv WHERE key = ? AND value = ?", key, holder); err != nil {
		return fmt.Errorf("releasing lease %s: %w", key, err)
	}
	return nil
}

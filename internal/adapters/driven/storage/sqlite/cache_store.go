package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

const cacheColumns = `id, question, normalized, question_hash, answer, sources, created_at, hit_count, last_hit_at`

// cacheStore implements driven.CacheStore.
type cacheStore struct {
	store *Store
}

var _ driven.CacheStore = (*cacheStore)(nil)

// GetByHash returns the most recent entry with the given question hash.
func (s *cacheStore) GetByHash(ctx context.Context, hash string) (*domain.CacheEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+cacheColumns+`
		FROM cache_entries
		WHERE question_hash = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, hash)

	entry, err := scanCacheEntry(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return entry, err
}

// ListByLength returns entries in a normalised length window, most recent first.
func (s *cacheStore) ListByLength(ctx context.Context, minLen, maxLen, limit int) ([]domain.CacheEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+cacheColumns+`
		FROM cache_entries
		WHERE normalized_length BETWEEN ? AND ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, minLen, maxLen, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cache entries: %w", err)
	}
	defer rows.Close()

	return scanCacheEntries(rows)
}

// Upsert inserts the entry or updates the one sharing its hash.
func (s *cacheStore) Upsert(ctx context.Context, entry *domain.CacheEntry) error {
	if entry == nil {
		return domain.ErrInvalidInput
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cache_entries (id, question, normalized, normalized_length, question_hash,
			answer, sources, created_at, hit_count, last_hit_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(question_hash) DO UPDATE SET
			question = excluded.question,
			normalized = excluded.normalized,
			normalized_length = excluded.normalized_length,
			answer = excluded.answer,
			sources = excluded.sources,
			created_at = excluded.created_at
	`, entry.ID, entry.Question, entry.Normalized, entry.NormalizedLength(), entry.Hash,
		entry.Answer, domain.EncodeSources(entry.Sources), formatNullableTime(entry.CreatedAt),
		entry.HitCount, formatTimePtr(entry.LastHitAt))
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// RecordHit increments the hit counter of an entry.
func (s *cacheStore) RecordHit(ctx context.Context, id string, at time.Time) error {
	_, err := s.store.db.ExecContext(ctx,
		"UPDATE cache_entries SET hit_count = hit_count + 1, last_hit_at = ? WHERE id = ?",
		formatNullableTime(at), id)
	if err != nil {
		return fmt.Errorf("recording cache hit: %w", err)
	}
	return nil
}

// ListMentioning returns entries whose sources blob contains any fragment.
func (s *cacheStore) ListMentioning(ctx context.Context, fragments []string) ([]domain.CacheEntry, error) {
	var conds []string
	var args []any
	for _, f := range fragments {
		if f == "" {
			continue
		}
		conds = append(conds, `sources LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscape(f)+"%")
	}
	if len(conds) == 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+cacheColumns+`
		FROM cache_entries
		WHERE `+strings.Join(conds, " OR ")+`
		ORDER BY created_at DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying cache entries by source: %w", err)
	}
	defer rows.Close()

	return scanCacheEntries(rows)
}

// Delete removes entries by ID.
func (s *cacheStore) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := s.store.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return 0, fmt.Errorf("deleting cache entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted cache entries: %w", err)
	}
	return int(n), nil
}

// Clear removes every entry.
func (s *cacheStore) Clear(ctx context.Context) (int, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM cache_entries")
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting cleared cache entries: %w", err)
	}
	return int(n), nil
}

// ==================== Helper Functions ====================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCacheEntry(row rowScanner) (*domain.CacheEntry, error) {
	var e domain.CacheEntry
	var sources string
	var createdAt, lastHit sql.NullString

	if err := row.Scan(&e.ID, &e.Question, &e.Normalized, &e.Hash, &e.Answer,
		&sources, &createdAt, &e.HitCount, &lastHit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning cache entry: %w", err)
	}

	e.Sources = domain.DecodeSources(sources)
	e.CreatedAt = parseNullableTime(createdAt)
	e.LastHitAt = parseTimePtr(lastHit)
	return &e, nil
}

func scanCacheEntries(rows *sql.Rows) ([]domain.CacheEntry, error) {
	var entries []domain.CacheEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		e, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cache entries: %w", err)
	}
	return entries, nil
}

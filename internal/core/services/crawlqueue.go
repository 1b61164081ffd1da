package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// Crawl state keys in the key-value store.
const (
	keyCrawlQueue         = "crawl:queue"
	keyCrawlCursor        = "crawl:cursor"
	keyCrawlTotal         = "crawl:total"
	keyCrawlLock          = "crawl:lock"
	keyCrawlLastCompleted = "crawl:last_completed"
	keyCrawlFailures      = "crawl:failures"
)

// crawlQueue persists a domain.CrawlState through a driven.KeyValueStore.
type crawlQueue struct {
	kv          driven.KeyValueStore
	maxFailures int
}

func newCrawlQueue(kv driven.KeyValueStore, maxFailures int) *crawlQueue {
	return &crawlQueue{kv: kv, maxFailures: maxFailures}
}

// Load reads the stored state. Missing keys yield an empty state; a corrupt
// queue is reported as domain.ErrInvalidCrawlState.
func (q *crawlQueue) Load(ctx context.Context) (domain.CrawlState, error) {
	raw, ok, err := q.kv.Get(ctx, keyCrawlQueue)
	if err != nil {
		return domain.CrawlState{}, fmt.Errorf("load crawl queue: %w", err)
	}
	if !ok || raw == "" {
		return domain.NewCrawlState(nil), nil
	}

	var items []domain.QueueItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return domain.CrawlState{}, fmt.Errorf("%w: queue: %v", domain.ErrInvalidCrawlState, err)
	}

	cursor, err := q.intValue(ctx, keyCrawlCursor)
	if err != nil {
		return domain.CrawlState{}, err
	}
	total, err := q.intValue(ctx, keyCrawlTotal)
	if err != nil {
		return domain.CrawlState{}, err
	}
	return domain.RestoreCrawlState(items, cursor, total)
}

func (q *crawlQueue) intValue(ctx context.Context, key string) (int, error) {
	raw, ok, err := q.kv.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", domain.ErrInvalidCrawlState, key, raw)
	}
	return n, nil
}

// Save writes the whole state, queue first.
func (q *crawlQueue) Save(ctx context.Context, state domain.CrawlState) error {
	data, err := json.Marshal(state.Queue())
	if err != nil {
		return fmt.Errorf("encode crawl queue: %w", err)
	}
	if err := q.kv.Set(ctx, keyCrawlQueue, string(data)); err != nil {
		return err
	}
	if err := q.kv.Set(ctx, keyCrawlTotal, strconv.Itoa(state.Total())); err != nil {
		return err
	}
	return q.SaveCursor(ctx, state)
}

// SaveCursor persists only the cursor.
func (q *crawlQueue) SaveCursor(ctx context.Context, state domain.CrawlState) error {
	return q.kv.Set(ctx, keyCrawlCursor, strconv.Itoa(state.Cursor()))
}

// Clear removes the queue, cursor and total.
func (q *crawlQueue) Clear(ctx context.Context) error {
	return q.kv.Delete(ctx, keyCrawlQueue, keyCrawlCursor, keyCrawlTotal)
}

// MarkCompleted records when the queue was last drained.
func (q *crawlQueue) MarkCompleted(ctx context.Context, at time.Time) error {
	return q.kv.Set(ctx, keyCrawlLastCompleted, at.UTC().Format(time.RFC3339))
}

// LastCompleted returns the last drain time, if any.
func (q *crawlQueue) LastCompleted(ctx context.Context) (*time.Time, error) {
	raw, ok, err := q.kv.Get(ctx, keyCrawlLastCompleted)
	if err != nil || !ok {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, nil
	}
	return &t, nil
}

// Failures returns the recorded failures, oldest first.
// An unreadable list is treated as empty.
func (q *crawlQueue) Failures(ctx context.Context) ([]domain.CrawlFailure, error) {
	raw, ok, err := q.kv.Get(ctx, keyCrawlFailures)
	if err != nil || !ok {
		return nil, err
	}
	var failures []domain.CrawlFailure
	if err := json.Unmarshal([]byte(raw), &failures); err != nil {
		return nil, nil
	}
	return failures, nil
}

// RecordFailure appends a failure. Past maxFailures the oldest are dropped.
func (q *crawlQueue) RecordFailure(ctx context.Context, f domain.CrawlFailure) error {
	failures, err := q.Failures(ctx)
	if err != nil {
		return err
	}
	failures = append(failures, f)
	if q.maxFailures > 0 && len(failures) > q.maxFailures {
		failures = failures[len(failures)-q.maxFailures:]
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return err
	}
	return q.kv.Set(ctx, keyCrawlFailures, string(data))
}

// LeaseHolder returns the current lease holder, or "".
func (q *crawlQueue) LeaseHolder(ctx context.Context) (string, error) {
	holder, _, err := q.kv.Get(ctx, keyCrawlLock)
	return holder, err
}

package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
)

// --- Mock implementations for scheduler testing ---

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.TaskResult
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.TaskResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	// Return a copy
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) DeleteTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, taskID)
	return nil
}

func (m *mockSchedulerStore) RecordResult(_ context.Context, result *domain.TaskResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if result == nil {
		return domain.ErrInvalidInput
	}
	m.results[result.TaskID] = append(m.results[result.TaskID], *result)
	return nil
}

func (m *mockSchedulerStore) GetTaskHistory(_ context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := m.results[taskID]
	if len(results) > limit {
		results = results[len(results)-limit:]
	}
	return results, nil
}

func (m *mockSchedulerStore) PruneHistory(_ context.Context, _ int) error {
	return m.pruneErr
}

// mockIndexer implements driving.Indexer for testing.
type mockIndexer struct {
	mu         sync.Mutex
	indexAll   int
	workBatch  int
	batchRes   *domain.BatchResult
	batchErr   error
	status     domain.IndexStatus
	onIndexAll func()
}

func (m *mockIndexer) IndexAll(_ context.Context, _ driving.IndexAllOptions) (*domain.IndexAllResult, error) {
	m.mu.Lock()
	m.indexAll++
	hook := m.onIndexAll
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return &domain.IndexAllResult{OK: true, Message: "queued 3 URLs", Queued: 3}, nil
}

func (m *mockIndexer) IndexSingleURL(_ context.Context, _ string, _ driving.IndexURLOptions) (domain.IndexOutcome, error) {
	return domain.OutcomeIndexed, nil
}

func (m *mockIndexer) WorkBatch(_ context.Context, _ int) (*domain.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workBatch++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	if m.batchRes != nil {
		return m.batchRes, nil
	}
	return &domain.BatchResult{Processed: 2}, nil
}

func (m *mockIndexer) RemoveURL(_ context.Context, _ string, _ []string) (*driving.RemoveResult, error) {
	return &driving.RemoveResult{}, nil
}

func (m *mockIndexer) Status(_ context.Context) (*domain.IndexStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status
	return &st, nil
}

func (m *mockIndexer) counts() (indexAll, workBatch int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexAll, m.workBatch
}

// Ensure mocks implement interfaces
var _ driven.SchedulerStore = (*mockSchedulerStore)(nil)
var _ driving.Indexer = (*mockIndexer)(nil)

// ==================== Scheduler Tests ====================

func TestNewScheduler(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, &mockIndexer{})

	require.NotNil(t, scheduler)
	assert.Equal(t, config.Enabled, scheduler.config.Enabled)
}

func TestScheduler_StartStop(t *testing.T) {
	config := domain.DefaultSchedulerConfig()
	store := newMockSchedulerStore()

	scheduler := NewScheduler(config, store, &mockIndexer{})

	ctx, cancel := context.WithCancel(context.Background())

	// Start scheduler in goroutine
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	// Stop scheduler
	cancel()
	err := scheduler.Stop()
	require.NoError(t, err)

	wg.Wait()
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil)

	// Stop without starting should be safe
	err := scheduler.Stop()
	require.NoError(t, err)
}

func TestScheduler_DoubleStart(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), &mockIndexer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First start
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = scheduler.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	// Second start should return immediately (already running)
	err := scheduler.Start(context.Background())
	assert.NoError(t, err)

	cancel()
	scheduler.Stop() //nolint:errcheck
	wg.Wait()
}

func TestScheduler_InitialiseTasks(t *testing.T) {
	store := newMockSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, &mockIndexer{})
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	scheduler.now = func() time.Time { return now }

	ctx := context.Background()
	err := scheduler.initialiseTasks(ctx)
	require.NoError(t, err)

	task, err := store.GetTask(ctx, domain.TaskIDFullReindex)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, "Full Reindex", task.Name)
	assert.True(t, task.Enabled)
	assert.Equal(t, "0 3 * * *", task.Cron)
	assert.Equal(t, time.Date(2024, 6, 2, 3, 0, 0, 0, time.UTC), task.NextRun)

	batch, err := store.GetTask(ctx, domain.TaskIDCrawlBatch)
	require.NoError(t, err)
	assert.Nil(t, batch, "no crawl pending")
}

func TestScheduler_InitialiseTasks_ResumesPendingCrawl(t *testing.T) {
	store := newMockSchedulerStore()
	indexer := &mockIndexer{status: domain.IndexStatus{Cursor: 2, Total: 5}}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, indexer)

	ctx := context.Background()
	require.NoError(t, scheduler.initialiseTasks(ctx))

	batch, err := store.GetTask(ctx, domain.TaskIDCrawlBatch)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.True(t, batch.Enabled)
	assert.False(t, batch.Recurring())
}

func TestScheduler_EnsureTask_UpdateInterval(t *testing.T) {
	store := newMockSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, nil)
	ctx := context.Background()

	// Create initial task
	taskCfg := domain.TaskConfig{
		Enabled:  true,
		Interval: 1 * time.Hour,
	}
	err := scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg)
	require.NoError(t, err)

	// Update with new interval
	taskCfg.Interval = 2 * time.Hour
	err = scheduler.ensureTask(ctx, "test-task", "Test Task", taskCfg)
	require.NoError(t, err)

	// Verify interval was updated
	task, err := store.GetTask(ctx, "test-task")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, task.Interval)
}

func TestScheduler_EnsureTask_InvalidCron(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil)
	err := scheduler.ensureTask(context.Background(), "bad", "Bad", domain.TaskConfig{Enabled: true, Cron: "not a cron"})
	assert.Error(t, err)
}

func TestScheduler_ScheduleCrawlBatch(t *testing.T) {
	store := newMockSchedulerStore()
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, nil)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	scheduler.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, scheduler.ScheduleCrawlBatch(ctx, 30*time.Second))

	task, err := store.GetTask(ctx, domain.TaskIDCrawlBatch)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.True(t, task.Enabled)
	assert.Equal(t, now.Add(30*time.Second), task.NextRun)
}

func TestScheduler_CheckAndRunDueTasks_CrawlBatchIsOneShot(t *testing.T) {
	store := newMockSchedulerStore()
	indexer := &mockIndexer{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, indexer)
	ctx := context.Background()

	require.NoError(t, scheduler.ScheduleCrawlBatch(ctx, -time.Minute))

	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	_, batches := indexer.counts()
	assert.Equal(t, 1, batches)

	task, err := store.GetTask(ctx, domain.TaskIDCrawlBatch)
	require.NoError(t, err)
	assert.False(t, task.Enabled, "one-shot task disarmed after running")
	assert.False(t, task.LastSuccess.IsZero())

	history, err := store.GetTaskHistory(ctx, domain.TaskIDCrawlBatch, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 2, history[0].ItemsProcessed)

	// Nothing is due any more
	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()
	_, batches = indexer.counts()
	assert.Equal(t, 1, batches)
}

func TestScheduler_RearmDuringRunSurvives(t *testing.T) {
	store := newMockSchedulerStore()
	indexer := &mockIndexer{}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, indexer)
	ctx := context.Background()

	indexer.onIndexAll = func() {
		_ = scheduler.ScheduleCrawlBatch(ctx, 0)
	}
	require.NoError(t, store.SaveTask(ctx, &domain.ScheduledTask{
		ID:      domain.TaskIDFullReindex,
		Cron:    "0 3 * * *",
		Enabled: true,
		NextRun: time.Now().Add(-time.Minute),
	}))

	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	reindex, err := store.GetTask(ctx, domain.TaskIDFullReindex)
	require.NoError(t, err)
	assert.True(t, reindex.Enabled)
	assert.True(t, reindex.NextRun.After(time.Now()))

	batch, err := store.GetTask(ctx, domain.TaskIDCrawlBatch)
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.True(t, batch.Enabled)

	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()
	indexAll, batches := indexer.counts()
	assert.Equal(t, 1, indexAll)
	assert.Equal(t, 1, batches)
}

func TestScheduler_LeaseHeldRearms(t *testing.T) {
	store := newMockSchedulerStore()
	indexer := &mockIndexer{batchRes: &domain.BatchResult{LeaseHeld: true}}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, indexer)
	ctx := context.Background()

	n, err := scheduler.runCrawlBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	task, err := store.GetTask(ctx, domain.TaskIDCrawlBatch)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.True(t, task.NextRun.After(time.Now()))
}

func TestScheduler_FailedRunRecordsError(t *testing.T) {
	store := newMockSchedulerStore()
	indexer := &mockIndexer{batchErr: assert.AnError}
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), store, indexer)
	ctx := context.Background()

	require.NoError(t, scheduler.ScheduleCrawlBatch(ctx, -time.Second))
	scheduler.checkAndRunDueTasks(ctx)
	scheduler.wg.Wait()

	task, err := store.GetTask(ctx, domain.TaskIDCrawlBatch)
	require.NoError(t, err)
	assert.Equal(t, assert.AnError.Error(), task.LastError)
}

func TestScheduler_InflightTaskNotRunTwice(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil)
	require.True(t, scheduler.claim("x"))
	assert.False(t, scheduler.claim("x"))
	scheduler.release("x")
	assert.True(t, scheduler.claim("x"))
}

func TestScheduler_NilIndexer(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil)
	ctx := context.Background()

	_, err := scheduler.runCrawlBatch(ctx)
	require.NoError(t, err)
	_, err = scheduler.runFullReindex(ctx)
	require.NoError(t, err)
}

func TestScheduler_RunTask_UnknownTaskID(t *testing.T) {
	scheduler := NewScheduler(domain.DefaultSchedulerConfig(), newMockSchedulerStore(), nil)
	ctx := context.Background()

	// Create unknown task
	task := &domain.ScheduledTask{
		ID:       "unknown-task",
		Name:     "Unknown",
		Interval: time.Hour,
		Enabled:  true,
	}

	// This should just log and return, not panic
	scheduler.runTask(ctx, task)
	scheduler.wg.Wait()
}

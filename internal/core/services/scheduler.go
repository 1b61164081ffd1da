package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
)

// Ensure Scheduler implements the interfaces.
var (
	_ driving.Scheduler     = (*Scheduler)(nil)
	_ driven.BatchScheduler = (*Scheduler)(nil)
)

// leaseRetryDelay re-arms a crawl batch that found the lease held.
const leaseRetryDelay = time.Minute

// historyRetention is how many results are kept per task.
const historyRetention = 100

// Scheduler manages background task execution.
// It is a pure core service with no external control API.
type Scheduler struct {
	config  domain.SchedulerConfig
	store   driven.SchedulerStore
	indexer driving.Indexer
	now     func() time.Time

	mu       sync.Mutex
	running  bool
	inflight map[string]bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	indexer driving.Indexer,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		indexer:  indexer,
		now:      time.Now,
		inflight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		log.Printf("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// ScheduleCrawlBatch arms the one-shot crawl batch task to run after delay.
func (s *Scheduler) ScheduleCrawlBatch(ctx context.Context, delay time.Duration) error {
	task, err := s.store.GetTask(ctx, domain.TaskIDCrawlBatch)
	if err != nil {
		return err
	}
	if task == nil {
		task = &domain.ScheduledTask{ID: domain.TaskIDCrawlBatch, Name: "Crawl Batch"}
	}
	task.Interval = 0
	task.Cron = ""
	task.Enabled = true
	task.NextRun = s.now().Add(delay)
	return s.store.SaveTask(ctx, task)
}

// initialiseTasks ensures all configured tasks exist in the store and
// resumes an interrupted crawl.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if taskCfg := s.config.GetTaskConfig(domain.TaskIDFullReindex); taskCfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDFullReindex, "Full Reindex", taskCfg); err != nil {
			return err
		}
	}

	if s.indexer == nil {
		return nil
	}
	status, err := s.indexer.Status(ctx)
	if err != nil {
		return err
	}
	if status.Cursor < status.Total {
		log.Printf("scheduler: resuming crawl at %d/%d", status.Cursor, status.Total)
		return s.ScheduleCrawlBatch(ctx, 0)
	}
	return nil
}

// ensureTask creates or updates a recurring task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Cron:     cfg.Cron,
			Enabled:  cfg.Enabled,
		}
		task.NextRun, err = nextRun(task, now)
		if err != nil {
			return err
		}
	} else {
		// Recalculate next run from now when the schedule changed
		if task.Interval != cfg.Interval || task.Cron != cfg.Cron {
			task.Interval = cfg.Interval
			task.Cron = cfg.Cron
			task.NextRun, err = nextRun(task, now)
			if err != nil {
				return err
			}
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// nextRun returns when a recurring task is next due after now.
func nextRun(task *domain.ScheduledTask, now time.Time) (time.Time, error) {
	if task.Cron != "" {
		expr, err := cronexpr.Parse(task.Cron)
		if err != nil {
			return time.Time{}, fmt.Errorf("task %s: invalid cron %q: %w", task.ID, task.Cron, err)
		}
		next := expr.Next(now)
		if next.IsZero() {
			return time.Time{}, fmt.Errorf("task %s: cron %q never fires", task.ID, task.Cron)
		}
		return next, nil
	}
	return now.Add(task.Interval), nil
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	tick := s.config.TickInterval
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		log.Printf("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		if tasks[i].Due(now) {
			s.runTask(ctx, &tasks[i])
		}
	}
}

// claim marks a task in flight. Returns false if it already is.
func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	delete(s.inflight, id)
	s.mu.Unlock()
}

// runTask executes a single task.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	if !s.claim(task.ID) {
		return
	}

	// One-shot tasks are disarmed before running so a re-arm during the
	// run survives.
	if !task.Recurring() {
		task.Enabled = false
		if err := s.store.SaveTask(ctx, task); err != nil {
			log.Printf("scheduler: failed to disarm task %s: %v", task.ID, err)
			s.release(task.ID)
			return
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(task.ID)

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDCrawlBatch:
			result.ItemsProcessed, err = s.runCrawlBatch(ctx)
		case domain.TaskIDFullReindex:
			result.ItemsProcessed, err = s.runFullReindex(ctx)
		default:
			log.Printf("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = s.now()
		s.finishTask(ctx, task.ID, result, err)
	}()
}

// finishTask records the outcome on the latest stored copy of the task.
func (s *Scheduler) finishTask(ctx context.Context, id string, result *domain.TaskResult, err error) {
	task, getErr := s.store.GetTask(ctx, id)
	if getErr != nil || task == nil {
		log.Printf("scheduler: failed to reload task %s: %v", id, getErr)
		return
	}

	if err != nil {
		result.Success = false
		result.Error = err.Error()
		task.LastError = err.Error()
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}
	log.Printf("scheduler: %s done in %s (%d items, success=%t)",
		id, result.Duration().Round(time.Millisecond), result.ItemsProcessed, result.Success)

	// Update task state
	task.LastRun = result.StartedAt
	if task.Recurring() {
		next, nextErr := nextRun(task, result.EndedAt)
		if nextErr != nil {
			log.Printf("scheduler: %v", nextErr)
			task.Enabled = false
		} else {
			task.NextRun = next
		}
	}

	if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
		log.Printf("scheduler: failed to save task %s: %v", task.ID, saveErr)
	}

	// Record result for history
	if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
		log.Printf("scheduler: failed to record result for %s: %v", task.ID, recordErr)
	}

	if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
		log.Printf("scheduler: failed to prune history: %v", pruneErr)
	}
}

// runCrawlBatch processes one worker batch.
func (s *Scheduler) runCrawlBatch(ctx context.Context) (int, error) {
	if s.indexer == nil {
		return 0, nil
	}
	res, err := s.indexer.WorkBatch(ctx, 0)
	if err != nil {
		return 0, err
	}
	if res.LeaseHeld {
		log.Printf("scheduler: crawl lease held, retrying in %s", leaseRetryDelay)
		return 0, s.ScheduleCrawlBatch(ctx, leaseRetryDelay)
	}
	return res.Processed, nil
}

// runFullReindex queues every page that needs indexing.
func (s *Scheduler) runFullReindex(ctx context.Context) (int, error) {
	if s.indexer == nil {
		return 0, nil
	}
	res, err := s.indexer.IndexAll(ctx, driving.IndexAllOptions{})
	if err != nil {
		return 0, err
	}
	log.Printf("scheduler: full reindex: %s", res.Message)
	return res.Queued, nil
}

package domain

import "time"

// Built-in task IDs.
const (
	// TaskIDCrawlBatch works one slice of the crawl queue. It is one-shot:
	// the indexer re-arms it while URLs remain.
	TaskIDCrawlBatch = "crawl-batch"

	// TaskIDFullReindex re-reads the sitemap and queues changed pages.
	TaskIDFullReindex = "full-reindex"
)

// ScheduledTask is the persisted state of one background task.
// A task with neither Interval nor Cron runs once per arming.
type ScheduledTask struct {
	ID   string
	Name string

	Interval time.Duration
	// Cron takes precedence over Interval.
	Cron string

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time
	LastError   string

	Enabled bool
}

// Recurring reports whether the task re-arms itself after running.
func (t *ScheduledTask) Recurring() bool {
	return t.Interval > 0 || t.Cron != ""
}

// Due reports whether an enabled task should run at now.
// An enabled task without a NextRun is due immediately.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// TaskResult is one entry of a task's run history.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed is the number of URLs handled by the run.
	ItemsProcessed int
}

// Duration is how long the run took.
func (r TaskResult) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig controls the background scheduler.
type SchedulerConfig struct {
	Enabled bool

	// TickInterval is how often due tasks are checked.
	TickInterval time.Duration

	TaskConfigs map[string]TaskConfig
}

// TaskConfig configures one recurring task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
	Cron     string
}

// GetTaskConfig returns the zero TaskConfig for unconfigured tasks.
func (c SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig reindexes nightly at 03:00. Crawl batches are
// armed on demand and need no entry.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		TickInterval: 5 * time.Second,
		TaskConfigs: map[string]TaskConfig{
			TaskIDFullReindex: {Enabled: true, Cron: "0 3 * * *"},
		},
	}
}

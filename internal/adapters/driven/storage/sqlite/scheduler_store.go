package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

const (
	taskColumns   = `id, name, interval_seconds, cron, last_run, next_run, last_error, last_success, enabled`
	resultColumns = `task_id, started_at, ended_at, success, error, items_processed`

	defaultHistoryLimit = 20
)

// schedulerStore persists crawl-batch and full-reindex tasks and their run history.
type schedulerStore struct {
	store *Store
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

// GetTask returns nil and no error when the task does not exist.
func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks WHERE id = ?`, taskID)
	task, err := scanScheduledTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return task, err
}

// ListTasks returns every task ordered by ID.
func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM scheduled_tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list scheduled tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		task, err := scanScheduledTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// SaveTask inserts or replaces a task by ID.
func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil || task.ID == "" {
		return fmt.Errorf("save scheduled task: %w", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			interval_seconds = excluded.interval_seconds,
			cron = excluded.cron,
			last_run = excluded.last_run,
			next_run = excluded.next_run,
			last_error = excluded.last_error,
			last_success = excluded.last_success,
			enabled = excluded.enabled`,
		task.ID, task.Name, int64(task.Interval/time.Second), nullString(task.Cron),
		formatNullableTime(task.LastRun), formatNullableTime(task.NextRun),
		nullString(task.LastError), formatNullableTime(task.LastSuccess),
		boolToInt(task.Enabled))
	if err != nil {
		return fmt.Errorf("save scheduled task %s: %w", task.ID, err)
	}
	return nil
}

// DeleteTask removes a task. Its history is kept until pruned.
func (s *schedulerStore) DeleteTask(ctx context.Context, taskID string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("delete scheduled task %s: %w", taskID, err)
	}
	return nil
}

// RecordResult appends one run to the task history.
func (s *schedulerStore) RecordResult(ctx context.Context, result *domain.TaskResult) error {
	if result == nil || result.TaskID == "" {
		return fmt.Errorf("record task result: %w", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx,
		`INSERT INTO task_results (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		result.TaskID, formatNullableTime(result.StartedAt), formatNullableTime(result.EndedAt),
		boolToInt(result.Success), nullString(result.Error), result.ItemsProcessed)
	if err != nil {
		return fmt.Errorf("record task result for %s: %w", result.TaskID, err)
	}
	return nil
}

// GetTaskHistory returns the newest runs of a task first.
func (s *schedulerStore) GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+resultColumns+` FROM task_results
		WHERE task_id = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("task history for %s: %w", taskID, err)
	}
	defer rows.Close()

	var results []domain.TaskResult
	for rows.Next() {
		var (
			r              domain.TaskResult
			started, ended sql.NullString
			success        int
			errMsg         sql.NullString
		)
		if err := rows.Scan(&r.TaskID, &started, &ended, &success, &errMsg, &r.ItemsProcessed); err != nil {
			return nil, fmt.Errorf("scan task result: %w", err)
		}
		r.StartedAt = parseNullableTime(started)
		r.EndedAt = parseNullableTime(ended)
		r.Success = success == 1
		r.Error = errMsg.String
		results = append(results, r)
	}
	return results, rows.Err()
}

// PruneHistory keeps only the newest keep runs of each task.
func (s *schedulerStore) PruneHistory(ctx context.Context, keep int) error {
	if keep < 0 {
		return fmt.Errorf("prune task history: %w: keep must not be negative", domain.ErrInvalidInput)
	}
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM task_results
		WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
				FROM task_results
			) WHERE rn <= ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("prune task history: %w", err)
	}
	return nil
}

func scanScheduledTask(row rowScanner) (*domain.ScheduledTask, error) {
	var (
		task                                         domain.ScheduledTask
		intervalSeconds                              int64
		cron, lastRun, nextRun, lastErr, lastSuccess sql.NullString
		enabled                                      int
	)
	err := row.Scan(&task.ID, &task.Name, &intervalSeconds, &cron,
		&lastRun, &nextRun, &lastErr, &lastSuccess, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan scheduled task: %w", err)
	}

	task.Interval = time.Duration(intervalSeconds) * time.Second
	task.Cron = cron.String
	task.LastRun = parseNullableTime(lastRun)
	task.NextRun = parseNullableTime(nextRun)
	task.LastError = lastErr.String
	task.LastSuccess = parseNullableTime(lastSuccess)
	task.Enabled = enabled == 1
	return &task, nil
}

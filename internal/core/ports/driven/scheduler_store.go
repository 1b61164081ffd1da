package driven

import (
	"context"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

// SchedulerStore keeps task state across restarts so an armed crawl batch
// survives a redeploy.
type SchedulerStore interface {
	// GetTask returns (nil, nil) for an unknown ID.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)
	// SaveTask upserts by ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error
	DeleteTask(ctx context.Context, taskID string) error

	RecordResult(ctx context.Context, result *domain.TaskResult) error
	// GetTaskHistory lists runs newest first. limit <= 0 picks a default.
	GetTaskHistory(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)
	// PruneHistory keeps the newest keep runs of each task.
	PruneHistory(ctx context.Context, keep int) error
}

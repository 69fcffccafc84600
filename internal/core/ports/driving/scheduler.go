package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// Worker performs a scheduled task's work.
type Worker func(ctx context.Context) domain.WorkResult

// TaskSpec declares a named task.
type TaskSpec struct {
	ID              string
	Name            string
	Interval        time.Duration
	Periodic        bool
	RequiresNetwork bool
	Backoff         time.Duration
	MaxAttempts     int
}

// Scheduler manages named background tasks like document sync and upload.
type Scheduler interface {
	// Register declares a task. An existing schedule is kept; only the
	// worker binding is refreshed.
	Register(ctx context.Context, spec TaskSpec, worker Worker) error

	// Enqueue requests a one-shot run. It is a no-op while the task is
	// pending or running.
	Enqueue(ctx context.Context, taskID string) error

	// Tasks returns the persisted state of every task.
	Tasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error
}

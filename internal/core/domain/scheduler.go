package domain

import "time"

// Backoff bounds for retried tasks.
const (
	DefaultTaskBackoff = 10 * time.Second
	MaxTaskBackoff     = 5 * time.Hour
)

// ScheduledTask represents a named background task. Periodic tasks recur
// every Interval; one-shot tasks run once per Enqueue.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often a periodic task should run.
	Interval time.Duration

	// Periodic marks a recurring task.
	Periodic bool

	// RequiresNetwork defers the task while connectivity is missing.
	RequiresNetwork bool

	// Backoff is the initial delay after a retry result.
	Backoff time.Duration

	// MaxAttempts is the number of consecutive retries tolerated before
	// a run is treated as a failure. Zero means unlimited.
	MaxAttempts int

	// Attempts counts consecutive retry results.
	Attempts int

	// Pending marks a queued one-shot run.
	Pending bool

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// IsDue reports whether the task should run at now.
func (t *ScheduledTask) IsDue(now time.Time) bool {
	if t.Pending {
		return !t.NextRun.After(now)
	}
	return t.Enabled && !t.NextRun.IsZero() && !t.NextRun.After(now)
}

// BackoffDelay returns the delay before the next retry, doubling from
// Backoff for each consecutive attempt and capped at MaxTaskBackoff.
func (t *ScheduledTask) BackoffDelay() time.Duration {
	base := t.Backoff
	if base <= 0 {
		base = DefaultTaskBackoff
	}
	delay := base
	for i := 1; i < t.Attempts; i++ {
		delay *= 2
		if delay >= MaxTaskBackoff {
			return MaxTaskBackoff
		}
	}
	if delay > MaxTaskBackoff {
		return MaxTaskBackoff
	}
	return delay
}

// AttemptsExhausted reports whether the retry budget is spent.
func (t *ScheduledTask) AttemptsExhausted() bool {
	return t.MaxAttempts > 0 && t.Attempts >= t.MaxAttempts
}

// TaskResult represents the outcome of a task execution.
type TaskResult struct {
	// TaskID identifies which task was run.
	TaskID string

	// StartedAt is when the task started.
	StartedAt time.Time

	// EndedAt is when the task completed.
	EndedAt time.Time

	// Outcome is the worker's result.
	Outcome WorkResult

	// Success indicates whether the task completed without error.
	Success bool

	// Error contains the error message if Success is false.
	Error string

	// ItemsProcessed is a count of items handled (e.g., documents synced).
	ItemsProcessed int
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// Tick is how often the scheduler checks for due tasks.
	Tick time.Duration

	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		Tick:    15 * time.Second,
		TaskConfigs: map[string]TaskConfig{
			TaskIDDocumentSync: {
				Enabled:  true,
				Interval: 15 * time.Minute,
			},
			TaskIDDocumentUpload: {
				Enabled:  true,
				Interval: 15 * time.Minute,
			},
		},
	}
}

// Task IDs for built-in tasks.
const (
	TaskIDDocumentSync   = "document-sync"
	TaskIDDocumentUpload = "document-upload"
)

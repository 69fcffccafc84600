package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyLimit is the number of results kept per task.
const historyLimit = 100

// Scheduler manages background task execution.
// Task state is persisted so schedules and retry counts survive restarts.
type Scheduler struct {
	config domain.SchedulerConfig
	store  driven.SchedulerStore
	conn   driven.ConnectivityObserver
	now    func() time.Time

	mu      sync.Mutex
	workers map[string]driving.Worker
	active  map[string]bool
	running bool
	stopCh  chan struct{}
	wakeCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration. A nil conn treats
// the network as always available.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	conn driven.ConnectivityObserver,
) *Scheduler {
	if config.Tick <= 0 {
		config.Tick = domain.DefaultSchedulerConfig().Tick
	}
	return &Scheduler{
		config:  config,
		store:   store,
		conn:    conn,
		now:     time.Now,
		workers: make(map[string]driving.Worker),
		active:  make(map[string]bool),
		wakeCh:  make(chan struct{}, 1),
	}
}

// Register declares a task and binds its worker. A task already in the
// store keeps its schedule, attempts and pending flag; only its
// declared fields are refreshed.
func (s *Scheduler) Register(ctx context.Context, spec driving.TaskSpec, worker driving.Worker) error {
	if spec.ID == "" || worker == nil {
		return fmt.Errorf("%w: task needs an id and a worker", domain.ErrInvalidInput)
	}

	enabled := true
	if cfg, ok := s.config.TaskConfigs[spec.ID]; ok {
		enabled = cfg.Enabled
		if cfg.Interval > 0 {
			spec.Interval = cfg.Interval
		}
	}
	if spec.Periodic && spec.Interval <= 0 {
		return fmt.Errorf("%w: periodic task %s needs an interval", domain.ErrInvalidInput, spec.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.store.GetTask(ctx, spec.ID)
	if err != nil {
		return fmt.Errorf("get task %s: %w", spec.ID, err)
	}
	if task == nil {
		task = &domain.ScheduledTask{ID: spec.ID}
		if spec.Periodic {
			task.NextRun = s.now().Add(spec.Interval)
		}
	}
	task.Name = spec.Name
	task.Interval = spec.Interval
	task.Periodic = spec.Periodic
	task.RequiresNetwork = spec.RequiresNetwork
	task.Backoff = spec.Backoff
	task.MaxAttempts = spec.MaxAttempts
	task.Enabled = spec.Periodic && enabled

	if err := s.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("save task %s: %w", spec.ID, err)
	}
	s.workers[spec.ID] = worker
	return nil
}

// Enqueue requests a one-shot run as soon as the task's constraints
// allow. It is a no-op while the task is pending or running.
func (s *Scheduler) Enqueue(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[taskID] {
		return nil
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task %s: %w", taskID, err)
	}
	if task == nil {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if task.Pending {
		return nil
	}

	task.Pending = true
	task.NextRun = s.now()
	if err := s.store.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("save task %s: %w", taskID, err)
	}

	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
	return nil
}

// Tasks returns the persisted state of every task.
func (s *Scheduler) Tasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return s.store.ListTasks(ctx)
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

	if !s.config.Enabled {
		logger.Info("Scheduler disabled, only queued runs will execute")
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

// Wait blocks until every running task has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-s.wakeCh:
			s.checkAndRunDueTasks(ctx)
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// RunDue starts every due task once and returns without waiting.
func (s *Scheduler) RunDue(ctx context.Context) {
	s.checkAndRunDueTasks(ctx)
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list tasks: %v", err)
		return
	}

	now := s.now()
	for i := range tasks {
		task := tasks[i]
		if !task.IsDue(now) {
			continue
		}
		if !task.Pending && !s.config.Enabled {
			continue
		}
		if task.RequiresNetwork && s.conn != nil && !s.conn.IsConnected() {
			logger.Debug("scheduler: %s deferred until network is available", task.ID)
			continue
		}
		worker, ok := s.claim(task.ID)
		if !ok {
			continue
		}
		s.runTask(ctx, task, worker)
	}
}

// claim marks a task active. It fails for unregistered or running tasks.
func (s *Scheduler) claim(taskID string) (driving.Worker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	worker, ok := s.workers[taskID]
	if !ok || s.active[taskID] {
		return nil, false
	}
	s.active[taskID] = true
	return worker, true
}

func (s *Scheduler) release(taskID string) {
	s.mu.Lock()
	delete(s.active, taskID)
	s.mu.Unlock()
}

// runTask executes a single task.
func (s *Scheduler) runTask(ctx context.Context, task domain.ScheduledTask, worker driving.Worker) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(task.ID)

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: s.now(),
		}
		logger.Debug("scheduler: running %s", task.ID)

		outcome := invokeWorker(ctx, worker)
		result.EndedAt = s.now()
		result.Outcome = outcome
		result.Success = outcome == domain.WorkSuccess

		s.mu.Lock()
		if current, err := s.store.GetTask(ctx, task.ID); err == nil && current != nil {
			task = *current
		}
		applyOutcome(&task, outcome, result.StartedAt, result.EndedAt)
		if saveErr := s.store.SaveTask(ctx, &task); saveErr != nil {
			logger.Error("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}
		s.mu.Unlock()

		if !result.Success {
			result.Error = task.LastError
		}

		// Record result for history
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Error("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		if pruneErr := s.store.PruneHistory(ctx, historyLimit); pruneErr != nil {
			logger.Error("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// invokeWorker runs a worker, treating a panic as a failure.
func invokeWorker(ctx context.Context, worker driving.Worker) (result domain.WorkResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduler: worker panicked: %v", r)
			result = domain.WorkFailure
		}
	}()
	result = worker(ctx)
	if !result.IsValid() {
		return domain.WorkFailure
	}
	return result
}

// applyOutcome advances a task's schedule after a run.
func applyOutcome(task *domain.ScheduledTask, outcome domain.WorkResult, started, ended time.Time) {
	task.LastRun = started

	switch outcome {
	case domain.WorkSuccess:
		task.Attempts = 0
		task.LastError = ""
		task.LastSuccess = ended
		task.Pending = false
		reschedule(task, ended)

	case domain.WorkRetry:
		task.Attempts++
		if task.AttemptsExhausted() {
			task.LastError = fmt.Sprintf("gave up after %d attempts", task.Attempts)
			task.Attempts = 0
			task.Pending = false
			reschedule(task, ended)
			return
		}
		task.LastError = fmt.Sprintf("retry %d scheduled", task.Attempts)
		task.NextRun = ended.Add(task.BackoffDelay())

	default:
		task.LastError = "worker reported failure"
		task.Attempts = 0
		task.Pending = false
		reschedule(task, ended)
	}
}

func reschedule(task *domain.ScheduledTask, from time.Time) {
	if task.Periodic {
		task.NextRun = from.Add(task.Interval)
		return
	}
	task.NextRun = time.Time{}
}

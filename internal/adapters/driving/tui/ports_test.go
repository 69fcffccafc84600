package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// MockSyncOrchestrator implements driving.SyncOrchestrator for testing.
type MockSyncOrchestrator struct {
	SyncFunc   func(ctx context.Context) error
	StatusFunc func(ctx context.Context) (*driving.SyncStatus, error)
}

func (m *MockSyncOrchestrator) PerformFullSync(ctx context.Context) error {
	if m.SyncFunc != nil {
		return m.SyncFunc(ctx)
	}
	return nil
}

func (m *MockSyncOrchestrator) Status(ctx context.Context) (*driving.SyncStatus, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &driving.SyncStatus{}, nil
}

// MockQueueService implements driving.QueueService for testing.
type MockQueueService struct {
	CountsFunc func(ctx context.Context) (*driving.QueueCounts, error)
}

func (m *MockQueueService) EnqueueUpload(_ context.Context, _ *domain.PendingUpload) error {
	return nil
}

func (m *MockQueueService) ListUploads(_ context.Context, _ domain.UploadStatus) ([]domain.PendingUpload, error) {
	return nil, nil
}

func (m *MockQueueService) RetryUpload(_ context.Context, _ int64) error { return nil }

func (m *MockQueueService) DiscardUpload(_ context.Context, _ int64) error { return nil }

func (m *MockQueueService) PruneCompleted(_ context.Context) (int, error) { return 0, nil }

func (m *MockQueueService) RecoverInterrupted(_ context.Context) (int, error) { return 0, nil }

func (m *MockQueueService) ListPendingChanges(_ context.Context) ([]domain.PendingChange, error) {
	return nil, nil
}

func (m *MockQueueService) RetryPendingChange(_ context.Context, _ int64) error { return nil }

func (m *MockQueueService) DiscardPendingChange(_ context.Context, _ int64) error { return nil }

func (m *MockQueueService) Counts(ctx context.Context) (*driving.QueueCounts, error) {
	if m.CountsFunc != nil {
		return m.CountsFunc(ctx)
	}
	return &driving.QueueCounts{}, nil
}

// MockHealthMonitor implements driving.HealthMonitor for testing.
type MockHealthMonitor struct {
	mu         sync.Mutex
	status     domain.ServerStatus
	checked    domain.ServerStatus
	foreground bool
	updates    chan domain.ServerStatus
}

func NewMockHealthMonitor(status domain.ServerStatus) *MockHealthMonitor {
	return &MockHealthMonitor{status: status, checked: status, updates: make(chan domain.ServerStatus, 1)}
}

func (m *MockHealthMonitor) CheckServerHealth(_ context.Context) domain.ServerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = m.checked
	return m.checked
}

func (m *MockHealthMonitor) Status() domain.ServerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *MockHealthMonitor) IsReachable() bool { return m.Status().IsOnline() }

func (m *MockHealthMonitor) NextDelay() time.Duration { return time.Minute }

func (m *MockHealthMonitor) SetForeground(foreground bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.foreground = foreground
}

func (m *MockHealthMonitor) Foreground() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.foreground
}

func (m *MockHealthMonitor) Subscribe(_ context.Context) <-chan domain.ServerStatus {
	return m.updates
}

func (m *MockHealthMonitor) Start(_ context.Context) error { return nil }

func (m *MockHealthMonitor) Stop() error { return nil }

// MockUploadAgent implements driving.UploadAgent for testing.
type MockUploadAgent struct {
	Result   domain.WorkResult
	Progress driving.UploadProgressFunc
}

func (m *MockUploadAgent) DoWork(_ context.Context) domain.WorkResult {
	if m.Progress != nil {
		m.Progress(1, 50, 100)
	}
	return m.Result
}

func (m *MockUploadAgent) SetProgress(fn driving.UploadProgressFunc) {
	m.Progress = fn
}

// MockPendingCounter implements driving.PendingCounter for testing.
type MockPendingCounter struct {
	count   int
	updates chan int
}

func (m *MockPendingCounter) Count() int { return m.count }

func (m *MockPendingCounter) Subscribe(_ context.Context) <-chan int { return m.updates }

func (m *MockPendingCounter) Run(_ context.Context) error { return nil }

func TestPorts_Validate(t *testing.T) {
	t.Run("all required ports set", func(t *testing.T) {
		ports := &Ports{Sync: &MockSyncOrchestrator{}, Queue: &MockQueueService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("missing sync orchestrator", func(t *testing.T) {
		ports := &Ports{Queue: &MockQueueService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingSyncOrchestrator)
	})

	t.Run("missing queue service", func(t *testing.T) {
		ports := &Ports{Sync: &MockSyncOrchestrator{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingQueueService)
	})

	t.Run("optional ports may be set", func(t *testing.T) {
		ports := &Ports{
			Sync:    &MockSyncOrchestrator{},
			Queue:   &MockQueueService{},
			Health:  NewMockHealthMonitor(domain.UnknownStatus()),
			Uploads: &MockUploadAgent{},
			Pending: &MockPendingCounter{},
		}
		assert.NoError(t, ports.Validate())
	})
}

package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// mockSyncOrchestrator is a mock implementation of driving.SyncOrchestrator.
type mockSyncOrchestrator struct {
	syncErr   error
	status    *driving.SyncStatus
	statusErr error
	calls     int
}

func (m *mockSyncOrchestrator) PerformFullSync(_ context.Context) error {
	m.calls++
	return m.syncErr
}

func (m *mockSyncOrchestrator) Status(_ context.Context) (*driving.SyncStatus, error) {
	return m.status, m.statusErr
}

// mockQueueService is a mock implementation of driving.QueueService.
type mockQueueService struct {
	uploads []domain.PendingUpload
	changes []domain.PendingChange
	counts  driving.QueueCounts
	err     error
}

func (m *mockQueueService) EnqueueUpload(_ context.Context, _ *domain.PendingUpload) error {
	return m.err
}

func (m *mockQueueService) ListUploads(
	_ context.Context, status domain.UploadStatus,
) ([]domain.PendingUpload, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.PendingUpload
	for _, u := range m.uploads {
		if status == "" || u.Status == status {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockQueueService) RetryUpload(_ context.Context, _ int64) error { return m.err }
func (m *mockQueueService) DiscardUpload(_ context.Context, _ int64) error { return m.err }

func (m *mockQueueService) PruneCompleted(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockQueueService) RecoverInterrupted(_ context.Context) (int, error) {
	return 0, m.err
}

func (m *mockQueueService) ListPendingChanges(_ context.Context) ([]domain.PendingChange, error) {
	return m.changes, m.err
}

func (m *mockQueueService) RetryPendingChange(_ context.Context, _ int64) error { return m.err }
func (m *mockQueueService) DiscardPendingChange(_ context.Context, _ int64) error { return m.err }

func (m *mockQueueService) Counts(_ context.Context) (*driving.QueueCounts, error) {
	if m.err != nil {
		return nil, m.err
	}
	counts := m.counts
	return &counts, nil
}

// mockUploadAgent is a mock implementation of driving.UploadAgent.
type mockUploadAgent struct {
	result domain.WorkResult
	calls  int
}

func (m *mockUploadAgent) DoWork(_ context.Context) domain.WorkResult {
	m.calls++
	return m.result
}

func (m *mockUploadAgent) SetProgress(_ driving.UploadProgressFunc) {}

// mockHealthMonitor is a mock implementation of driving.HealthMonitor.
type mockHealthMonitor struct {
	status    domain.ServerStatus
	checked   domain.ServerStatus
	reachable bool
	checks    int
}

func (m *mockHealthMonitor) CheckServerHealth(_ context.Context) domain.ServerStatus {
	m.checks++
	m.status = m.checked
	return m.checked
}

func (m *mockHealthMonitor) Status() domain.ServerStatus { return m.status }
func (m *mockHealthMonitor) IsReachable() bool { return m.reachable }
func (m *mockHealthMonitor) NextDelay() time.Duration { return time.Minute }
func (m *mockHealthMonitor) SetForeground(_ bool) {}

func (m *mockHealthMonitor) Subscribe(ctx context.Context) <-chan domain.ServerStatus {
	ch := make(chan domain.ServerStatus)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func (m *mockHealthMonitor) Start(_ context.Context) error { return nil }
func (m *mockHealthMonitor) Stop() error { return nil }

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) ListDocuments(_ context.Context, _ bool) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) GetDocument(_ context.Context, _ int64) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) UpdateDocument(_ context.Context, _ int64, _ domain.DocumentPatch) error {
	return m.err
}

func (m *mockDocumentService) DeleteDocument(_ context.Context, _ int64) error { return m.err }
func (m *mockDocumentService) CreateTag(_ context.Context, _ string) error { return m.err }
func (m *mockDocumentService) CreateCorrespondent(_ context.Context, _ string) error { return m.err }
func (m *mockDocumentService) CreateDocumentType(_ context.Context, _ string) error { return m.err }
func (m *mockDocumentService) RestoreFromTrash(_ context.Context, _ []int64) error { return m.err }
func (m *mockDocumentService) EmptyTrash(_ context.Context, _ []int64) error { return m.err }
func (m *mockDocumentService) SweepExpiredTrash(_ context.Context) (int, error) { return 0, m.err }

func newTestPorts() *Ports {
	return &Ports{
		Sync:  &mockSyncOrchestrator{},
		Queue: &mockQueueService{},
	}
}

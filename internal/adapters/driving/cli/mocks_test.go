package cli

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// mockSyncOrchestrator implements driving.SyncOrchestrator for testing.
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
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	if m.status == nil {
		return &driving.SyncStatus{}, nil
	}
	return m.status, nil
}

// mockQueueService implements driving.QueueService for testing.
type mockQueueService struct {
	uploads   []domain.PendingUpload
	changes   []domain.PendingChange
	enqueued  []*domain.PendingUpload
	retried   []int64
	discard   []int64
	pruned    int
	recovered int
	err       error
}

func (m *mockQueueService) EnqueueUpload(_ context.Context, upload *domain.PendingUpload) error {
	if m.err != nil {
		return m.err
	}
	if err := upload.Validate(); err != nil {
		return err
	}
	upload.ID = int64(len(m.enqueued) + 1)
	m.enqueued = append(m.enqueued, upload)
	return nil
}

func (m *mockQueueService) ListUploads(_ context.Context, status domain.UploadStatus) ([]domain.PendingUpload, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.PendingUpload
	for i := range m.uploads {
		if status == "" || m.uploads[i].Status == status {
			out = append(out, m.uploads[i])
		}
	}
	return out, nil
}

func (m *mockQueueService) RetryUpload(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	m.retried = append(m.retried, id)
	return nil
}

func (m *mockQueueService) DiscardUpload(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	m.discard = append(m.discard, id)
	return nil
}

func (m *mockQueueService) PruneCompleted(_ context.Context) (int, error) {
	return m.pruned, m.err
}

func (m *mockQueueService) RecoverInterrupted(_ context.Context) (int, error) {
	m.recovered++
	return 0, m.err
}

func (m *mockQueueService) ListPendingChanges(_ context.Context) ([]domain.PendingChange, error) {
	return m.changes, m.err
}

func (m *mockQueueService) RetryPendingChange(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	m.retried = append(m.retried, id)
	return nil
}

func (m *mockQueueService) DiscardPendingChange(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	m.discard = append(m.discard, id)
	return nil
}

func (m *mockQueueService) Counts(_ context.Context) (*driving.QueueCounts, error) {
	if m.err != nil {
		return nil, m.err
	}
	counts := &driving.QueueCounts{PendingChanges: len(m.changes)}
	for i := range m.uploads {
		switch m.uploads[i].Status {
		case domain.UploadPending:
			counts.Uploads.Pending++
		case domain.UploadUploading:
			counts.Uploads.Uploading++
		case domain.UploadCompleted:
			counts.Uploads.Completed++
		case domain.UploadFailed:
			counts.Uploads.Failed++
		}
	}
	return counts, nil
}

// mockUploadAgent implements driving.UploadAgent for testing.
type mockUploadAgent struct {
	result   domain.WorkResult
	calls    int
	progress driving.UploadProgressFunc
}

func (m *mockUploadAgent) DoWork(_ context.Context) domain.WorkResult {
	m.calls++
	if m.progress != nil {
		m.progress(1, 100, 100)
	}
	return m.result
}

func (m *mockUploadAgent) SetProgress(fn driving.UploadProgressFunc) {
	m.progress = fn
}

// mockHealthMonitor implements driving.HealthMonitor for testing.
type mockHealthMonitor struct {
	mu         sync.Mutex
	status     domain.ServerStatus
	checked    domain.ServerStatus
	foreground bool
	started    bool
}

func (m *mockHealthMonitor) CheckServerHealth(_ context.Context) domain.ServerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = m.checked
	return m.checked
}

func (m *mockHealthMonitor) Status() domain.ServerStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *mockHealthMonitor) IsReachable() bool { return m.Status().IsOnline() }

func (m *mockHealthMonitor) NextDelay() time.Duration { return time.Minute }

func (m *mockHealthMonitor) SetForeground(foreground bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.foreground = foreground
}

func (m *mockHealthMonitor) Subscribe(ctx context.Context) <-chan domain.ServerStatus {
	ch := make(chan domain.ServerStatus)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func (m *mockHealthMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockHealthMonitor) Stop() error { return nil }

func (m *mockHealthMonitor) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings domain.Settings
	values   map[string]any
	setErr   error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultSettings(), values: make(map[string]any)}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) SetServer(url string, scheme domain.AuthScheme) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.settings.Server.URL = url
	m.settings.Server.AuthScheme = scheme
	return nil
}

func (m *mockSettingsService) SetToken(token string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.settings.Server.Token = token
	return nil
}

func (m *mockSettingsService) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.settings.Server.Validate()
}

func (m *mockSettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// mockDocumentService implements driving.DocumentService for testing.
type mockDocumentService struct {
	docs     []domain.Document
	deleted  []int64
	patches  map[int64]domain.DocumentPatch
	restored []int64
	emptied  []int64
	created  []string
	err      error
}

func (m *mockDocumentService) ListDocuments(_ context.Context, _ bool) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockDocumentService) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) UpdateDocument(_ context.Context, id int64, patch domain.DocumentPatch) error {
	if m.err != nil {
		return m.err
	}
	if m.patches == nil {
		m.patches = make(map[int64]domain.DocumentPatch)
	}
	m.patches[id] = patch
	return nil
}

func (m *mockDocumentService) DeleteDocument(_ context.Context, id int64) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDocumentService) CreateTag(_ context.Context, name string) error {
	return m.create("tag", name)
}

func (m *mockDocumentService) CreateCorrespondent(_ context.Context, name string) error {
	return m.create("correspondent", name)
}

func (m *mockDocumentService) CreateDocumentType(_ context.Context, name string) error {
	return m.create("document-type", name)
}

func (m *mockDocumentService) create(kind, name string) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, fmt.Sprintf("%s:%s", kind, name))
	return nil
}

func (m *mockDocumentService) RestoreFromTrash(_ context.Context, ids []int64) error {
	if m.err != nil {
		return m.err
	}
	m.restored = append(m.restored, ids...)
	return nil
}

func (m *mockDocumentService) EmptyTrash(_ context.Context, ids []int64) error {
	if m.err != nil {
		return m.err
	}
	m.emptied = append(m.emptied, ids...)
	return nil
}

func (m *mockDocumentService) SweepExpiredTrash(_ context.Context) (int, error) {
	return 0, m.err
}

// mockScheduler implements driving.Scheduler for testing.
type mockScheduler struct {
	mu         sync.Mutex
	tasks      []domain.ScheduledTask
	registered []string
	started    chan struct{}
}

func (m *mockScheduler) Register(_ context.Context, spec driving.TaskSpec, _ driving.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registered = append(m.registered, spec.ID)
	return nil
}

func (m *mockScheduler) Enqueue(_ context.Context, _ string) error { return nil }

func (m *mockScheduler) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, nil
}

func (m *mockScheduler) Start(ctx context.Context) error {
	if m.started != nil {
		close(m.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error { return nil }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	sync      *mockSyncOrchestrator
	queue     *mockQueueService
	uploads   *mockUploadAgent
	health    *mockHealthMonitor
	settings  *mockSettingsService
	documents *mockDocumentService
	scheduler *mockScheduler
}

// setupTestServices installs fresh mocks and returns them with a cleanup.
func setupTestServices() (*testServices, func()) {
	old := &Services{
		Settings:     settingsService,
		Sync:         syncOrchestrator,
		Documents:    documentService,
		Queue:        queueService,
		Uploads:      uploadAgent,
		Health:       healthMonitor,
		Scheduler:    scheduler,
		Pending:      pendingCounter,
		Connectivity: connObserver,
		ObtainToken:  obtainToken,
		Tasks:        scheduledTasks,
		Close:        closeFn,
	}

	ts := &testServices{
		sync:      &mockSyncOrchestrator{},
		queue:     &mockQueueService{},
		uploads:   &mockUploadAgent{result: domain.WorkSuccess},
		health:    &mockHealthMonitor{status: domain.UnknownStatus(), checked: domain.UnknownStatus()},
		settings:  newMockSettingsService(),
		documents: &mockDocumentService{},
		scheduler: &mockScheduler{},
	}
	Configure(&Services{
		Settings:  ts.settings,
		Sync:      ts.sync,
		Documents: ts.documents,
		Queue:     ts.queue,
		Uploads:   ts.uploads,
		Health:    ts.health,
		Scheduler: ts.scheduler,
	})

	return ts, func() {
		Configure(old)
	}
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(args ...string) (string, error) {
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default so values do not leak
// between executions of the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

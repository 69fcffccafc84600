package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

func TestServer_handleSyncNow(t *testing.T) {
	ctx := context.Background()
	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("runs a cycle and reports status", func(t *testing.T) {
		sync := &mockSyncOrchestrator{status: &driving.SyncStatus{
			LastFullSync:     last,
			DocumentsSynced:  42,
			DocumentsRemoved: 2,
			PendingChanges:   1,
		}}
		server, err := NewServer(&Ports{Sync: sync, Queue: &mockQueueService{}})
		require.NoError(t, err)

		_, output, err := server.handleSyncNow(ctx, nil, SyncNowInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, sync.calls)
		assert.False(t, output.AlreadyRunning)
		assert.Equal(t, "2026-03-01T12:00:00Z", output.LastFullSync)
		assert.Equal(t, 42, output.DocumentsSynced)
		assert.Equal(t, 2, output.DocumentsRemoved)
		assert.Equal(t, 1, output.PendingChanges)
	})

	t.Run("cycle in progress is not an error", func(t *testing.T) {
		sync := &mockSyncOrchestrator{
			syncErr: domain.ErrSyncInProgress,
			status:  &driving.SyncStatus{Running: true},
		}
		server, err := NewServer(&Ports{Sync: sync, Queue: &mockQueueService{}})
		require.NoError(t, err)

		_, output, err := server.handleSyncNow(ctx, nil, SyncNowInput{})

		require.NoError(t, err)
		assert.True(t, output.AlreadyRunning)
		assert.Empty(t, output.LastFullSync)
	})

	t.Run("returns error on sync failure", func(t *testing.T) {
		sync := &mockSyncOrchestrator{syncErr: errors.New("pull failed")}
		server, err := NewServer(&Ports{Sync: sync, Queue: &mockQueueService{}})
		require.NoError(t, err)

		_, _, err = server.handleSyncNow(ctx, nil, SyncNowInput{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "pull failed")
	})
}

func TestServer_handleUploadNow(t *testing.T) {
	ctx := context.Background()

	t.Run("drains the queue and reports counts", func(t *testing.T) {
		agent := &mockUploadAgent{result: domain.WorkSuccess}
		queue := &mockQueueService{counts: driving.QueueCounts{
			Uploads: domain.UploadCounts{Pending: 0, Failed: 1},
		}}
		server, err := NewServer(&Ports{Sync: &mockSyncOrchestrator{}, Queue: queue, Uploads: agent})
		require.NoError(t, err)

		_, output, err := server.handleUploadNow(ctx, nil, UploadNowInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, agent.calls)
		assert.Equal(t, "success", output.Result)
		assert.Equal(t, 1, output.Failed)
	})

	t.Run("missing agent returns error", func(t *testing.T) {
		server, err := NewServer(newTestPorts())
		require.NoError(t, err)

		_, _, err = server.handleUploadNow(ctx, nil, UploadNowInput{})

		assert.ErrorIs(t, err, ErrUploadsUnavailable)
	})
}

func TestServer_handleQueueStatus(t *testing.T) {
	ctx := context.Background()
	msg := "HTTP 500"
	entityID := int64(7)

	queue := &mockQueueService{
		counts: driving.QueueCounts{
			Uploads:        domain.UploadCounts{Pending: 2, Uploading: 1, Completed: 3, Failed: 1},
			PendingChanges: 1,
		},
		uploads: []domain.PendingUpload{
			{ID: 1, URI: "/scans/a.pdf", Status: domain.UploadPending},
			{ID: 2, URI: "/scans/b-1.jpg", AdditionalURIs: []string{"/scans/b-2.jpg"},
				Status: domain.UploadFailed, RetryCount: 2, ErrorMessage: "timeout"},
		},
		changes: []domain.PendingChange{
			{ID: 9, EntityType: domain.EntityDocument, EntityID: &entityID,
				ChangeType: domain.ChangeUpdate, SyncAttempts: 3, LastError: &msg},
		},
	}

	t.Run("counts only by default", func(t *testing.T) {
		server, err := NewServer(&Ports{Sync: &mockSyncOrchestrator{}, Queue: queue})
		require.NoError(t, err)

		_, output, err := server.handleQueueStatus(ctx, nil, QueueStatusInput{})

		require.NoError(t, err)
		assert.Equal(t, UploadCountsOutput{Pending: 2, Uploading: 1, Completed: 3, Failed: 1}, output.Uploads)
		assert.Equal(t, 1, output.PendingChanges)
		assert.Empty(t, output.FailedUploads)
		assert.Empty(t, output.Changes)
	})

	t.Run("include items lists failures", func(t *testing.T) {
		server, err := NewServer(&Ports{Sync: &mockSyncOrchestrator{}, Queue: queue})
		require.NoError(t, err)

		_, output, err := server.handleQueueStatus(ctx, nil, QueueStatusInput{IncludeItems: true})

		require.NoError(t, err)
		require.Len(t, output.FailedUploads, 1)
		assert.Equal(t, int64(2), output.FailedUploads[0].ID)
		assert.Equal(t, 2, output.FailedUploads[0].Pages)
		assert.Equal(t, "timeout", output.FailedUploads[0].Error)
		require.Len(t, output.Changes, 1)
		assert.Equal(t, "update", output.Changes[0].ChangeType)
		assert.Equal(t, "HTTP 500", output.Changes[0].LastError)
		assert.Equal(t, &entityID, output.Changes[0].EntityID)
	})

	t.Run("returns error on queue failure", func(t *testing.T) {
		server, err := NewServer(&Ports{
			Sync:  &mockSyncOrchestrator{},
			Queue: &mockQueueService{err: errors.New("database locked")},
		})
		require.NoError(t, err)

		_, _, err = server.handleQueueStatus(ctx, nil, QueueStatusInput{})

		assert.Error(t, err)
	})
}

func TestServer_handleServerStatus(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("unknown status triggers a probe", func(t *testing.T) {
		health := &mockHealthMonitor{
			status:    domain.UnknownStatus(),
			checked:   domain.OnlineStatus(at),
			reachable: true,
		}
		ports := newTestPorts()
		ports.Health = health
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleServerStatus(ctx, nil, ServerStatusInput{})

		require.NoError(t, err)
		assert.Equal(t, 1, health.checks)
		assert.Equal(t, "online", output.Status)
		assert.Equal(t, "2026-03-01T09:30:00Z", output.CheckedAt)
		assert.True(t, output.Reachable)
	})

	t.Run("known status is returned without probing", func(t *testing.T) {
		health := &mockHealthMonitor{status: domain.OfflineStatus(domain.ReasonVPNRequired)}
		ports := newTestPorts()
		ports.Health = health
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleServerStatus(ctx, nil, ServerStatusInput{})

		require.NoError(t, err)
		assert.Equal(t, 0, health.checks)
		assert.Equal(t, "offline", output.Status)
		assert.Equal(t, "vpn-required", output.Reason)
		assert.Contains(t, output.Description, "VPN")
		assert.False(t, output.Reachable)
	})

	t.Run("check forces a probe", func(t *testing.T) {
		health := &mockHealthMonitor{
			status:  domain.OnlineStatus(at),
			checked: domain.OfflineStatus(domain.ReasonTimeout),
		}
		ports := newTestPorts()
		ports.Health = health
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleServerStatus(ctx, nil, ServerStatusInput{Check: true})

		require.NoError(t, err)
		assert.Equal(t, 1, health.checks)
		assert.Equal(t, "timeout", output.Reason)
	})

	t.Run("missing monitor returns error", func(t *testing.T) {
		server, err := NewServer(newTestPorts())
		require.NoError(t, err)

		_, _, err = server.handleServerStatus(ctx, nil, ServerStatusInput{})

		assert.ErrorIs(t, err, ErrHealthUnavailable)
	})
}

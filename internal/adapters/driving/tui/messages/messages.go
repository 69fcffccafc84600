// Package messages defines Bubbletea message types for the status dashboard.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// StatusLoaded carries the sync summary and queue counters.
type StatusLoaded struct {
	Sync   *driving.SyncStatus
	Queues *driving.QueueCounts
	Err    error
}

// ServerStatusChanged is sent when the health monitor publishes a new status.
type ServerStatusChanged struct {
	Status domain.ServerStatus
}

// PendingCountChanged is sent when the number of unpushed changes changes.
type PendingCountChanged struct {
	Count int
}

// SyncRequested is a command to run a full sync cycle.
type SyncRequested struct{}

// SyncFinished signals a sync cycle requested from the dashboard ended.
type SyncFinished struct {
	Err error
}

// UploadRequested is a command to drain the upload queue.
type UploadRequested struct{}

// UploadFinished signals an upload run requested from the dashboard ended.
type UploadFinished struct {
	Result domain.WorkResult
}

// UploadProgress reports bytes sent for one upload.
type UploadProgress struct {
	UploadID int64
	Sent     int64
	Total    int64
}

// Tick triggers a periodic refresh.
type Tick struct {
	At time.Time
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

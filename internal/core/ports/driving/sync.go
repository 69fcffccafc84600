package driving

import (
	"context"
	"time"
)

// SyncOrchestrator runs full synchronisation cycles.
type SyncOrchestrator interface {
	// PerformFullSync pushes pending changes then refreshes every collection.
	// Returns domain.ErrSyncInProgress if a cycle is already running.
	PerformFullSync(ctx context.Context) error

	// Status returns the outcome of the most recent cycle.
	Status(ctx context.Context) (*SyncStatus, error)
}

// SyncStatus summarises sync state for display.
type SyncStatus struct {
	// Running indicates if a cycle is currently in progress.
	Running bool

	// LastFullSync is when the last successful cycle finished.
	LastFullSync time.Time

	// DocumentsSynced is the document count seen by the last cycle.
	DocumentsSynced int

	// DocumentsRemoved is the orphan count removed by the last cycle.
	DocumentsRemoved int

	// PendingChanges is the number of unpushed local mutations.
	PendingChanges int
}

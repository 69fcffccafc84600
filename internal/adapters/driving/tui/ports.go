// Package tui provides the terminal status dashboard for docsync.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the dashboard.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Sync runs and reports full sync cycles.
	Sync driving.SyncOrchestrator

	// Queue reports upload and change queue counters.
	Queue driving.QueueService

	// Health publishes server reachability. Optional.
	Health driving.HealthMonitor

	// Uploads drains the upload queue. Optional.
	Uploads driving.UploadAgent

	// Pending publishes the pending change count. Optional.
	Pending driving.PendingCounter
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Sync == nil {
		return ErrMissingSyncOrchestrator
	}
	if p.Queue == nil {
		return ErrMissingQueueService
	}
	return nil
}

package mcp

import (
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Sync runs full synchronisation cycles.
	Sync driving.SyncOrchestrator

	// Queue inspects the upload and change queues.
	Queue driving.QueueService

	// Uploads drains the upload queue.
	Uploads driving.UploadAgent

	// Health reports server reachability.
	Health driving.HealthMonitor

	// Documents reads the local replica.
	Documents driving.DocumentService
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
	// Uploads, Health and Documents are optional
	return nil
}

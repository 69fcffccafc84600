package tui

import "errors"

// ErrMissingSyncOrchestrator is returned when the sync orchestrator is not provided.
var ErrMissingSyncOrchestrator = errors.New("tui: sync orchestrator is required")

// ErrMissingQueueService is returned when the queue service is not provided.
var ErrMissingQueueService = errors.New("tui: queue service is required")

// ErrUploadsUnavailable is shown when an upload is requested without an upload agent.
var ErrUploadsUnavailable = errors.New("uploads are not available: server not configured")

// Package mcp provides an MCP (Model Context Protocol) server adapter for docsync.
// It lets AI assistants trigger syncs and uploads and inspect the local replica.
package mcp

import "errors"

// ErrMissingSyncOrchestrator is returned when the sync orchestrator is not provided.
var ErrMissingSyncOrchestrator = errors.New("mcp: sync orchestrator is required")

// ErrMissingQueueService is returned when the queue service is not provided.
var ErrMissingQueueService = errors.New("mcp: queue service is required")

// ErrUploadsUnavailable is returned by upload_now when no upload agent is wired.
var ErrUploadsUnavailable = errors.New("mcp: upload agent not configured")

// ErrHealthUnavailable is returned by server_status when no health monitor is wired.
var ErrHealthUnavailable = errors.New("mcp: health monitor not configured")

package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// SyncNowInput is the input schema for the sync_now tool.
type SyncNowInput struct{}

// SyncNowOutput is the output schema for the sync_now tool.
type SyncNowOutput struct {
	AlreadyRunning   bool   `json:"already_running"`
	LastFullSync     string `json:"last_full_sync,omitempty"`
	DocumentsSynced  int    `json:"documents_synced"`
	DocumentsRemoved int    `json:"documents_removed"`
	PendingChanges   int    `json:"pending_changes"`
}

// UploadNowInput is the input schema for the upload_now tool.
type UploadNowInput struct{}

// UploadNowOutput is the output schema for the upload_now tool.
type UploadNowOutput struct {
	Result  string `json:"result"`
	Pending int    `json:"pending"`
	Failed  int    `json:"failed"`
}

// QueueStatusInput is the input schema for the queue_status tool.
type QueueStatusInput struct {
	IncludeItems bool `json:"include_items,omitempty" jsonschema:"list failed uploads and pending changes individually"`
}

// QueueStatusOutput is the output schema for the queue_status tool.
type QueueStatusOutput struct {
	Uploads        UploadCountsOutput `json:"uploads"`
	PendingChanges int                `json:"pending_changes"`
	FailedUploads  []UploadOutput     `json:"failed_uploads,omitempty"`
	Changes        []ChangeOutput     `json:"changes,omitempty"`
}

// UploadCountsOutput mirrors the upload queue counters.
type UploadCountsOutput struct {
	Pending   int `json:"pending"`
	Uploading int `json:"uploading"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// UploadOutput represents a single queued upload.
type UploadOutput struct {
	ID         int64  `json:"id"`
	URI        string `json:"uri"`
	Pages      int    `json:"pages"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status"`
	RetryCount int    `json:"retry_count"`
	Error      string `json:"error,omitempty"`
}

// ChangeOutput represents a single pending change.
type ChangeOutput struct {
	ID           int64  `json:"id"`
	EntityType   string `json:"entity_type"`
	EntityID     *int64 `json:"entity_id,omitempty"`
	ChangeType   string `json:"change_type"`
	SyncAttempts int    `json:"sync_attempts"`
	LastError    string `json:"last_error,omitempty"`
}

// ServerStatusInput is the input schema for the server_status tool.
type ServerStatusInput struct {
	Check bool `json:"check,omitempty" jsonschema:"probe the server now instead of returning the last known status"`
}

// ServerStatusOutput is the output schema for the server_status tool.
type ServerStatusOutput struct {
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	Description string `json:"description,omitempty"`
	CheckedAt   string `json:"checked_at,omitempty"`
	Reachable   bool   `json:"reachable"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_now",
		Description: "Push pending local changes and refresh the local replica from the server",
	}, s.handleSyncNow)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload_now",
		Description: "Upload every pending captured document",
	}, s.handleUploadNow)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "queue_status",
		Description: "Summarise the upload queue and unpushed local changes",
	}, s.handleQueueStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "server_status",
		Description: "Report whether the document server is reachable",
	}, s.handleServerStatus)
}

// handleSyncNow handles the sync_now tool invocation.
func (s *Server) handleSyncNow(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ SyncNowInput,
) (*mcp.CallToolResult, SyncNowOutput, error) {
	var output SyncNowOutput

	err := s.ports.Sync.PerformFullSync(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		output.AlreadyRunning = true
	case err != nil:
		return nil, SyncNowOutput{}, err
	}

	status, err := s.ports.Sync.Status(ctx)
	if err != nil {
		return nil, SyncNowOutput{}, err
	}
	if status != nil {
		if !status.LastFullSync.IsZero() {
			output.LastFullSync = status.LastFullSync.Format(time.RFC3339)
		}
		output.DocumentsSynced = status.DocumentsSynced
		output.DocumentsRemoved = status.DocumentsRemoved
		output.PendingChanges = status.PendingChanges
	}

	return nil, output, nil
}

// handleUploadNow handles the upload_now tool invocation.
func (s *Server) handleUploadNow(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ UploadNowInput,
) (*mcp.CallToolResult, UploadNowOutput, error) {
	if s.ports.Uploads == nil {
		return nil, UploadNowOutput{}, ErrUploadsUnavailable
	}

	result := s.ports.Uploads.DoWork(ctx)
	output := UploadNowOutput{Result: string(result)}

	counts, err := s.ports.Queue.Counts(ctx)
	if err != nil {
		return nil, UploadNowOutput{}, err
	}
	output.Pending = counts.Uploads.Pending
	output.Failed = counts.Uploads.Failed

	return nil, output, nil
}

// handleQueueStatus handles the queue_status tool invocation.
func (s *Server) handleQueueStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueueStatusInput,
) (*mcp.CallToolResult, QueueStatusOutput, error) {
	counts, err := s.ports.Queue.Counts(ctx)
	if err != nil {
		return nil, QueueStatusOutput{}, err
	}

	output := QueueStatusOutput{
		Uploads:        uploadCountsOutput(counts),
		PendingChanges: counts.PendingChanges,
	}
	if !input.IncludeItems {
		return nil, output, nil
	}

	failed, err := s.ports.Queue.ListUploads(ctx, domain.UploadFailed)
	if err != nil {
		return nil, QueueStatusOutput{}, err
	}
	for i := range failed {
		output.FailedUploads = append(output.FailedUploads, uploadOutput(&failed[i]))
	}

	changes, err := s.ports.Queue.ListPendingChanges(ctx)
	if err != nil {
		return nil, QueueStatusOutput{}, err
	}
	for i := range changes {
		output.Changes = append(output.Changes, changeOutput(&changes[i]))
	}

	return nil, output, nil
}

// handleServerStatus handles the server_status tool invocation.
func (s *Server) handleServerStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ServerStatusInput,
) (*mcp.CallToolResult, ServerStatusOutput, error) {
	if s.ports.Health == nil {
		return nil, ServerStatusOutput{}, ErrHealthUnavailable
	}

	status := s.ports.Health.Status()
	if input.Check || status.IsUnknown() {
		status = s.ports.Health.CheckServerHealth(ctx)
	}

	output := ServerStatusOutput{
		Status:    string(status.Kind),
		Reachable: s.ports.Health.IsReachable(),
	}
	if status.Kind == domain.StatusOffline {
		output.Reason = string(status.Reason)
		output.Description = status.Reason.Description()
	}
	if !status.At.IsZero() {
		output.CheckedAt = status.At.Format(time.RFC3339)
	}

	return nil, output, nil
}

func uploadCountsOutput(counts *driving.QueueCounts) UploadCountsOutput {
	return UploadCountsOutput{
		Pending:   counts.Uploads.Pending,
		Uploading: counts.Uploads.Uploading,
		Completed: counts.Uploads.Completed,
		Failed:    counts.Uploads.Failed,
	}
}

func uploadOutput(u *domain.PendingUpload) UploadOutput {
	return UploadOutput{
		ID:         u.ID,
		URI:        u.URI,
		Pages:      len(u.AllURIs()),
		Title:      u.Title,
		Status:     string(u.Status),
		RetryCount: u.RetryCount,
		Error:      u.ErrorMessage,
	}
}

func changeOutput(c *domain.PendingChange) ChangeOutput {
	out := ChangeOutput{
		ID:           c.ID,
		EntityType:   string(c.EntityType),
		EntityID:     c.EntityID,
		ChangeType:   string(c.ChangeType),
		SyncAttempts: c.SyncAttempts,
	}
	if c.LastError != nil {
		out.LastError = *c.LastError
	}
	return out
}

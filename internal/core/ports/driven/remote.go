package driven

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// RemoteAPI is the document server's REST API.
// HTTP error responses are returned as *domain.APIError; transport
// failures are returned unwrapped so callers can classify them.
type RemoteAPI interface {
	// ListPage fetches one page of a collection. Pages are 1-based.
	ListPage(ctx context.Context, collection domain.Collection, page, pageSize int) (*domain.Page, error)

	// Create posts a new record and returns the server's copy.
	Create(ctx context.Context, collection domain.Collection, data json.RawMessage) (*domain.CachedEntity, error)

	// Update patches a record and returns the server's copy.
	Update(ctx context.Context, collection domain.Collection, id int64, data json.RawMessage) (*domain.CachedEntity, error)

	// Delete removes a record.
	Delete(ctx context.Context, collection domain.Collection, id int64) error

	// Upload sends a single file for consumption.
	Upload(ctx context.Context, uri string, meta domain.UploadMetadata, progress domain.ProgressFunc) (*domain.UploadResult, error)

	// UploadMultiPage sends the pages of one document in order.
	UploadMultiPage(ctx context.Context, uris []string, meta domain.UploadMetadata, progress domain.ProgressFunc) (*domain.UploadResult, error)

	// TrashAction restores or permanently deletes trashed documents.
	TrashAction(ctx context.Context, ids []int64, action domain.TrashAction) error

	// Probe performs a minimal request to verify reachability.
	// It is never retried.
	Probe(ctx context.Context) error
}

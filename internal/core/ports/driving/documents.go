package driving

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// DocumentService applies local mutations optimistically.
type DocumentService interface {
	// ListDocuments returns cached documents.
	ListDocuments(ctx context.Context, includeDeleted bool) ([]domain.Document, error)

	// GetDocument returns a cached document.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// UpdateDocument applies a patch locally and pushes or queues it.
	UpdateDocument(ctx context.Context, id int64, patch domain.DocumentPatch) error

	// DeleteDocument moves a document to the trash and pushes or queues the delete.
	DeleteDocument(ctx context.Context, id int64) error

	// CreateTag creates a tag remotely or queues the creation.
	CreateTag(ctx context.Context, name string) error

	// CreateCorrespondent creates a correspondent remotely or queues the creation.
	CreateCorrespondent(ctx context.Context, name string) error

	// CreateDocumentType creates a document type remotely or queues the creation.
	CreateDocumentType(ctx context.Context, name string) error

	// RestoreFromTrash restores trashed documents. Requires reachability.
	RestoreFromTrash(ctx context.Context, ids []int64) error

	// EmptyTrash permanently deletes trashed documents. Requires reachability.
	EmptyTrash(ctx context.Context, ids []int64) error

	// SweepExpiredTrash hard-deletes local trash older than the retention.
	SweepExpiredTrash(ctx context.Context) (int, error)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// uploadQueue implements driven.UploadQueue.
type uploadQueue struct {
	store *Store
}

var _ driven.UploadQueue = (*uploadQueue)(nil)

const uploadColumns = `id, uri, additional_uris, title, tag_ids, document_type_id, correspondent_id,
	status, retry_count, error_message, created_at`

// Enqueue adds an upload in pending state and assigns its ID.
func (q *uploadQueue) Enqueue(ctx context.Context, upload *domain.PendingUpload) error {
	if upload == nil {
		return domain.ErrInvalidInput
	}
	if err := upload.Validate(); err != nil {
		return err
	}

	uris, err := marshalList(upload.AdditionalURIs)
	if err != nil {
		return fmt.Errorf("marshalling additional uris: %w", err)
	}
	tags, err := marshalList(upload.TagIDs)
	if err != nil {
		return fmt.Errorf("marshalling tag ids: %w", err)
	}

	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}
	upload.Status = domain.UploadPending

	res, err := q.store.db.ExecContext(ctx, `
		INSERT INTO pending_uploads (uri, additional_uris, title, tag_ids, document_type_id,
			correspondent_id, status, retry_count, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, upload.URI, uris, upload.Title, tags, nullInt64(upload.DocumentTypeID),
		nullInt64(upload.CorrespondentID), string(upload.Status), upload.RetryCount,
		nullString(upload.ErrorMessage), formatTime(upload.CreatedAt))
	if err != nil {
		return fmt.Errorf("enqueueing upload: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading upload id: %w", err)
	}
	upload.ID = id
	return nil
}

// GetNextPendingUpload returns the oldest pending upload, or nil if none.
func (q *uploadQueue) GetNextPendingUpload(ctx context.Context) (*domain.PendingUpload, error) {
	row := q.store.db.QueryRowContext(ctx, "SELECT "+uploadColumns+`
		FROM pending_uploads WHERE status = ? ORDER BY id LIMIT 1`, string(domain.UploadPending))
	upload, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return upload, err
}

// Get retrieves an upload.
func (q *uploadQueue) Get(ctx context.Context, id int64) (*domain.PendingUpload, error) {
	row := q.store.db.QueryRowContext(ctx, "SELECT "+uploadColumns+" FROM pending_uploads WHERE id = ?", id)
	upload, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %d: %w", id, domain.ErrNotFound)
	}
	return upload, err
}

// List returns uploads ordered by ID. An empty status lists all.
func (q *uploadQueue) List(ctx context.Context, status domain.UploadStatus) ([]domain.PendingUpload, error) {
	query := "SELECT " + uploadColumns + " FROM pending_uploads"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id"

	rows, err := q.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying uploads: %w", err)
	}
	defer rows.Close()

	var uploads []domain.PendingUpload //nolint:prealloc // size unknown from query
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *upload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating uploads: %w", err)
	}
	return uploads, nil
}

// MarkUploading moves an upload into the uploading state.
func (q *uploadQueue) MarkUploading(ctx context.Context, id int64) error {
	return q.setStatus(ctx, id, domain.UploadUploading)
}

// MarkCompleted moves an upload into the completed state.
func (q *uploadQueue) MarkCompleted(ctx context.Context, id int64) error {
	return q.setStatus(ctx, id, domain.UploadCompleted)
}

// MarkFailed stores the message and increments RetryCount.
func (q *uploadQueue) MarkFailed(ctx context.Context, id int64, message string) error {
	res, err := q.store.db.ExecContext(ctx, `
		UPDATE pending_uploads SET status = ?, error_message = ?, retry_count = retry_count + 1
		WHERE id = ?
	`, string(domain.UploadFailed), message, id)
	if err != nil {
		return fmt.Errorf("marking upload failed: %w", err)
	}
	return checkAffected(res, fmt.Errorf("upload %d: %w", id, domain.ErrNotFound))
}

// Requeue moves a failed or stale uploading row back to pending.
func (q *uploadQueue) Requeue(ctx context.Context, id int64) error {
	res, err := q.store.db.ExecContext(ctx, `
		UPDATE pending_uploads SET status = ?, error_message = NULL
		WHERE id = ? AND status IN (?, ?)
	`, string(domain.UploadPending), id, string(domain.UploadFailed), string(domain.UploadUploading))
	if err != nil {
		return fmt.Errorf("requeueing upload: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	upload, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: upload %d is %s", domain.ErrInvalidInput, id, upload.Status)
}

// RequeueInterrupted moves every uploading row back to pending.
func (q *uploadQueue) RequeueInterrupted(ctx context.Context) (int, error) {
	res, err := q.store.db.ExecContext(ctx, `
		UPDATE pending_uploads SET status = ? WHERE status = ?
	`, string(domain.UploadPending), string(domain.UploadUploading))
	if err != nil {
		return 0, fmt.Errorf("requeueing interrupted uploads: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return int(n), nil
}

// Delete removes an upload.
func (q *uploadQueue) Delete(ctx context.Context, id int64) error {
	if _, err := q.store.db.ExecContext(ctx, "DELETE FROM pending_uploads WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting upload: %w", err)
	}
	return nil
}

// RemoveCompleted deletes every completed upload and returns the count.
func (q *uploadQueue) RemoveCompleted(ctx context.Context) (int, error) {
	res, err := q.store.db.ExecContext(ctx,
		"DELETE FROM pending_uploads WHERE status = ?", string(domain.UploadCompleted))
	if err != nil {
		return 0, fmt.Errorf("removing completed uploads: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading affected rows: %w", err)
	}
	return int(n), nil
}

// CountByStatus summarises the queue.
func (q *uploadQueue) CountByStatus(ctx context.Context) (domain.UploadCounts, error) {
	var counts domain.UploadCounts

	rows, err := q.store.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM pending_uploads GROUP BY status")
	if err != nil {
		return counts, fmt.Errorf("counting uploads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("scanning upload count: %w", err)
		}
		switch domain.UploadStatus(status) {
		case domain.UploadPending:
			counts.Pending = n
		case domain.UploadUploading:
			counts.Uploading = n
		case domain.UploadCompleted:
			counts.Completed = n
		case domain.UploadFailed:
			counts.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("iterating upload counts: %w", err)
	}
	return counts, nil
}

func (q *uploadQueue) setStatus(ctx context.Context, id int64, status domain.UploadStatus) error {
	res, err := q.store.db.ExecContext(ctx,
		"UPDATE pending_uploads SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("setting upload status: %w", err)
	}
	return checkAffected(res, fmt.Errorf("upload %d: %w", id, domain.ErrNotFound))
}

func scanUpload(row rowScanner) (*domain.PendingUpload, error) {
	var u domain.PendingUpload
	var uris, tags, status string
	var documentTypeID, correspondentID sql.NullInt64
	var errorMessage, createdAt sql.NullString

	if err := row.Scan(&u.ID, &u.URI, &uris, &u.Title, &tags, &documentTypeID,
		&correspondentID, &status, &u.RetryCount, &errorMessage, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning upload: %w", err)
	}

	var err error
	if u.AdditionalURIs, err = unmarshalList[string](uris); err != nil {
		return nil, fmt.Errorf("unmarshaling additional uris: %w", err)
	}
	if u.TagIDs, err = unmarshalList[int64](tags); err != nil {
		return nil, fmt.Errorf("unmarshaling tag ids: %w", err)
	}
	u.DocumentTypeID = int64Ptr(documentTypeID)
	u.CorrespondentID = int64Ptr(correspondentID)
	u.Status = domain.UploadStatus(status)
	u.ErrorMessage = errorMessage.String
	u.CreatedAt = parseNullableTime(createdAt)
	return &u, nil
}

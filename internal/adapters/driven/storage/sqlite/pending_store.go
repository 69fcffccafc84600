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

// pendingChangeStore implements driven.PendingChangeStore.
type pendingChangeStore struct {
	store *Store
}

var _ driven.PendingChangeStore = (*pendingChangeStore)(nil)

const pendingColumns = "id, entity_type, entity_id, change_type, change_data, sync_attempts, last_error, created_at"

// Add records a change and assigns its ID.
func (s *pendingChangeStore) Add(ctx context.Context, change *domain.PendingChange) error {
	if change == nil {
		return domain.ErrInvalidInput
	}
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}

	data := string(change.ChangeData)
	if data == "" {
		data = "{}"
	}

	var lastError any
	if change.LastError != nil {
		lastError = *change.LastError
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO pending_changes (entity_type, entity_id, change_type, change_data, sync_attempts, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, string(change.EntityType), nullInt64(change.EntityID), string(change.ChangeType),
		data, change.SyncAttempts, lastError, formatTime(change.CreatedAt))
	if err != nil {
		return fmt.Errorf("adding pending change: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading pending change id: %w", err)
	}
	change.ID = id
	return nil
}

// List returns all changes ordered by ID ascending.
func (s *pendingChangeStore) List(ctx context.Context) ([]domain.PendingChange, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT "+pendingColumns+" FROM pending_changes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying pending changes: %w", err)
	}
	defer rows.Close()

	var changes []domain.PendingChange //nolint:prealloc // size unknown from query
	for rows.Next() {
		change, err := scanPendingChange(rows)
		if err != nil {
			return nil, err
		}
		changes = append(changes, *change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending changes: %w", err)
	}
	return changes, nil
}

// Get retrieves a change.
func (s *pendingChangeStore) Get(ctx context.Context, id int64) (*domain.PendingChange, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT "+pendingColumns+" FROM pending_changes WHERE id = ?", id)
	change, err := scanPendingChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pending change %d: %w", id, domain.ErrNotFound)
	}
	return change, err
}

// Delete removes a change.
func (s *pendingChangeStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM pending_changes WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting pending change: %w", err)
	}
	return nil
}

// RecordFailure increments SyncAttempts and stores the error message.
func (s *pendingChangeStore) RecordFailure(ctx context.Context, id int64, message string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE pending_changes SET sync_attempts = sync_attempts + 1, last_error = ?
		WHERE id = ?
	`, message, id)
	if err != nil {
		return fmt.Errorf("recording pending change failure: %w", err)
	}
	return checkAffected(res, fmt.Errorf("pending change %d: %w", id, domain.ErrNotFound))
}

// ResetAttempts clears SyncAttempts and LastError.
func (s *pendingChangeStore) ResetAttempts(ctx context.Context, id int64) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE pending_changes SET sync_attempts = 0, last_error = NULL
		WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("resetting pending change: %w", err)
	}
	return checkAffected(res, fmt.Errorf("pending change %d: %w", id, domain.ErrNotFound))
}

// Count returns the number of pending changes.
func (s *pendingChangeStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pending_changes").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting pending changes: %w", err)
	}
	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPendingChange(row rowScanner) (*domain.PendingChange, error) {
	var change domain.PendingChange
	var entityType, changeType, data string
	var entityID sql.NullInt64
	var lastError, createdAt sql.NullString

	if err := row.Scan(&change.ID, &entityType, &entityID, &changeType, &data,
		&change.SyncAttempts, &lastError, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning pending change: %w", err)
	}

	change.EntityType = domain.EntityType(entityType)
	change.ChangeType = domain.ChangeType(changeType)
	change.EntityID = int64Ptr(entityID)
	change.ChangeData = []byte(data)
	if lastError.Valid {
		msg := lastError.String
		change.LastError = &msg
	}
	change.CreatedAt = parseNullableTime(createdAt)
	return &change, nil
}

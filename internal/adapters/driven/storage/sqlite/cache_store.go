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

// cacheStore implements driven.CacheStore.
type cacheStore struct {
	store *Store
}

var _ driven.CacheStore = (*cacheStore)(nil)

const cacheColumns = "collection, id, name, payload, is_deleted, deleted_at, last_synced_at"

// Get retrieves a record, including soft-deleted ones.
func (s *cacheStore) Get(ctx context.Context, collection domain.Collection, id int64) (*domain.CachedEntity, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+cacheColumns+" FROM cached_entities WHERE collection = ? AND id = ?",
		string(collection), id)

	var e cachedRow
	if err := row.Scan(e.targets()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning cached entity: %w", err)
	}
	return e.entity(), nil
}

// Insert adds a new record.
func (s *cacheStore) Insert(ctx context.Context, entity *domain.CachedEntity) error {
	if err := validateEntity(entity); err != nil {
		return err
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cached_entities (`+cacheColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO NOTHING
	`, entityArgs(entity)...)
	if err != nil {
		return fmt.Errorf("inserting cached entity: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%s %d: %w", entity.Collection, entity.ID, domain.ErrAlreadyExists))
}

// Update replaces an existing record.
func (s *cacheStore) Update(ctx context.Context, entity *domain.CachedEntity) error {
	if err := validateEntity(entity); err != nil {
		return err
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE cached_entities
		SET name = ?, payload = ?, is_deleted = ?, deleted_at = ?, last_synced_at = ?
		WHERE collection = ? AND id = ?
	`, entity.Name, payloadString(entity.Payload), boolToInt(entity.IsDeleted),
		nullableTimePtr(entity.DeletedAt), formatNullableTime(entity.LastSyncedAt),
		string(entity.Collection), entity.ID)
	if err != nil {
		return fmt.Errorf("updating cached entity: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%s %d: %w", entity.Collection, entity.ID, domain.ErrNotFound))
}

// Upsert inserts or replaces a server-confirmed record.
// The soft-delete state of an existing row is left untouched.
func (s *cacheStore) Upsert(ctx context.Context, entity *domain.CachedEntity) error {
	if err := validateEntity(entity); err != nil {
		return err
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cached_entities (`+cacheColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			name = excluded.name,
			payload = excluded.payload,
			last_synced_at = excluded.last_synced_at
	`, entityArgs(entity)...)
	if err != nil {
		return fmt.Errorf("upserting cached entity: %w", err)
	}
	return nil
}

// SoftDelete marks a record as trashed.
func (s *cacheStore) SoftDelete(ctx context.Context, collection domain.Collection, id int64, at time.Time) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE cached_entities SET is_deleted = 1, deleted_at = ?
		WHERE collection = ? AND id = ?
	`, formatTime(at), string(collection), id)
	if err != nil {
		return fmt.Errorf("soft deleting cached entity: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound))
}

// Restore clears the soft-delete state.
func (s *cacheStore) Restore(ctx context.Context, collection domain.Collection, id int64) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE cached_entities SET is_deleted = 0, deleted_at = NULL
		WHERE collection = ? AND id = ?
	`, string(collection), id)
	if err != nil {
		return fmt.Errorf("restoring cached entity: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%s %d: %w", collection, id, domain.ErrNotFound))
}

// HardDelete removes the given records in one transaction.
func (s *cacheStore) HardDelete(ctx context.Context, collection domain.Collection, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM cached_entities WHERE collection = ? AND id = ?")
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, string(collection), id); err != nil {
			return fmt.Errorf("deleting cached entity %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// ListIDs returns every id in the collection.
func (s *cacheStore) ListIDs(ctx context.Context, collection domain.Collection) ([]int64, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id FROM cached_entities WHERE collection = ? ORDER BY id", string(collection))
	if err != nil {
		return nil, fmt.Errorf("querying cached ids: %w", err)
	}
	defer rows.Close()

	var ids []int64 //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning cached id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cached ids: %w", err)
	}
	return ids, nil
}

// List returns records ordered by id.
func (s *cacheStore) List(ctx context.Context, collection domain.Collection, includeDeleted bool) ([]domain.CachedEntity, error) {
	query := "SELECT " + cacheColumns + " FROM cached_entities WHERE collection = ?"
	if !includeDeleted {
		query += " AND is_deleted = 0"
	}
	query += " ORDER BY id"

	rows, err := s.store.db.QueryContext(ctx, query, string(collection))
	if err != nil {
		return nil, fmt.Errorf("querying cached entities: %w", err)
	}
	defer rows.Close()

	var entities []domain.CachedEntity //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e cachedRow
		if err := rows.Scan(e.targets()...); err != nil {
			return nil, fmt.Errorf("scanning cached entity: %w", err)
		}
		entities = append(entities, *e.entity())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cached entities: %w", err)
	}
	return entities, nil
}

// ListDeletedBefore returns ids of records soft-deleted before cutoff.
func (s *cacheStore) ListDeletedBefore(ctx context.Context, collection domain.Collection, cutoff time.Time) ([]int64, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, deleted_at FROM cached_entities
		WHERE collection = ? AND is_deleted = 1
		ORDER BY id
	`, string(collection))
	if err != nil {
		return nil, fmt.Errorf("querying trashed entities: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		var deletedAt sql.NullString
		if err := rows.Scan(&id, &deletedAt); err != nil {
			return nil, fmt.Errorf("scanning trashed entity: %w", err)
		}
		// Rows trashed without a timestamp never expire.
		at := parseNullableTime(deletedAt)
		if !at.IsZero() && at.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trashed entities: %w", err)
	}
	return ids, nil
}

// cachedRow holds the raw columns of a cached_entities row.
type cachedRow struct {
	collection   string
	id           int64
	name         string
	payload      string
	isDeleted    int
	deletedAt    sql.NullString
	lastSyncedAt sql.NullString
}

func (r *cachedRow) targets() []any {
	return []any{&r.collection, &r.id, &r.name, &r.payload, &r.isDeleted, &r.deletedAt, &r.lastSyncedAt}
}

func (r *cachedRow) entity() *domain.CachedEntity {
	e := &domain.CachedEntity{
		Collection:   domain.Collection(r.collection),
		ID:           r.id,
		Name:         r.name,
		Payload:      []byte(r.payload),
		IsDeleted:    r.isDeleted == 1,
		LastSyncedAt: parseNullableTime(r.lastSyncedAt),
	}
	if at := parseNullableTime(r.deletedAt); !at.IsZero() {
		e.DeletedAt = &at
	}
	return e
}

func validateEntity(e *domain.CachedEntity) error {
	if e == nil {
		return domain.ErrInvalidInput
	}
	if !e.Collection.IsValid() {
		return fmt.Errorf("%w: collection %q", domain.ErrUnsupportedType, e.Collection)
	}
	return nil
}

func entityArgs(e *domain.CachedEntity) []any {
	return []any{
		string(e.Collection), e.ID, e.Name, payloadString(e.Payload),
		boolToInt(e.IsDeleted), nullableTimePtr(e.DeletedAt), formatNullableTime(e.LastSyncedAt),
	}
}

func payloadString(p []byte) string {
	if len(p) == 0 {
		return "{}"
	}
	return string(p)
}

func nullableTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatNullableTime(*t)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOptions tunes a full sync cycle.
type SyncOptions struct {
	// PageSize is the number of records requested per page.
	PageSize int

	// TrashRetention is how long locally trashed documents are kept.
	TrashRetention time.Duration
}

// SyncOrchestrator pushes pending local changes and then refreshes every
// cached collection from the server.
type SyncOrchestrator struct {
	remote   driven.RemoteAPI
	cache    driven.CacheStore
	pending  driven.PendingChangeStore
	metadata driven.MetadataStore
	gate     *ChangeGate
	opts     SyncOptions
	now      func() time.Time

	mu      sync.Mutex
	running bool
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(
	remote driven.RemoteAPI,
	cache driven.CacheStore,
	pending driven.PendingChangeStore,
	metadata driven.MetadataStore,
	gate *ChangeGate,
	opts SyncOptions,
) *SyncOrchestrator {
	defaults := domain.DefaultSettings()
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.Sync.PageSize
	}
	if opts.TrashRetention <= 0 {
		opts.TrashRetention = defaults.Trash.Retention
	}
	if gate == nil {
		gate = NewChangeGate()
	}
	return &SyncOrchestrator{
		remote:   remote,
		cache:    cache,
		pending:  pending,
		metadata: metadata,
		gate:     gate,
		opts:     opts,
		now:      time.Now,
	}
}

// pullResult counts what one collection pull saw.
type pullResult struct {
	seen    int
	removed int
}

// PerformFullSync runs one cycle: push, pull in PullOrder, orphan
// cleanup, then the trash sweep. Push failures are recorded on the
// change and never fail the cycle; any pull failure aborts it before
// the completion metadata is written.
func (o *SyncOrchestrator) PerformFullSync(ctx context.Context) error {
	if !o.begin() {
		return domain.ErrSyncInProgress
	}
	defer o.end()

	logger.Section("Full sync")
	logger.Info("Starting full sync")

	pushed, failed, err := o.pushPendingChanges(ctx)
	if err != nil {
		return err
	}
	if pushed > 0 || failed > 0 {
		logger.Info("Pushed %d pending changes, %d failed", pushed, failed)
	}

	var documents pullResult
	for _, collection := range domain.PullOrder {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := o.pullCollection(ctx, collection)
		if err != nil {
			return fmt.Errorf("pull %s: %w", collection, err)
		}
		if err := o.setMeta(ctx, domain.MetaLastSync(collection), o.timestamp()); err != nil {
			return err
		}
		logger.Debug("Pulled %s: %d records, %d removed", collection, res.seen, res.removed)
		if collection == domain.CollectionDocuments {
			documents = res
		}
	}

	swept, err := sweepExpiredTrash(ctx, o.cache, o.now().Add(-o.opts.TrashRetention))
	if err != nil {
		logger.Warn("Trash sweep failed: %v", err)
	}

	var errs []error
	errs = append(errs,
		o.setMeta(ctx, domain.MetaLastSyncedDocumentsCount, strconv.Itoa(documents.seen)),
		o.setMeta(ctx, domain.MetaLastRemovedDocumentCount, strconv.Itoa(documents.removed)),
		o.setMeta(ctx, domain.MetaLastTrashSweptCount, strconv.Itoa(swept)),
		o.setMeta(ctx, domain.MetaLastFullSync, o.timestamp()),
	)
	if err := errors.Join(errs...); err != nil {
		return err
	}

	logger.Info("Sync complete: %d documents, %d removed, %d trash expired",
		documents.seen, documents.removed, swept)
	return nil
}

// Status returns the outcome of the most recent cycle.
func (o *SyncOrchestrator) Status(ctx context.Context) (*driving.SyncStatus, error) {
	o.mu.Lock()
	status := &driving.SyncStatus{Running: o.running}
	o.mu.Unlock()

	meta, err := o.metadata.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sync metadata: %w", err)
	}
	if v, ok := meta[domain.MetaLastFullSync]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			status.LastFullSync = t
		}
	}
	status.DocumentsSynced, _ = strconv.Atoi(meta[domain.MetaLastSyncedDocumentsCount])
	status.DocumentsRemoved, _ = strconv.Atoi(meta[domain.MetaLastRemovedDocumentCount])

	count, err := o.pending.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pending changes: %w", err)
	}
	status.PendingChanges = count
	return status, nil
}

func (o *SyncOrchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return false
	}
	o.running = true
	return true
}

func (o *SyncOrchestrator) end() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
}

// pushPendingChanges replays the queue in insertion order.
func (o *SyncOrchestrator) pushPendingChanges(ctx context.Context) (pushed, failed int, err error) {
	err = o.gate.Do(func() error {
		changes, err := o.pending.List(ctx)
		if err != nil {
			return fmt.Errorf("list pending changes: %w", err)
		}
		for i := range changes {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			change := &changes[i]
			pushErr := o.pushChange(ctx, change)
			switch {
			case pushErr == nil:
				pushed++
				if err := o.pending.Delete(ctx, change.ID); err != nil {
					logger.Warn("Failed to remove pushed change %d: %v", change.ID, err)
				}
			case errors.Is(pushErr, domain.ErrUnsupportedType):
				logger.Warn("Dropping pending change %d: %v", change.ID, pushErr)
				if err := o.pending.Delete(ctx, change.ID); err != nil {
					logger.Warn("Failed to remove pending change %d: %v", change.ID, err)
				}
			default:
				failed++
				logger.Warn("Push of pending change %d failed: %v", change.ID, pushErr)
				if err := o.pending.RecordFailure(ctx, change.ID, pushErr.Error()); err != nil {
					logger.Warn("Failed to record push failure for %d: %v", change.ID, err)
				}
			}
		}
		return nil
	})
	return pushed, failed, err
}

// pushChange sends one change. Deleting a record the server no longer
// has counts as success; so does updating one, since the next pull
// removes the stale copy.
func (o *SyncOrchestrator) pushChange(ctx context.Context, change *domain.PendingChange) error {
	collection, ok := change.EntityType.Collection()
	if !ok {
		return fmt.Errorf("%w: entity type %q", domain.ErrUnsupportedType, change.EntityType)
	}

	switch change.ChangeType {
	case domain.ChangeCreate:
		entity, err := o.remote.Create(ctx, collection, change.ChangeData)
		if err != nil {
			return err
		}
		return o.cache.Upsert(ctx, entity)

	case domain.ChangeUpdate:
		if change.EntityID == nil {
			return fmt.Errorf("%w: update without entity id", domain.ErrUnsupportedType)
		}
		entity, err := o.remote.Update(ctx, collection, *change.EntityID, change.ChangeData)
		if domain.IsNotFound(err) {
			logger.Warn("%s %d no longer exists on the server", collection, *change.EntityID)
			return nil
		}
		if err != nil {
			return err
		}
		return o.cache.Upsert(ctx, entity)

	case domain.ChangeDelete:
		if change.EntityID == nil {
			return fmt.Errorf("%w: delete without entity id", domain.ErrUnsupportedType)
		}
		err := o.remote.Delete(ctx, collection, *change.EntityID)
		if err != nil && !domain.IsNotFound(err) {
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: change type %q", domain.ErrUnsupportedType, change.ChangeType)
}

// pullCollection walks every page of a collection and hard-deletes
// cached ids the server no longer returned.
func (o *SyncOrchestrator) pullCollection(ctx context.Context, collection domain.Collection) (pullResult, error) {
	var res pullResult

	before, err := o.cache.ListIDs(ctx, collection)
	if err != nil {
		return res, fmt.Errorf("list cached ids: %w", err)
	}

	trashed, err := o.trashedIDs(ctx, collection)
	if err != nil {
		return res, err
	}

	seen := make(map[int64]struct{}, len(before))
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p, err := o.remote.ListPage(ctx, collection, page, o.opts.PageSize)
		if err != nil {
			return res, fmt.Errorf("page %d: %w", page, err)
		}
		if err := o.applyPage(ctx, collection, p.Results, seen, trashed); err != nil {
			return res, fmt.Errorf("page %d: %w", page, err)
		}
		if !p.HasNext() || len(p.Results) == 0 {
			break
		}
	}
	res.seen = len(seen)

	var orphans []int64
	for _, id := range before {
		if _, ok := seen[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	if len(orphans) > 0 {
		if err := o.cache.HardDelete(ctx, collection, orphans); err != nil {
			return res, fmt.Errorf("remove orphans: %w", err)
		}
	}
	res.removed = len(orphans)
	return res, nil
}

// applyPage upserts one page. Records shadowed by a queued change keep
// their local state but still count as seen. Any other trashed record
// the server returned is live again.
func (o *SyncOrchestrator) applyPage(
	ctx context.Context,
	collection domain.Collection,
	results []domain.CachedEntity,
	seen map[int64]struct{},
	trashed map[int64]struct{},
) error {
	return o.gate.Do(func() error {
		changes, err := o.pending.List(ctx)
		if err != nil {
			return fmt.Errorf("list pending changes: %w", err)
		}
		syncedAt := o.now().UTC()
		for i := range results {
			entity := results[i]
			seen[entity.ID] = struct{}{}
			if shadowed(changes, collection, entity.ID) {
				continue
			}
			entity.Collection = collection
			entity.LastSyncedAt = syncedAt
			if err := o.cache.Upsert(ctx, &entity); err != nil {
				return fmt.Errorf("upsert %s %d: %w", collection, entity.ID, err)
			}
			if _, ok := trashed[entity.ID]; ok {
				if err := o.cache.Restore(ctx, collection, entity.ID); err != nil {
					return fmt.Errorf("restore %s %d: %w", collection, entity.ID, err)
				}
				delete(trashed, entity.ID)
			}
		}
		return nil
	})
}

// trashedIDs returns the soft-deleted ids of a collection.
func (o *SyncOrchestrator) trashedIDs(ctx context.Context, collection domain.Collection) (map[int64]struct{}, error) {
	entities, err := o.cache.List(ctx, collection, true)
	if err != nil {
		return nil, fmt.Errorf("list cached %s: %w", collection, err)
	}
	trashed := make(map[int64]struct{})
	for i := range entities {
		if entities[i].IsDeleted {
			trashed[entities[i].ID] = struct{}{}
		}
	}
	return trashed, nil
}

func (o *SyncOrchestrator) setMeta(ctx context.Context, key, value string) error {
	if err := o.metadata.Set(ctx, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (o *SyncOrchestrator) timestamp() string {
	return o.now().UTC().Format(time.RFC3339Nano)
}

func shadowed(changes []domain.PendingChange, collection domain.Collection, id int64) bool {
	for i := range changes {
		if changes[i].Shadows(collection, id) {
			return true
		}
	}
	return false
}

// sweepExpiredTrash hard-deletes documents trashed before cutoff.
func sweepExpiredTrash(ctx context.Context, cache driven.CacheStore, cutoff time.Time) (int, error) {
	ids, err := cache.ListDeletedBefore(ctx, domain.CollectionDocuments, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired trash: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := cache.HardDelete(ctx, domain.CollectionDocuments, ids); err != nil {
		return 0, fmt.Errorf("remove expired trash: %w", err)
	}
	return len(ids), nil
}

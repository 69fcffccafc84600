package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
	"github.com/custodia-labs/docsync/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService applies local mutations to the cache first, then
// pushes them when the server is reachable or queues them otherwise.
type DocumentService struct {
	cache     driven.CacheStore
	pending   driven.PendingChangeStore
	remote    driven.RemoteAPI
	health    driving.HealthMonitor
	gate      *ChangeGate
	retention time.Duration
	now       func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	cache driven.CacheStore,
	pending driven.PendingChangeStore,
	remote driven.RemoteAPI,
	health driving.HealthMonitor,
	gate *ChangeGate,
	retention time.Duration,
) *DocumentService {
	if gate == nil {
		gate = NewChangeGate()
	}
	if retention <= 0 {
		retention = domain.DefaultSettings().Trash.Retention
	}
	return &DocumentService{
		cache:     cache,
		pending:   pending,
		remote:    remote,
		health:    health,
		gate:      gate,
		retention: retention,
		now:       time.Now,
	}
}

// ListDocuments returns cached documents ordered by id.
func (s *DocumentService) ListDocuments(ctx context.Context, includeDeleted bool) ([]domain.Document, error) {
	entities, err := s.cache.List(ctx, domain.CollectionDocuments, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]domain.Document, 0, len(entities))
	for i := range entities {
		var doc domain.Document
		if err := entities[i].Decode(&doc); err != nil {
			logger.Warn("Skipping unreadable document: %v", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// GetDocument returns a cached document.
func (s *DocumentService) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	entity, err := s.cache.Get(ctx, domain.CollectionDocuments, id)
	if err != nil {
		return nil, err
	}
	var doc domain.Document
	if err := entity.Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument merges the patch into the cached record, then pushes it
// or queues an update change.
func (s *DocumentService) UpdateDocument(ctx context.Context, id int64, patch domain.DocumentPatch) error {
	if patch.IsEmpty() {
		return fmt.Errorf("%w: empty patch", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	return s.gate.Do(func() error {
		entity, err := s.cache.Get(ctx, domain.CollectionDocuments, id)
		if err != nil {
			return err
		}
		var doc domain.Document
		if err := entity.Decode(&doc); err != nil {
			return err
		}
		patch.Apply(&doc)
		merged, err := mergePayload(entity.Payload, data)
		if err != nil {
			return fmt.Errorf("document %d: %w", id, err)
		}
		entity.Payload = merged
		entity.Name = doc.Title
		if err := s.cache.Update(ctx, entity); err != nil {
			return fmt.Errorf("update cached document: %w", err)
		}

		if s.health.IsReachable() {
			updated, err := s.remote.Update(ctx, domain.CollectionDocuments, id, data)
			if err == nil {
				return s.cache.Upsert(ctx, updated)
			}
			logger.Warn("Update of document %d failed, queueing: %v", id, err)
		}
		return s.enqueue(ctx, domain.EntityDocument, &id, domain.ChangeUpdate, data)
	})
}

// DeleteDocument moves a document to the local trash, then pushes or
// queues the delete. A document the server no longer has is already
// deleted.
func (s *DocumentService) DeleteDocument(ctx context.Context, id int64) error {
	return s.gate.Do(func() error {
		if err := s.cache.SoftDelete(ctx, domain.CollectionDocuments, id, s.now()); err != nil {
			return err
		}

		if s.health.IsReachable() {
			err := s.remote.Delete(ctx, domain.CollectionDocuments, id)
			if err == nil || domain.IsNotFound(err) {
				return nil
			}
			logger.Warn("Delete of document %d failed, queueing: %v", id, err)
		}
		return s.enqueue(ctx, domain.EntityDocument, &id, domain.ChangeDelete, nil)
	})
}

// CreateTag creates a tag remotely or queues the creation.
func (s *DocumentService) CreateTag(ctx context.Context, name string) error {
	return s.create(ctx, domain.EntityTag, name)
}

// CreateCorrespondent creates a correspondent remotely or queues the creation.
func (s *DocumentService) CreateCorrespondent(ctx context.Context, name string) error {
	return s.create(ctx, domain.EntityCorrespondent, name)
}

// CreateDocumentType creates a document type remotely or queues the creation.
func (s *DocumentService) CreateDocumentType(ctx context.Context, name string) error {
	return s.create(ctx, domain.EntityDocumentType, name)
}

// RestoreFromTrash restores documents. Deletes still queued locally are
// dropped instead of being sent; the rest are restored on the server.
func (s *DocumentService) RestoreFromTrash(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no documents to restore", domain.ErrInvalidInput)
	}
	if !s.health.IsReachable() {
		return domain.ErrServerUnreachable
	}

	return s.gate.Do(func() error {
		queued, err := s.dropPendingChanges(ctx, ids, domain.ChangeDelete)
		if err != nil {
			return err
		}
		var remote []int64
		for _, id := range ids {
			if !queued[id] {
				remote = append(remote, id)
			}
		}
		if err := s.remote.TrashAction(ctx, remote, domain.TrashRestore); err != nil {
			return fmt.Errorf("restore from trash: %w", err)
		}
		for _, id := range ids {
			if err := s.cache.Restore(ctx, domain.CollectionDocuments, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("restore cached document %d: %w", id, err)
			}
		}
		return nil
	})
}

// EmptyTrash permanently deletes documents on the server and locally.
func (s *DocumentService) EmptyTrash(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no documents to delete", domain.ErrInvalidInput)
	}
	if !s.health.IsReachable() {
		return domain.ErrServerUnreachable
	}

	return s.gate.Do(func() error {
		if err := s.remote.TrashAction(ctx, ids, domain.TrashEmpty); err != nil {
			return fmt.Errorf("empty trash: %w", err)
		}
		if _, err := s.dropPendingChanges(ctx, ids, ""); err != nil {
			return err
		}
		if err := s.cache.HardDelete(ctx, domain.CollectionDocuments, ids); err != nil {
			return fmt.Errorf("remove cached documents: %w", err)
		}
		return nil
	})
}

// SweepExpiredTrash hard-deletes local trash older than the retention.
func (s *DocumentService) SweepExpiredTrash(ctx context.Context) (int, error) {
	return sweepExpiredTrash(ctx, s.cache, s.now().Add(-s.retention))
}

func (s *DocumentService) create(ctx context.Context, entityType domain.EntityType, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	collection, ok := entityType.Collection()
	if !ok {
		return fmt.Errorf("%w: entity type %q", domain.ErrUnsupportedType, entityType)
	}
	data, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return fmt.Errorf("encode %s: %w", entityType, err)
	}

	return s.gate.Do(func() error {
		if s.health.IsReachable() {
			entity, err := s.remote.Create(ctx, collection, data)
			if err == nil {
				return s.cache.Upsert(ctx, entity)
			}
			logger.Warn("Create of %s %q failed, queueing: %v", entityType, name, err)
		}
		return s.enqueue(ctx, entityType, nil, domain.ChangeCreate, data)
	})
}

func (s *DocumentService) enqueue(
	ctx context.Context, entityType domain.EntityType, id *int64, changeType domain.ChangeType, data json.RawMessage,
) error {
	change := &domain.PendingChange{
		EntityType: entityType,
		EntityID:   id,
		ChangeType: changeType,
		ChangeData: data,
	}
	if err := s.pending.Add(ctx, change); err != nil {
		return fmt.Errorf("queue %s %s: %w", changeType, entityType, err)
	}
	return nil
}

// dropPendingChanges removes queued document changes for ids, limited to
// changeType unless it is empty. It returns the ids that had one.
func (s *DocumentService) dropPendingChanges(
	ctx context.Context, ids []int64, changeType domain.ChangeType,
) (map[int64]bool, error) {
	changes, err := s.pending.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending changes: %w", err)
	}
	dropped := make(map[int64]bool)
	for i := range changes {
		change := &changes[i]
		if changeType != "" && change.ChangeType != changeType {
			continue
		}
		for _, id := range ids {
			if !change.Shadows(domain.CollectionDocuments, id) {
				continue
			}
			if err := s.pending.Delete(ctx, change.ID); err != nil {
				return nil, fmt.Errorf("drop pending change %d: %w", change.ID, err)
			}
			dropped[id] = true
			break
		}
	}
	return dropped, nil
}

// mergePayload overlays the top-level fields of patch onto payload,
// keeping fields the patch does not mention.
func mergePayload(payload, patch json.RawMessage) (json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(patch, &changes); err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}
	for k, v := range changes {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return merged, nil
}

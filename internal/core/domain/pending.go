package domain

import (
	"encoding/json"
	"time"
)

// EntityType identifies the kind of entity a pending change targets.
type EntityType string

const (
	EntityDocument      EntityType = "document"
	EntityTag           EntityType = "tag"
	EntityCorrespondent EntityType = "correspondent"
	EntityDocumentType  EntityType = "document_type"
)

// Collection returns the remote collection for the entity type.
// The second value is false for unrecognized types.
func (t EntityType) Collection() (Collection, bool) {
	switch t {
	case EntityDocument:
		return CollectionDocuments, true
	case EntityTag:
		return CollectionTags, true
	case EntityCorrespondent:
		return CollectionCorrespondents, true
	case EntityDocumentType:
		return CollectionDocumentTypes, true
	}
	return "", false
}

// EntityTypeFor returns the entity type stored in a collection.
func EntityTypeFor(c Collection) EntityType {
	switch c {
	case CollectionDocuments:
		return EntityDocument
	case CollectionTags:
		return EntityTag
	case CollectionCorrespondents:
		return EntityCorrespondent
	case CollectionDocumentTypes:
		return EntityDocumentType
	}
	return ""
}

// ChangeType is the kind of local mutation.
type ChangeType string

const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// IsValid returns true if the change type is known.
func (c ChangeType) IsValid() bool {
	return c == ChangeCreate || c == ChangeUpdate || c == ChangeDelete
}

// PendingChange is a local mutation not yet acknowledged by the server.
type PendingChange struct {
	// ID is assigned locally on insert.
	ID int64

	// EntityType is the kind of entity changed.
	EntityType EntityType

	// EntityID is nil for entities not yet created on the server.
	EntityID *int64

	// ChangeType is create, update or delete.
	ChangeType ChangeType

	// ChangeData is the request payload, opaque to the queue.
	ChangeData json.RawMessage

	// SyncAttempts counts failed pushes. It never decreases
	// except through an explicit user retry.
	SyncAttempts int

	// LastError is the message of the most recent failed push.
	LastError *string

	// CreatedAt is when the change was recorded.
	CreatedAt time.Time
}

// Shadows reports whether the change targets the given cached record.
func (c *PendingChange) Shadows(collection Collection, id int64) bool {
	if c.EntityID == nil || *c.EntityID != id {
		return false
	}
	col, ok := c.EntityType.Collection()
	return ok && col == collection
}

// SyncMetadata keys written by the sync orchestrator.
const (
	MetaLastFullSync             = "last_full_sync"
	MetaLastSyncedDocumentsCount = "last_synced_documents_count"
	MetaLastRemovedDocumentCount = "last_removed_documents_count"
	MetaLastTrashSweptCount      = "last_trash_swept_count"
)

// MetaLastSync returns the metadata key holding a collection's last pull time.
func MetaLastSync(c Collection) string {
	return "last_sync_" + string(c)
}

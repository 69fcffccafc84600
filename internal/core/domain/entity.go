package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Collection names a remote resource collection mirrored in the local cache.
type Collection string

const (
	CollectionTags           Collection = "tags"
	CollectionCorrespondents Collection = "correspondents"
	CollectionDocumentTypes  Collection = "document_types"
	CollectionDocuments      Collection = "documents"
)

// PullOrder is the fixed order in which collections are refreshed.
// Metadata collections come first so documents never reference unknown ids.
var PullOrder = []Collection{
	CollectionTags,
	CollectionCorrespondents,
	CollectionDocumentTypes,
	CollectionDocuments,
}

// IsValid returns true if the collection is known.
func (c Collection) IsValid() bool {
	switch c {
	case CollectionTags, CollectionCorrespondents, CollectionDocumentTypes, CollectionDocuments:
		return true
	}
	return false
}

// String returns the collection name.
func (c Collection) String() string {
	return string(c)
}

// CachedEntity is one record of a cached collection.
type CachedEntity struct {
	// Collection the record belongs to.
	Collection Collection

	// ID is the server-assigned identifier.
	ID int64

	// Name is the display name (title for documents).
	Name string

	// Payload is the server record as JSON.
	Payload json.RawMessage

	// IsDeleted marks a soft-deleted record (trash).
	IsDeleted bool

	// DeletedAt is when the record was soft-deleted.
	DeletedAt *time.Time

	// LastSyncedAt is when the record was last confirmed by the server.
	LastSyncedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *CachedEntity) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s %d: empty payload", e.Collection, e.ID)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s %d: decode payload: %w", e.Collection, e.ID, err)
	}
	return nil
}

// Document is the typed view of a cached document.
type Document struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Content             string     `json:"content,omitempty"`
	Correspondent       *int64     `json:"correspondent"`
	DocumentType        *int64     `json:"document_type"`
	Tags                []int64    `json:"tags"`
	Created             *time.Time `json:"created,omitempty"`
	Modified            *time.Time `json:"modified,omitempty"`
	Added               *time.Time `json:"added,omitempty"`
	ArchiveSerialNumber *int64     `json:"archive_serial_number,omitempty"`
	OriginalFileName    string     `json:"original_file_name,omitempty"`
}

// Tag is the typed view of a cached tag.
type Tag struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Colour        string `json:"color,omitempty"`
	IsInboxTag    bool   `json:"is_inbox_tag,omitempty"`
	DocumentCount int    `json:"document_count,omitempty"`
}

// Correspondent is the typed view of a cached correspondent.
type Correspondent struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count,omitempty"`
}

// DocumentType is the typed view of a cached document type.
type DocumentType struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DocumentCount int    `json:"document_count,omitempty"`
}

// DocumentPatch holds a partial document update. Nil fields are untouched.
type DocumentPatch struct {
	Title         *string  `json:"title,omitempty"`
	Correspondent *int64   `json:"correspondent,omitempty"`
	DocumentType  *int64   `json:"document_type,omitempty"`
	Tags          *[]int64 `json:"tags,omitempty"`
}

// IsEmpty returns true if the patch changes nothing.
func (p DocumentPatch) IsEmpty() bool {
	return p.Title == nil && p.Correspondent == nil && p.DocumentType == nil && p.Tags == nil
}

// Apply merges the patch into doc.
func (p DocumentPatch) Apply(doc *Document) {
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Correspondent != nil {
		doc.Correspondent = p.Correspondent
	}
	if p.DocumentType != nil {
		doc.DocumentType = p.DocumentType
	}
	if p.Tags != nil {
		doc.Tags = append([]int64(nil), (*p.Tags)...)
	}
}

// Page is one page of a paginated list response.
type Page struct {
	// Count is the total number of records across all pages.
	Count int

	// Next is the URL of the next page, empty on the last page.
	Next string

	// Previous is the URL of the previous page, empty on the first page.
	Previous string

	// Results are the records on this page.
	Results []CachedEntity
}

// HasNext returns true if the server reported a further page.
func (p *Page) HasNext() bool {
	return p.Next != ""
}

// TrashAction is a bulk trash operation.
type TrashAction string

const (
	TrashRestore TrashAction = "restore"
	TrashEmpty   TrashAction = "empty"
)

// IsValid returns true if the action is known.
func (a TrashAction) IsValid() bool {
	return a == TrashRestore || a == TrashEmpty
}

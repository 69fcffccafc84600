package domain

import (
	"fmt"
	"time"
)

// UploadStatus is the lifecycle state of a queued upload.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
)

// IsValid returns true if the status is known.
func (s UploadStatus) IsValid() bool {
	switch s {
	case UploadPending, UploadUploading, UploadCompleted, UploadFailed:
		return true
	}
	return false
}

// IsTerminal returns true for completed and failed uploads.
func (s UploadStatus) IsTerminal() bool {
	return s == UploadCompleted || s == UploadFailed
}

// PendingUpload is a captured document waiting for transmission.
type PendingUpload struct {
	ID int64

	// URI is the first (or only) page.
	URI string

	// AdditionalURIs are the remaining pages of a multi-page capture, in order.
	AdditionalURIs []string

	Title           string
	TagIDs          []int64
	DocumentTypeID  *int64
	CorrespondentID *int64

	Status       UploadStatus
	RetryCount   int
	ErrorMessage string
	CreatedAt    time.Time
}

// IsMultiPage returns true if the capture has more than one page.
func (u *PendingUpload) IsMultiPage() bool {
	return len(u.AdditionalURIs) > 0
}

// AllURIs returns every page in order, primary first.
func (u *PendingUpload) AllURIs() []string {
	uris := make([]string, 0, 1+len(u.AdditionalURIs))
	uris = append(uris, u.URI)
	return append(uris, u.AdditionalURIs...)
}

// Metadata returns the optional document fields sent with the upload.
func (u *PendingUpload) Metadata() UploadMetadata {
	return UploadMetadata{
		Title:           u.Title,
		TagIDs:          u.TagIDs,
		DocumentTypeID:  u.DocumentTypeID,
		CorrespondentID: u.CorrespondentID,
	}
}

// Validate checks the upload can be queued.
func (u *PendingUpload) Validate() error {
	if u.URI == "" {
		return fmt.Errorf("%w: upload needs a URI", ErrInvalidInput)
	}
	for i, uri := range u.AdditionalURIs {
		if uri == "" {
			return fmt.Errorf("%w: page %d has an empty URI", ErrInvalidInput, i+2)
		}
	}
	return nil
}

// UploadMetadata is the optional metadata sent alongside the file parts.
type UploadMetadata struct {
	Title           string
	TagIDs          []int64
	DocumentTypeID  *int64
	CorrespondentID *int64
}

// UploadResult is the server's acknowledgement of an upload.
type UploadResult struct {
	// TaskID identifies the server-side consumption task.
	TaskID string
}

// ProgressFunc receives upload progress in bytes. total is -1 when unknown.
type ProgressFunc func(sent, total int64)

// UploadCounts summarises the upload queue.
type UploadCounts struct {
	Pending   int
	Uploading int
	Completed int
	Failed    int
}

// Total returns the number of rows in the queue.
func (c UploadCounts) Total() int {
	return c.Pending + c.Uploading + c.Completed + c.Failed
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure UploadQueue implements the interface.
var _ driven.UploadQueue = (*UploadQueue)(nil)

// UploadQueue is an in-memory implementation of driven.UploadQueue.
type UploadQueue struct {
	mu      sync.RWMutex
	nextID  int64
	uploads map[int64]domain.PendingUpload
}

// NewUploadQueue creates a new in-memory upload queue.
func NewUploadQueue() *UploadQueue {
	return &UploadQueue{
		uploads: make(map[int64]domain.PendingUpload),
	}
}

// Enqueue adds an upload in pending state and assigns its ID.
func (q *UploadQueue) Enqueue(_ context.Context, upload *domain.PendingUpload) error {
	if upload == nil {
		return domain.ErrInvalidInput
	}
	if err := upload.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	upload.ID = q.nextID
	upload.Status = domain.UploadPending
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}
	q.uploads[upload.ID] = cloneUpload(*upload)
	return nil
}

// GetNextPendingUpload returns the oldest pending upload, or nil if none.
func (q *UploadQueue) GetNextPendingUpload(_ context.Context) (*domain.PendingUpload, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var next *domain.PendingUpload
	for _, u := range q.uploads {
		if u.Status != domain.UploadPending {
			continue
		}
		if next == nil || u.ID < next.ID {
			clone := cloneUpload(u)
			next = &clone
		}
	}
	return next, nil
}

// Get retrieves an upload.
func (q *UploadQueue) Get(_ context.Context, id int64) (*domain.PendingUpload, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	u, ok := q.uploads[id]
	if !ok {
		return nil, fmt.Errorf("upload %d: %w", id, domain.ErrNotFound)
	}
	clone := cloneUpload(u)
	return &clone, nil
}

// List returns uploads ordered by ID. An empty status lists all.
func (q *UploadQueue) List(_ context.Context, status domain.UploadStatus) ([]domain.PendingUpload, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var out []domain.PendingUpload
	for _, u := range q.uploads {
		if status == "" || u.Status == status {
			out = append(out, cloneUpload(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MarkUploading moves an upload into the uploading state.
func (q *UploadQueue) MarkUploading(_ context.Context, id int64) error {
	return q.mutate(id, func(u *domain.PendingUpload) error {
		u.Status = domain.UploadUploading
		return nil
	})
}

// MarkCompleted moves an upload into the completed state.
func (q *UploadQueue) MarkCompleted(_ context.Context, id int64) error {
	return q.mutate(id, func(u *domain.PendingUpload) error {
		u.Status = domain.UploadCompleted
		return nil
	})
}

// MarkFailed stores the message and increments RetryCount.
func (q *UploadQueue) MarkFailed(_ context.Context, id int64, message string) error {
	return q.mutate(id, func(u *domain.PendingUpload) error {
		u.Status = domain.UploadFailed
		u.ErrorMessage = message
		u.RetryCount++
		return nil
	})
}

// Requeue moves a failed or stale uploading row back to pending.
func (q *UploadQueue) Requeue(_ context.Context, id int64) error {
	return q.mutate(id, func(u *domain.PendingUpload) error {
		if u.Status != domain.UploadFailed && u.Status != domain.UploadUploading {
			return fmt.Errorf("%w: upload %d is %s", domain.ErrInvalidInput, id, u.Status)
		}
		u.Status = domain.UploadPending
		u.ErrorMessage = ""
		return nil
	})
}

// RequeueInterrupted moves every uploading row back to pending.
func (q *UploadQueue) RequeueInterrupted(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, u := range q.uploads {
		if u.Status == domain.UploadUploading {
			u.Status = domain.UploadPending
			q.uploads[id] = u
			n++
		}
	}
	return n, nil
}

// Delete removes an upload.
func (q *UploadQueue) Delete(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.uploads, id)
	return nil
}

// RemoveCompleted deletes every completed upload and returns the count.
func (q *UploadQueue) RemoveCompleted(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for id, u := range q.uploads {
		if u.Status == domain.UploadCompleted {
			delete(q.uploads, id)
			removed++
		}
	}
	return removed, nil
}

// CountByStatus summarises the queue.
func (q *UploadQueue) CountByStatus(_ context.Context) (domain.UploadCounts, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var counts domain.UploadCounts
	for _, u := range q.uploads {
		switch u.Status {
		case domain.UploadPending:
			counts.Pending++
		case domain.UploadUploading:
			counts.Uploading++
		case domain.UploadCompleted:
			counts.Completed++
		case domain.UploadFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

func (q *UploadQueue) mutate(id int64, fn func(*domain.PendingUpload) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	u, ok := q.uploads[id]
	if !ok {
		return fmt.Errorf("upload %d: %w", id, domain.ErrNotFound)
	}
	if err := fn(&u); err != nil {
		return err
	}
	q.uploads[id] = u
	return nil
}

func cloneUpload(u domain.PendingUpload) domain.PendingUpload {
	clone := u
	clone.AdditionalURIs = append([]string(nil), u.AdditionalURIs...)
	clone.TagIDs = append([]int64(nil), u.TagIDs...)
	if len(clone.AdditionalURIs) == 0 {
		clone.AdditionalURIs = nil
	}
	if len(clone.TagIDs) == 0 {
		clone.TagIDs = nil
	}
	return clone
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docsync/internal/core/domain"
)

type syncFixture struct {
	remote   *fakeRemote
	cache    *memory.CacheStore
	pending  *memory.PendingChangeStore
	metadata *memory.MetadataStore
	orch     *SyncOrchestrator
}

func newSyncFixture(pageSize int) *syncFixture {
	f := &syncFixture{
		remote:   newFakeRemote(),
		cache:    memory.NewCacheStore(),
		pending:  memory.NewPendingChangeStore(),
		metadata: memory.NewMetadataStore(),
	}
	f.orch = NewSyncOrchestrator(f.remote, f.cache, f.pending, f.metadata, NewChangeGate(),
		SyncOptions{PageSize: pageSize})
	return f
}

func (f *syncFixture) seedCache(t *testing.T, collection domain.Collection, id int64, name string) {
	t.Helper()
	entity := recordEntity(collection, id, recordPayload(collection, id, name))
	require.NoError(t, f.cache.Upsert(context.Background(), &entity))
}

func (f *syncFixture) meta(t *testing.T, key string) string {
	t.Helper()
	v, ok, err := f.metadata.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok, "metadata %s not set", key)
	return v
}

func TestNewSyncOrchestrator_Defaults(t *testing.T) {
	orch := NewSyncOrchestrator(nil, nil, nil, nil, nil, SyncOptions{})

	assert.Equal(t, 100, orch.opts.PageSize)
	assert.Equal(t, 30*24*time.Hour, orch.opts.TrashRetention)
	assert.NotNil(t, orch.gate)
}

func TestSyncOrchestrator_PaginatesUntilLastPage(t *testing.T) {
	f := newSyncFixture(100)
	for i := int64(1); i <= 250; i++ {
		f.remote.put(domain.CollectionTags, i, "tag-"+strconv.FormatInt(i, 10))
	}

	require.NoError(t, f.orch.PerformFullSync(context.Background()))

	assert.Equal(t, 3, f.remote.listCount(domain.CollectionTags))
	ids, err := f.cache.ListIDs(context.Background(), domain.CollectionTags)
	require.NoError(t, err)
	assert.Len(t, ids, 250)
}

func TestSyncOrchestrator_PullsEveryCollectionInOrder(t *testing.T) {
	f := newSyncFixture(10)
	var order []domain.Collection
	f.remote.listHook = func(c domain.Collection, page int) {
		if page == 1 {
			order = append(order, c)
		}
	}
	f.remote.put(domain.CollectionDocuments, 1, "Invoice")
	f.remote.put(domain.CollectionTags, 2, "finance")

	require.NoError(t, f.orch.PerformFullSync(context.Background()))

	assert.Equal(t, domain.PullOrder, order)
	for _, c := range domain.PullOrder {
		f.meta(t, domain.MetaLastSync(c))
	}
	assert.Equal(t, "1", f.meta(t, domain.MetaLastSyncedDocumentsCount))
	assert.Equal(t, "0", f.meta(t, domain.MetaLastRemovedDocumentCount))
	assert.Equal(t, "0", f.meta(t, domain.MetaLastTrashSweptCount))
	_, err := time.Parse(time.RFC3339Nano, f.meta(t, domain.MetaLastFullSync))
	assert.NoError(t, err)
}

func TestSyncOrchestrator_RemovesOrphans(t *testing.T) {
	f := newSyncFixture(100)
	ctx := context.Background()
	f.seedCache(t, domain.CollectionDocuments, 1, "kept")
	f.seedCache(t, domain.CollectionDocuments, 2, "gone")
	f.seedCache(t, domain.CollectionDocuments, 3, "kept too")
	require.NoError(t, f.cache.SoftDelete(ctx, domain.CollectionDocuments, 3, time.Now()))
	f.seedCache(t, domain.CollectionTags, 7, "other collection")
	f.remote.put(domain.CollectionDocuments, 1, "kept")
	f.remote.put(domain.CollectionDocuments, 3, "kept too")
	f.remote.put(domain.CollectionTags, 7, "other collection")

	require.NoError(t, f.orch.PerformFullSync(ctx))

	ids, err := f.cache.ListIDs(ctx, domain.CollectionDocuments)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	// Without a queued delete, an id the server returns is live again.
	doc3, err := f.cache.Get(ctx, domain.CollectionDocuments, 3)
	require.NoError(t, err)
	assert.False(t, doc3.IsDeleted)
	assert.Nil(t, doc3.DeletedAt)

	_, err = f.cache.Get(ctx, domain.CollectionTags, 7)
	assert.NoError(t, err)

	status, err := f.orch.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.DocumentsSynced)
	assert.Equal(t, 1, status.DocumentsRemoved)
	assert.False(t, status.Running)
	assert.False(t, status.LastFullSync.IsZero())
}

func TestSyncOrchestrator_ConvergesWithServer(t *testing.T) {
	f := newSyncFixture(3)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 5, 8} {
		f.seedCache(t, domain.CollectionCorrespondents, id, "stale")
	}
	for _, id := range []int64{2, 3, 8, 9, 10, 11, 12} {
		f.remote.put(domain.CollectionCorrespondents, id, "fresh")
	}

	require.NoError(t, f.orch.PerformFullSync(ctx))

	entities, err := f.cache.List(ctx, domain.CollectionCorrespondents, false)
	require.NoError(t, err)
	ids := make([]int64, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
		assert.Equal(t, "fresh", e.Name)
		assert.False(t, e.LastSyncedAt.IsZero())
	}
	assert.Equal(t, []int64{2, 3, 8, 9, 10, 11, 12}, ids)
}

func TestSyncOrchestrator_ServerCopyClearsLocalTrash(t *testing.T) {
	f := newSyncFixture(100)
	ctx := context.Background()
	for _, id := range []int64{1, 2} {
		f.seedCache(t, domain.CollectionDocuments, id, "restored on server")
		f.remote.put(domain.CollectionDocuments, id, "restored on server")
		require.NoError(t, f.cache.SoftDelete(ctx, domain.CollectionDocuments, id, time.Now()))
	}
	// Document 2 still has a delete waiting to be pushed.
	f.remote.deleteErr = &domain.APIError{StatusCode: http.StatusServiceUnavailable}
	queued := int64(2)
	require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
		EntityType: domain.EntityDocument, EntityID: &queued, ChangeType: domain.ChangeDelete,
	}))

	require.NoError(t, f.orch.PerformFullSync(ctx))

	live, err := f.cache.List(ctx, domain.CollectionDocuments, false)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, int64(1), live[0].ID)

	doc2, err := f.cache.Get(ctx, domain.CollectionDocuments, 2)
	require.NoError(t, err)
	assert.True(t, doc2.IsDeleted)
}

func TestSyncOrchestrator_PushesPendingChanges(t *testing.T) {
	f := newSyncFixture(100)
	ctx := context.Background()
	f.remote.put(domain.CollectionDocuments, 1, "Old title")
	f.remote.put(domain.CollectionDocuments, 2, "To delete")
	f.seedCache(t, domain.CollectionDocuments, 1, "Old title")
	f.seedCache(t, domain.CollectionDocuments, 2, "To delete")

	id1, id2 := int64(1), int64(2)
	require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
		EntityType: domain.EntityDocument, EntityID: &id1, ChangeType: domain.ChangeUpdate,
		ChangeData: json.RawMessage(`{"title":"New title"}`),
	}))
	require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
		EntityType: domain.EntityDocument, EntityID: &id2, ChangeType: domain.ChangeDelete,
	}))
	require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
		EntityType: domain.EntityTag, ChangeType: domain.ChangeCreate,
		ChangeData: json.RawMessage(`{"name":"receipts"}`),
	}))

	require.NoError(t, f.orch.PerformFullSync(ctx))

	count, err := f.pending.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	doc, err := f.cache.Get(ctx, domain.CollectionDocuments, 1)
	require.NoError(t, err)
	assert.Equal(t, "New title", doc.Name)

	_, err = f.cache.Get(ctx, domain.CollectionDocuments, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, f.remote.has(domain.CollectionDocuments, 2))

	tags, err := f.cache.List(ctx, domain.CollectionTags, false)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "receipts", tags[0].Name)
}

func TestSyncOrchestrator_PushFailureIsRecordedAndShadowsPull(t *testing.T) {
	f := newSyncFixture(100)
	ctx := context.Background()
	f.remote.put(domain.CollectionDocuments, 1, "Server title")
	f.seedCache(t, domain.CollectionDocuments, 1, "Local title")
	f.remote.updateErr = &domain.APIError{StatusCode: http.StatusBadGateway, Message: "bad gateway"}

	id := int64(1)
	require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
		EntityType: domain.EntityDocument, EntityID: &id, ChangeType: domain.ChangeUpdate,
		ChangeData: json.RawMessage(`{"title":"Local title"}`),
	}))

	require.NoError(t, f.orch.PerformFullSync(ctx))

	changes, err := f.pending.List(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, 1, changes[0].SyncAttempts)
	require.NotNil(t, changes[0].LastError)
	assert.Contains(t, *changes[0].LastError, "bad gateway")

	doc, err := f.cache.Get(ctx, domain.CollectionDocuments, 1)
	require.NoError(t, err)
	assert.Equal(t, "Local title", doc.Name)
	assert.Equal(t, "1", f.meta(t, domain.MetaLastSyncedDocumentsCount))

	status, err := f.orch.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.PendingChanges)
}

func TestSyncOrchestrator_PushContinuesPastFailedChange(t *testing.T) {
	f := newSyncFixture(100)
	ctx := context.Background()
	ids := []int64{1, 2, 3}
	for _, id := range ids {
		f.remote.put(domain.CollectionDocuments, id, "Server title")
		f.seedCache(t, domain.CollectionDocuments, id, "Server title")
	}
	f.remote.updateErrs = map[int64]error{
		2: &domain.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"},
	}
	for _, id := range ids {
		docID := id
		require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
			EntityType: domain.EntityDocument, EntityID: &docID, ChangeType: domain.ChangeUpdate,
			ChangeData: json.RawMessage(`{"title":"Edited ` + strconv.FormatInt(id, 10) + `"}`),
		}))
	}

	require.NoError(t, f.orch.PerformFullSync(ctx))

	changes, err := f.pending.List(ctx)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.NotNil(t, changes[0].EntityID)
	assert.Equal(t, int64(2), *changes[0].EntityID)
	assert.Equal(t, 1, changes[0].SyncAttempts)
	require.NotNil(t, changes[0].LastError)
	assert.Contains(t, *changes[0].LastError, "boom")

	assert.Equal(t, 3, f.remote.updates)
	for _, id := range []int64{1, 3} {
		doc, err := f.cache.Get(ctx, domain.CollectionDocuments, id)
		require.NoError(t, err)
		assert.Equal(t, "Edited "+strconv.FormatInt(id, 10), doc.Name)
	}
}

func TestSyncOrchestrator_MissingRemoteRecordCountsAsPushed(t *testing.T) {
	f := newSyncFixture(100)
	ctx := context.Background()

	gone := int64(42)
	require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
		EntityType: domain.EntityDocument, EntityID: &gone, ChangeType: domain.ChangeDelete,
	}))
	require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
		EntityType: domain.EntityDocument, EntityID: &gone, ChangeType: domain.ChangeUpdate,
		ChangeData: json.RawMessage(`{"title":"x"}`),
	}))

	require.NoError(t, f.orch.PerformFullSync(ctx))

	count, err := f.pending.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSyncOrchestrator_DropsUnsupportedChanges(t *testing.T) {
	f := newSyncFixture(100)
	ctx := context.Background()
	require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
		EntityType: "saved_view", ChangeType: domain.ChangeCreate,
		ChangeData: json.RawMessage(`{}`),
	}))
	require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
		EntityType: domain.EntityTag, ChangeType: domain.ChangeUpdate,
		ChangeData: json.RawMessage(`{"name":"no id"}`),
	}))

	require.NoError(t, f.orch.PerformFullSync(ctx))

	count, err := f.pending.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, f.remote.creates)
	assert.Zero(t, f.remote.updates)
}

func TestSyncOrchestrator_PullFailureAbortsCycle(t *testing.T) {
	f := newSyncFixture(100)
	ctx := context.Background()
	f.seedCache(t, domain.CollectionDocuments, 1, "untouched")
	f.remote.listErr[domain.CollectionDocumentTypes] = &domain.APIError{StatusCode: http.StatusInternalServerError}

	err := f.orch.PerformFullSync(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pull document_types")

	_, ok, err := f.metadata.Get(ctx, domain.MetaLastFullSync)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, f.remote.listCount(domain.CollectionDocuments))

	_, err = f.cache.Get(ctx, domain.CollectionDocuments, 1)
	assert.NoError(t, err, "documents must not be touched after an earlier failure")
}

func TestSyncOrchestrator_SweepsExpiredTrash(t *testing.T) {
	f := newSyncFixture(100)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.orch.now = func() time.Time { return now }
	f.remote.deleteErr = &domain.APIError{StatusCode: http.StatusServiceUnavailable}

	for _, id := range []int64{1, 2} {
		f.remote.put(domain.CollectionDocuments, id, "trashed")
		f.seedCache(t, domain.CollectionDocuments, id, "trashed")
		docID := id
		require.NoError(t, f.pending.Add(ctx, &domain.PendingChange{
			EntityType: domain.EntityDocument, EntityID: &docID, ChangeType: domain.ChangeDelete,
		}))
	}
	require.NoError(t, f.cache.SoftDelete(ctx, domain.CollectionDocuments, 1, now.Add(-31*24*time.Hour)))
	require.NoError(t, f.cache.SoftDelete(ctx, domain.CollectionDocuments, 2, now.Add(-time.Hour)))

	require.NoError(t, f.orch.PerformFullSync(ctx))

	ids, err := f.cache.ListIDs(ctx, domain.CollectionDocuments)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)
	assert.Equal(t, "1", f.meta(t, domain.MetaLastTrashSweptCount))
}

func TestSyncOrchestrator_RejectsConcurrentCycle(t *testing.T) {
	f := newSyncFixture(100)
	started := make(chan struct{})
	release := make(chan struct{})
	f.remote.listHook = func(c domain.Collection, _ int) {
		if c == domain.CollectionTags {
			close(started)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- f.orch.PerformFullSync(context.Background())
	}()
	<-started

	status, err := f.orch.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Running)

	err = f.orch.PerformFullSync(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestSyncOrchestrator_CancelledContext(t *testing.T) {
	f := newSyncFixture(100)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.orch.PerformFullSync(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

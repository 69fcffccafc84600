package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

func testEntity(collection domain.Collection, id int64, name string) *domain.CachedEntity {
	payload, _ := json.Marshal(map[string]any{"id": id, "name": name})
	return &domain.CachedEntity{
		Collection:   collection,
		ID:           id,
		Name:         name,
		Payload:      payload,
		LastSyncedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCacheStore_InsertAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	cache := store.CacheStore()

	require.NoError(t, cache.Insert(ctx, testEntity(domain.CollectionTags, 1, "inbox")))

	got, err := cache.Get(ctx, domain.CollectionTags, 1)
	require.NoError(t, err)
	assert.Equal(t, "inbox", got.Name)
	assert.False(t, got.IsDeleted)
	assert.Nil(t, got.DeletedAt)
	assert.JSONEq(t, `{"id":1,"name":"inbox"}`, string(got.Payload))

	err = cache.Insert(ctx, testEntity(domain.CollectionTags, 1, "dup"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = cache.Get(ctx, domain.CollectionDocuments, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCacheStore_Update(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	cache := store.CacheStore()

	err := cache.Update(ctx, testEntity(domain.CollectionTags, 9, "missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, cache.Insert(ctx, testEntity(domain.CollectionTags, 9, "old")))
	require.NoError(t, cache.Update(ctx, testEntity(domain.CollectionTags, 9, "new")))

	got, err := cache.Get(ctx, domain.CollectionTags, 9)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
}

func TestCacheStore_UpsertPreservesTrash(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	cache := store.CacheStore()

	require.NoError(t, cache.Upsert(ctx, testEntity(domain.CollectionDocuments, 3, "v1")))
	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, cache.SoftDelete(ctx, domain.CollectionDocuments, 3, at))

	require.NoError(t, cache.Upsert(ctx, testEntity(domain.CollectionDocuments, 3, "v2")))

	got, err := cache.Get(ctx, domain.CollectionDocuments, 3)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Name)
	assert.True(t, got.IsDeleted)
	require.NotNil(t, got.DeletedAt)
	assert.True(t, at.Equal(*got.DeletedAt))
}

func TestCacheStore_SoftDeleteAndRestore(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	cache := store.CacheStore()

	require.NoError(t, cache.Insert(ctx, testEntity(domain.CollectionDocuments, 1, "a")))
	require.NoError(t, cache.Insert(ctx, testEntity(domain.CollectionDocuments, 2, "b")))
	require.NoError(t, cache.SoftDelete(ctx, domain.CollectionDocuments, 1, time.Now()))

	visible, err := cache.List(ctx, domain.CollectionDocuments, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, int64(2), visible[0].ID)

	all, err := cache.List(ctx, domain.CollectionDocuments, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, cache.Restore(ctx, domain.CollectionDocuments, 1))
	visible, err = cache.List(ctx, domain.CollectionDocuments, false)
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	assert.ErrorIs(t, cache.SoftDelete(ctx, domain.CollectionDocuments, 99, time.Now()), domain.ErrNotFound)
	assert.ErrorIs(t, cache.Restore(ctx, domain.CollectionDocuments, 99), domain.ErrNotFound)
}

func TestCacheStore_HardDeleteAndListIDs(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	cache := store.CacheStore()

	for _, id := range []int64{5, 1, 3} {
		require.NoError(t, cache.Insert(ctx, testEntity(domain.CollectionCorrespondents, id, "c")))
	}
	require.NoError(t, cache.Insert(ctx, testEntity(domain.CollectionTags, 1, "t")))

	ids, err := cache.ListIDs(ctx, domain.CollectionCorrespondents)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, ids)

	require.NoError(t, cache.HardDelete(ctx, domain.CollectionCorrespondents, []int64{1, 5, 42}))

	ids, err = cache.ListIDs(ctx, domain.CollectionCorrespondents)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)

	// Other collections are untouched.
	_, err = cache.Get(ctx, domain.CollectionTags, 1)
	assert.NoError(t, err)

	assert.NoError(t, cache.HardDelete(ctx, domain.CollectionTags, nil))
}

func TestCacheStore_ListDeletedBefore(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	cache := store.CacheStore()
	now := time.Now().UTC().Truncate(time.Second)

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, cache.Insert(ctx, testEntity(domain.CollectionDocuments, id, "d")))
	}
	require.NoError(t, cache.SoftDelete(ctx, domain.CollectionDocuments, 1, now.Add(-40*24*time.Hour)))
	require.NoError(t, cache.SoftDelete(ctx, domain.CollectionDocuments, 2, now.Add(-time.Hour)))

	ids, err := cache.ListDeletedBefore(ctx, domain.CollectionDocuments, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestCacheStore_RejectsUnknownCollection(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.CacheStore().Upsert(context.Background(), testEntity("notes", 1, "x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("server.url", "https://paperless.local"))

	val, ok := store.Get("server.url")
	assert.True(t, ok)
	assert.Equal(t, "https://paperless.local", val)
	assert.Equal(t, "https://paperless.local", store.GetString("server.url"))
	assert.Equal(t, "", store.GetString("nonexistent"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("sync.page_size", 50))
	require.NoError(t, store.Set("health.enabled", true))
	require.NoError(t, store.Set("sync.interval", "15m"))
	require.NoError(t, store.Set("health.probe_timeout", 5*time.Second))
	require.NoError(t, store.Set("upload.extensions", []string{".pdf", ".jpg"}))

	assert.Equal(t, 50, store.GetInt("sync.page_size"))
	assert.True(t, store.GetBool("health.enabled"))
	assert.Equal(t, 15*time.Minute, store.GetDuration("sync.interval"))
	assert.Equal(t, 5*time.Second, store.GetDuration("health.probe_timeout"))
	assert.Equal(t, []string{".pdf", ".jpg"}, store.GetStringSlice("upload.extensions"))

	assert.Equal(t, 0, store.GetInt("sync.interval"))
	assert.False(t, store.GetBool("sync.page_size"))
	assert.Zero(t, store.GetDuration("server.missing"))
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("server.url", "https://paperless.local"))
	require.NoError(t, store.Set("server.token", "secret"))
	require.NoError(t, store.Set("sync.page_size", 25))

	content, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(content), "[server]")
	assert.Contains(t, string(content), "[sync]")

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "secret", reloaded.GetString("server.token"))
	assert.Equal(t, 25, reloaded.GetInt("sync.page_size"))
	assert.Equal(t, []string{"server.token", "server.url", "sync.page_size"}, reloaded.Keys())
}

func TestConfigStore_Delete(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("server.token", "secret"))
	require.NoError(t, store.Delete("server.token"))

	_, ok := store.Get("server.token")
	assert.False(t, ok)

	reloaded, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok = reloaded.Get("server.token")
	assert.False(t, ok)
}

func TestConfigStore_RejectsConflictingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("server.url", "x"))
	assert.Error(t, store.Set("server", "y"))
	assert.Error(t, store.Set("", "y"))
}

func TestFlattenMap(t *testing.T) {
	flat := flattenMap(map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	}, "")

	assert.Equal(t, map[string]any{"a.b": 1, "a.c.d": "x", "e": true}, flat)

	nested, err := nestMap(flat)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": 1, "c": map[string]any{"d": "x"}},
		"e": true,
	}, nested)
}

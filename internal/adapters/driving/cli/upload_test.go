package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

func writeTempFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	return path
}

func TestUploadAdd_SingleFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := writeTempFile(t, t.TempDir(), "receipt.pdf")

	out, err := executeCommand("upload", "add", path, "--title", "Hardware store", "--tag", "3", "--tag", "5")

	require.NoError(t, err)
	require.Len(t, ts.queue.enqueued, 1)
	upload := ts.queue.enqueued[0]
	assert.Equal(t, path, upload.URI)
	assert.Empty(t, upload.AdditionalURIs)
	assert.Equal(t, "Hardware store", upload.Title)
	assert.Equal(t, []int64{3, 5}, upload.TagIDs)
	assert.Nil(t, upload.DocumentTypeID)
	assert.Nil(t, upload.CorrespondentID)
	assert.Contains(t, out, "Queued upload 1 (1 page).")
}

func TestUploadAdd_MultiPage(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	p1 := writeTempFile(t, dir, "page1.jpg")
	p2 := writeTempFile(t, dir, "page2.jpg")
	p3 := writeTempFile(t, dir, "page3.jpg")

	out, err := executeCommand("upload", "add", p1, p2, p3, "--document-type", "7", "--correspondent", "0")

	require.NoError(t, err)
	require.Len(t, ts.queue.enqueued, 1)
	upload := ts.queue.enqueued[0]
	assert.Equal(t, []string{p1, p2, p3}, upload.AllURIs())
	require.NotNil(t, upload.DocumentTypeID)
	assert.Equal(t, int64(7), *upload.DocumentTypeID)
	require.NotNil(t, upload.CorrespondentID)
	assert.Equal(t, int64(0), *upload.CorrespondentID)
	assert.Contains(t, out, "(3 pages)")
}

func TestUploadAdd_FlagsDoNotLeakBetweenRuns(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.pdf")

	_, err := executeCommand("upload", "add", path, "--title", "First", "--document-type", "2")
	require.NoError(t, err)
	_, err = executeCommand("upload", "add", path)
	require.NoError(t, err)

	require.Len(t, ts.queue.enqueued, 2)
	assert.Empty(t, ts.queue.enqueued[1].Title)
	assert.Nil(t, ts.queue.enqueued[1].DocumentTypeID)
}

func TestUploadAdd_MissingFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("upload", "add", filepath.Join(t.TempDir(), "missing.pdf"))

	require.Error(t, err)
	assert.Empty(t, ts.queue.enqueued)
}

func TestUploadAdd_Directory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("upload", "add", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestUploadAdd_RequiresArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("upload", "add")

	assert.Error(t, err)
}

func TestUploadRun_Success(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.queue.uploads = []domain.PendingUpload{{ID: 1, Status: domain.UploadCompleted}}

	out, err := executeCommand("upload", "run")

	require.NoError(t, err)
	assert.Equal(t, 1, ts.uploads.calls)
	assert.Contains(t, out, "Upload 1: 100%")
	assert.Contains(t, out, "Completed: 1")
	assert.Contains(t, out, "Upload queue drained.")
	assert.Nil(t, ts.uploads.progress)
}

func TestUploadRun_Retry(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.uploads.result = domain.WorkRetry

	out, err := executeCommand("upload", "run")

	require.NoError(t, err)
	assert.Contains(t, out, "Some uploads will be retried later.")
}

func TestUploadRun_Failure(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.uploads.result = domain.WorkFailure

	_, err := executeCommand("upload", "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload failed")
}

func TestUploadRun_Unavailable(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	uploadAgent = nil

	_, err := executeCommand("upload", "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server not configured")
}

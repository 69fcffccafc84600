package paperless

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

const uploadPath = "api/documents/post_document/"

// uploadFile is one page of an upload.
type uploadFile struct {
	path string
	size int64
}

// Upload sends a single file for consumption.
func (c *Client) Upload(
	ctx context.Context, uri string, meta domain.UploadMetadata, progress domain.ProgressFunc,
) (*domain.UploadResult, error) {
	return c.upload(ctx, []string{uri}, meta, progress)
}

// UploadMultiPage sends the pages of one document as ordered repeated
// document parts of a single request.
func (c *Client) UploadMultiPage(
	ctx context.Context, uris []string, meta domain.UploadMetadata, progress domain.ProgressFunc,
) (*domain.UploadResult, error) {
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: no pages to upload", domain.ErrInvalidInput)
	}
	return c.upload(ctx, uris, meta, progress)
}

// upload streams a multipart body through a pipe so large scans are never
// buffered in memory. Uploads are not retried.
func (c *Client) upload(
	ctx context.Context, uris []string, meta domain.UploadMetadata, progress domain.ProgressFunc,
) (*domain.UploadResult, error) {
	files := make([]uploadFile, 0, len(uris))
	var total int64
	for _, uri := range uris {
		f, err := statUploadFile(uri)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
		total += f.size
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	tracker := &progressTracker{total: total, fn: progress}
	go func() {
		pw.CloseWithError(writeUploadBody(mw, files, meta, tracker))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(uploadPath, nil), pr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(HeaderRequestID, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", transportError(err))
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := c.handleResponse(resp, &raw); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	taskID, err := parseTaskID(raw)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	return &domain.UploadResult{TaskID: taskID}, nil
}

func writeUploadBody(
	mw *multipart.Writer, files []uploadFile, meta domain.UploadMetadata, tracker *progressTracker,
) error {
	if meta.Title != "" {
		if err := mw.WriteField("title", meta.Title); err != nil {
			return err
		}
	}
	for _, tag := range meta.TagIDs {
		if err := mw.WriteField("tags", strconv.FormatInt(tag, 10)); err != nil {
			return err
		}
	}
	if meta.DocumentTypeID != nil {
		if err := mw.WriteField("document_type", strconv.FormatInt(*meta.DocumentTypeID, 10)); err != nil {
			return err
		}
	}
	if meta.CorrespondentID != nil {
		if err := mw.WriteField("correspondent", strconv.FormatInt(*meta.CorrespondentID, 10)); err != nil {
			return err
		}
	}
	for _, f := range files {
		if err := writeFilePart(mw, f, tracker); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFilePart(mw *multipart.Writer, f uploadFile, tracker *progressTracker) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	name := filepath.Base(f.path)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="document"; filename=%q`, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, io.TeeReader(file, tracker)); err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	return nil
}

// statUploadFile resolves a local path or file:// URI.
func statUploadFile(uri string) (uploadFile, error) {
	path, err := localPath(uri)
	if err != nil {
		return uploadFile{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return uploadFile{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return uploadFile{}, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	return uploadFile{path: path, size: info.Size()}, nil
}

func localPath(uri string) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("%w: empty upload uri", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(uri, "file://") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("%w: upload uri %q: %v", domain.ErrInvalidInput, uri, err)
	}
	return u.Path, nil
}

// parseTaskID accepts a JSON string or bare text holding a UUID.
func parseTaskID(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = strings.TrimSpace(string(raw))
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTaskID, s)
	}
	return id.String(), nil
}

// progressTracker counts file bytes written to the request body.
type progressTracker struct {
	mu    sync.Mutex
	sent  int64
	total int64
	fn    domain.ProgressFunc
}

func (p *progressTracker) Write(b []byte) (int, error) {
	p.mu.Lock()
	p.sent += int64(len(b))
	sent := p.sent
	p.mu.Unlock()
	if p.fn != nil {
		p.fn(sent, p.total)
	}
	return len(b), nil
}

package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

const (
	// DefaultTimeout bounds every non-upload request.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the number of attempts for idempotent requests.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second

	// HeaderRequestID correlates client requests with server logs.
	HeaderRequestID = "X-Request-ID"

	// ProbePageSize keeps the reachability probe cheap.
	ProbePageSize = 1
)

var nowFunc = time.Now

// Ensure Client implements the RemoteAPI interface.
var _ driven.RemoteAPI = (*Client)(nil)

// Config configures a Client.
type Config struct {
	// BaseURL is the server root, e.g. https://paperless.example.com.
	BaseURL string

	// Timeout bounds non-upload requests. Zero uses DefaultTimeout.
	Timeout time.Duration

	// MaxRetries is the attempt budget for idempotent calls. Zero uses MaxRetries.
	MaxRetries int

	// RetryDelay is the first retry delay, doubled per attempt. Zero uses RetryDelay.
	RetryDelay time.Duration

	// RateLimit configures client-side throttling. Zero uses DefaultRateLimit.
	RateLimit RateLimitConfig

	// Transport is the base round tripper. Nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is a typed REST client for the document server.
type Client struct {
	baseURL     *url.URL
	http        *http.Client
	rateLimiter *RateLimiter
	timeout     time.Duration
	maxRetries  int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client authenticated by the given token provider.
func NewClient(cfg Config, tokens driven.TokenProvider) (*Client, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, fmt.Errorf("%w: token provider is required", domain.ErrInvalidInput)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	rl := cfg.RateLimit
	if rl == (RateLimitConfig{}) {
		rl = DefaultRateLimit
	}

	c := &Client{
		baseURL: base,
		http: &http.Client{
			Transport: &oauth2.Transport{
				Source: NewTokenSource(context.Background(), tokens),
				Base:   transport,
			},
		},
		rateLimiter: NewRateLimiter(rl),
		timeout:     cfg.Timeout,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
		sleep:       sleepContext,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries <= 0 {
		c.maxRetries = MaxRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = RetryDelay
	}
	return c, nil
}

// BaseURL returns the server root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// pageResponse is the paginated list envelope.
type pageResponse struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

// ListPage fetches one page of a collection.
func (c *Client) ListPage(
	ctx context.Context, collection domain.Collection, page, pageSize int,
) (*domain.Page, error) {
	if !collection.IsValid() {
		return nil, fmt.Errorf("%w: collection %q", domain.ErrUnsupportedType, collection)
	}
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("%w: page %d size %d", domain.ErrInvalidInput, page, pageSize)
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var resp pageResponse
	err := c.doJSON(ctx, request{
		method:     http.MethodGet,
		path:       collectionPath(collection),
		query:      query,
		idempotent: true,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("list %s page %d: %w", collection, page, err)
	}

	now := nowFunc().UTC()
	out := &domain.Page{
		Count:   resp.Count,
		Results: make([]domain.CachedEntity, 0, len(resp.Results)),
	}
	if resp.Next != nil {
		out.Next = *resp.Next
	}
	if resp.Previous != nil {
		out.Previous = *resp.Previous
	}
	for _, raw := range resp.Results {
		entity, err := decodeEntity(collection, raw, now)
		if err != nil {
			return nil, fmt.Errorf("list %s page %d: %w", collection, page, err)
		}
		out.Results = append(out.Results, entity)
	}
	return out, nil
}

// Create posts a new record and returns the server's copy.
func (c *Client) Create(
	ctx context.Context, collection domain.Collection, data json.RawMessage,
) (*domain.CachedEntity, error) {
	if !collection.IsValid() {
		return nil, fmt.Errorf("%w: collection %q", domain.ErrUnsupportedType, collection)
	}
	var raw json.RawMessage
	err := c.doJSON(ctx, request{
		method:      http.MethodPost,
		path:        collectionPath(collection),
		body:        data,
		contentType: "application/json",
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", collection, err)
	}
	entity, err := decodeEntity(collection, raw, nowFunc().UTC())
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", collection, err)
	}
	return &entity, nil
}

// Update patches a record and returns the server's copy.
func (c *Client) Update(
	ctx context.Context, collection domain.Collection, id int64, data json.RawMessage,
) (*domain.CachedEntity, error) {
	if !collection.IsValid() {
		return nil, fmt.Errorf("%w: collection %q", domain.ErrUnsupportedType, collection)
	}
	var raw json.RawMessage
	err := c.doJSON(ctx, request{
		method:      http.MethodPatch,
		path:        recordPath(collection, id),
		body:        data,
		contentType: "application/json",
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", collection, id, err)
	}
	entity, err := decodeEntity(collection, raw, nowFunc().UTC())
	if err != nil {
		return nil, fmt.Errorf("update %s %d: %w", collection, id, err)
	}
	return &entity, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, collection domain.Collection, id int64) error {
	if !collection.IsValid() {
		return fmt.Errorf("%w: collection %q", domain.ErrUnsupportedType, collection)
	}
	err := c.doJSON(ctx, request{
		method:     http.MethodDelete,
		path:       recordPath(collection, id),
		idempotent: true,
	}, nil)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", collection, id, err)
	}
	return nil
}

// TrashAction restores or permanently deletes trashed documents.
func (c *Client) TrashAction(ctx context.Context, ids []int64, action domain.TrashAction) error {
	if !action.IsValid() {
		return fmt.Errorf("%w: trash action %q", domain.ErrInvalidInput, action)
	}
	if len(ids) == 0 {
		return nil
	}
	body, err := json.Marshal(struct {
		Documents []int64            `json:"documents"`
		Action    domain.TrashAction `json:"action"`
	}{Documents: ids, Action: action})
	if err != nil {
		return fmt.Errorf("encode trash action: %w", err)
	}
	err = c.doJSON(ctx, request{
		method:      http.MethodPost,
		path:        "api/trash/",
		body:        body,
		contentType: "application/json",
		idempotent:  true,
	}, nil)
	if err != nil {
		return fmt.Errorf("trash %s: %w", action, err)
	}
	return nil
}

// Probe performs a minimal request to verify reachability. It is never retried.
// Any well-formed HTTP error is returned as *domain.APIError.
func (c *Client) Probe(ctx context.Context) error {
	query := url.Values{}
	query.Set("page", "1")
	query.Set("page_size", strconv.Itoa(ProbePageSize))
	return c.doJSON(ctx, request{
		method: http.MethodGet,
		path:   collectionPath(domain.CollectionTags),
		query:  query,
	}, nil)
}

// request describes one API call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	idempotent  bool
}

// doJSON executes the request with retries and decodes a JSON response into out.
func (c *Client) doJSON(ctx context.Context, req request, out any) error {
	attempts := 1
	if req.idempotent {
		attempts = c.maxRetries
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if werr := c.sleep(ctx, c.backoff(attempt, err)); werr != nil {
				return errors.Join(err, werr)
			}
		}
		err = c.doOnce(ctx, req, out)
		if err == nil || !domain.IsRetryable(err) {
			return err
		}
	}
	return err
}

// backoff returns the delay before the given retry attempt (1-based).
// A server Retry-After hint wins when longer.
func (c *Client) backoff(attempt int, lastErr error) time.Duration {
	delay := c.retryDelay << (attempt - 1)
	if apiErr, ok := domain.AsAPIError(lastErr); ok && apiErr.RetryAfter > delay {
		delay = apiErr.RetryAfter
	}
	return delay
}

func (c *Client) doOnce(ctx context.Context, req request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var body io.Reader = http.NoBody
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.resolve(req.path, req.query), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(HeaderRequestID, uuid.NewString())
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, out)
}

// transportError strips the url.Error wrapper from token source failures,
// which would otherwise look like retryable network errors.
func transportError(err error) error {
	if errors.Is(err, domain.ErrAuthRequired) {
		return domain.ErrAuthRequired
	}
	return err
}

// handleResponse maps error statuses to *domain.APIError and decodes success bodies.
func (c *Client) handleResponse(resp *http.Response, out any) error {
	c.rateLimiter.UpdateFromResponse(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return newAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) resolve(path string, query url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// parseBaseURL validates the server root and ensures a trailing slash so
// relative API paths resolve beneath any sub-path prefix.
func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, domain.ErrNotConfigured
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: server url: %v", domain.ErrInvalidInput, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: server url %q", domain.ErrInvalidInput, raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u, nil
}

func collectionPath(collection domain.Collection) string {
	return "api/" + string(collection) + "/"
}

func recordPath(collection domain.Collection, id int64) string {
	return collectionPath(collection) + strconv.FormatInt(id, 10) + "/"
}

// decodeEntity extracts the id and display name from a server record.
func decodeEntity(collection domain.Collection, raw json.RawMessage, now time.Time) (domain.CachedEntity, error) {
	var head struct {
		ID    *int64 `json:"id"`
		Name  string `json:"name"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return domain.CachedEntity{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if head.ID == nil {
		return domain.CachedEntity{}, fmt.Errorf("%w: %s record without id", ErrInvalidResponse, collection)
	}

	name := head.Name
	if collection == domain.CollectionDocuments {
		name = head.Title
	}
	return domain.CachedEntity{
		Collection:   collection,
		ID:           *head.ID,
		Name:         name,
		Payload:      append(json.RawMessage(nil), raw...),
		LastSyncedAt: now,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}

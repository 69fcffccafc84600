package paperless

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// Client-side errors.
var (
	// ErrInvalidResponse indicates the server returned a body the client cannot parse.
	ErrInvalidResponse = errors.New("paperless: invalid response")

	// ErrInvalidTaskID indicates the upload acknowledgement was not a task UUID.
	ErrInvalidTaskID = errors.New("paperless: invalid task id")
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// newAPIError converts an HTTP error response into a *domain.APIError.
func newAPIError(resp *http.Response) *domain.APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &domain.APIError{
		StatusCode: resp.StatusCode,
		Message:    errorMessage(body),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.URL = resp.Request.URL.String()
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get(HeaderRetryAfter), nowFunc())
	}
	return apiErr
}

// errorMessage extracts a readable message from an error body.
// The server reports errors as {"detail": "..."}, as field maps or as plain text.
func errorMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for k, v := range fields {
			parts = append(parts, fmt.Sprintf("%s: %v", k, v))
		}
		return strings.Join(sortedStrings(parts), "; ")
	}

	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}

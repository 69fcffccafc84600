package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown collection, entity or change type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrServerUnreachable indicates the server is offline or connectivity is missing.
	ErrServerUnreachable = errors.New("server unreachable")

	// ErrNotConfigured indicates the server URL or token has not been set.
	ErrNotConfigured = errors.New("server not configured")

	// Authentication Errors.

	// ErrAuthRequired indicates the server rejected the stored token.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the token lacks permission for the resource.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// APIErrorKind classifies an HTTP error response.
type APIErrorKind string

const (
	APIErrorAuth      APIErrorKind = "auth"
	APIErrorRateLimit APIErrorKind = "rate-limit"
	APIErrorClient    APIErrorKind = "client"
	APIErrorServer    APIErrorKind = "server"
)

// APIError is a well-formed HTTP error response from the server.
// Receiving one proves the transport reached the server.
type APIError struct {
	StatusCode int
	Message    string
	URL        string

	// RetryAfter is the server's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d (URL: %s)", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("api error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Kind maps the status code to its error class.
func (e *APIError) Kind() APIErrorKind {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return APIErrorAuth
	case e.StatusCode == http.StatusTooManyRequests:
		return APIErrorRateLimit
	case e.StatusCode >= 500:
		return APIErrorServer
	default:
		return APIErrorClient
	}
}

// RequiresReauth reports whether the user must log in again.
func (e *APIError) RequiresReauth() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// Unwrap lets errors.Is match the auth and rate-limit sentinels.
func (e *APIError) Unwrap() error {
	switch e.Kind() {
	case APIErrorAuth:
		if e.RequiresReauth() {
			return ErrAuthRequired
		}
		return ErrAuthInvalid
	case APIErrorRateLimit:
		return ErrRateLimited
	case APIErrorClient, APIErrorServer:
		return nil
	}
	return nil
}

// AsAPIError extracts an *APIError from the chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound checks if the error indicates a resource was not found,
// either locally or as a 404 from the server.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRetryable reports whether a generic retry layer may try again.
// Server errors, rate limiting and transport failures are retryable;
// other client errors, auth errors and local validation errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if apiErr, ok := AsAPIError(err); ok {
		kind := apiErr.Kind()
		return kind == APIErrorServer || kind == APIErrorRateLimit
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrServerUnreachable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

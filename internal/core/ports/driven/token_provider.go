package driven

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

// TokenProvider provides the API token for authenticated calls.
type TokenProvider interface {
	// GetToken returns the API token.
	// Returns domain.ErrAuthRequired if no token is stored.
	GetToken(ctx context.Context) (string, error)

	// AuthScheme returns the Authorization header scheme.
	AuthScheme() domain.AuthScheme

	// IsAuthenticated returns true if a token is available.
	IsAuthenticated() bool
}

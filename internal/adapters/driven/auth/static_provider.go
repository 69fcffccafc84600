package auth

import (
	"context"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Ensure StaticTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*StaticTokenProvider)(nil)

// StaticTokenProvider serves a fixed token.
// Used for --token overrides and in tests.
type StaticTokenProvider struct {
	token  string
	scheme domain.AuthScheme
}

// NewStaticTokenProvider creates a token provider for a fixed token.
// An invalid scheme falls back to Token.
func NewStaticTokenProvider(token string, scheme domain.AuthScheme) *StaticTokenProvider {
	if !scheme.IsValid() {
		scheme = domain.AuthSchemeToken
	}
	return &StaticTokenProvider{token: token, scheme: scheme}
}

// GetToken returns the token or domain.ErrAuthRequired when empty.
func (p *StaticTokenProvider) GetToken(_ context.Context) (string, error) {
	if p.token == "" {
		return "", domain.ErrAuthRequired
	}
	return p.token, nil
}

// AuthScheme returns the configured scheme.
func (p *StaticTokenProvider) AuthScheme() domain.AuthScheme {
	return p.scheme
}

// IsAuthenticated returns true if the token is non-empty.
func (p *StaticTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}

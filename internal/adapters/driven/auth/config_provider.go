package auth

import (
	"context"
	"os"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
)

// Config keys and environment variables holding server credentials.
const (
	KeyToken      = "server.token"
	KeyAuthScheme = "server.auth_scheme"
	EnvToken      = "DOCSYNC_TOKEN"
)

// Ensure ConfigTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*ConfigTokenProvider)(nil)

// ConfigTokenProvider reads the API token from the config store.
// The DOCSYNC_TOKEN environment variable takes precedence.
// API tokens don't expire and don't require refresh.
type ConfigTokenProvider struct {
	config driven.ConfigStore
	getenv func(string) string
}

// NewConfigTokenProvider creates a token provider backed by the config store.
func NewConfigTokenProvider(config driven.ConfigStore) *ConfigTokenProvider {
	return &ConfigTokenProvider{
		config: config,
		getenv: os.Getenv,
	}
}

// GetToken returns the stored token or domain.ErrAuthRequired.
func (p *ConfigTokenProvider) GetToken(_ context.Context) (string, error) {
	if token := p.token(); token != "" {
		return token, nil
	}
	return "", domain.ErrAuthRequired
}

// AuthScheme returns the configured scheme, defaulting to Token.
func (p *ConfigTokenProvider) AuthScheme() domain.AuthScheme {
	scheme := domain.AuthScheme(p.config.GetString(KeyAuthScheme))
	if !scheme.IsValid() {
		return domain.AuthSchemeToken
	}
	return scheme
}

// IsAuthenticated returns true if a token is available.
func (p *ConfigTokenProvider) IsAuthenticated() bool {
	return p.token() != ""
}

// SetToken stores a new token and persists the config.
func (p *ConfigTokenProvider) SetToken(token string) error {
	return p.config.Set(KeyToken, token)
}

// Logout removes the stored token.
func (p *ConfigTokenProvider) Logout() error {
	return p.config.Delete(KeyToken)
}

func (p *ConfigTokenProvider) token() string {
	if p.getenv != nil {
		if token := p.getenv(EnvToken); token != "" {
			return token
		}
	}
	return p.config.GetString(KeyToken)
}

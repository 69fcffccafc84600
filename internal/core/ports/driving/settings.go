package driving

import "github.com/custodia-labs/docsync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings with defaults and environment overrides applied.
	Get() (*domain.Settings, error)

	// SetServer stores the server URL and auth scheme.
	SetServer(url string, scheme domain.AuthScheme) error

	// SetToken stores the API token. An empty token logs out.
	SetToken(token string) error

	// Set stores a single configuration key.
	Set(key string, value any) error

	// Validate checks the server settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}

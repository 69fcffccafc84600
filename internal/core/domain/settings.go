package domain

import (
	"fmt"
	"net/url"
	"time"
)

// AuthScheme is the Authorization header scheme sent with the token.
type AuthScheme string

const (
	AuthSchemeToken  AuthScheme = "Token"
	AuthSchemeBearer AuthScheme = "Bearer"
)

// IsValid returns true if the scheme is supported.
func (s AuthScheme) IsValid() bool {
	return s == AuthSchemeToken || s == AuthSchemeBearer
}

// ServerSettings holds the remote server connection.
type ServerSettings struct {
	// URL is the server base URL, e.g. https://paperless.example.com.
	URL string

	// Token is the API token.
	Token string

	// AuthScheme is the Authorization scheme.
	AuthScheme AuthScheme
}

// IsConfigured returns true if a URL and token are set.
func (s ServerSettings) IsConfigured() bool {
	return s.URL != "" && s.Token != ""
}

// Validate checks the URL is absolute http(s).
func (s ServerSettings) Validate() error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("%w: server url: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: server url must be http or https", ErrInvalidInput)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: server url has no host", ErrInvalidInput)
	}
	if !s.AuthScheme.IsValid() {
		return fmt.Errorf("%w: auth scheme %q", ErrInvalidInput, s.AuthScheme)
	}
	return nil
}

// SyncSettings holds full sync behaviour.
type SyncSettings struct {
	// PageSize is the number of records requested per page.
	PageSize int

	// Interval is the periodic sync cadence.
	Interval time.Duration
}

// HealthSettings holds server health monitor configuration.
type HealthSettings struct {
	// ProbeTimeout bounds a single reachability probe.
	ProbeTimeout time.Duration

	// ForegroundInterval is the base polling interval while a user is watching.
	ForegroundInterval time.Duration

	// BackgroundInterval is the base polling interval otherwise.
	BackgroundInterval time.Duration

	// MaxInterval caps the backed-off polling interval.
	MaxInterval time.Duration

	// MaxFailures opens the circuit after this many consecutive failures.
	MaxFailures int
}

// UploadSettings holds upload queue configuration.
type UploadSettings struct {
	// InboxDir is watched for new captures. Empty disables the watcher.
	InboxDir string

	// Interval is the periodic upload cadence.
	Interval time.Duration
}

// TrashSettings holds trash expiry configuration.
type TrashSettings struct {
	// Retention is how long soft-deleted documents are kept locally.
	Retention time.Duration
}

// Settings holds all application settings.
type Settings struct {
	Server    ServerSettings
	Sync      SyncSettings
	Health    HealthSettings
	Upload    UploadSettings
	Trash     TrashSettings
	Scheduler SchedulerConfig

	// DataDir holds the database and logs.
	DataDir string
}

// DefaultSettings returns settings with sensible defaults.
// The server is left unconfigured.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			AuthScheme: AuthSchemeToken,
		},
		Sync: SyncSettings{
			PageSize: 100,
			Interval: 15 * time.Minute,
		},
		Health: HealthSettings{
			ProbeTimeout:       10 * time.Second,
			ForegroundInterval: 30 * time.Second,
			BackgroundInterval: 5 * time.Minute,
			MaxInterval:        10 * time.Minute,
			MaxFailures:        5,
		},
		Upload: UploadSettings{
			Interval: 15 * time.Minute,
		},
		Trash: TrashSettings{
			Retention: 30 * 24 * time.Hour,
		},
		Scheduler: DefaultSchedulerConfig(),
	}
}

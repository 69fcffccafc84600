package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driven"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyServerURL          = "server.url"
	KeyServerToken        = "server.token"
	KeyServerAuthScheme   = "server.auth_scheme"
	KeySyncPageSize       = "sync.page_size"
	KeySyncInterval       = "sync.interval"
	KeyHealthProbeTimeout = "health.probe_timeout"
	KeyHealthForeground   = "health.foreground_interval"
	KeyHealthBackground   = "health.background_interval"
	KeyHealthMaxInterval  = "health.max_interval"
	KeyHealthMaxFailures  = "health.max_failures"
	KeyUploadInboxDir     = "upload.inbox_dir"
	KeyUploadInterval     = "upload.interval"
	KeyTrashRetention     = "trash.retention"
	KeySchedulerEnabled   = "scheduler.enabled"
	KeySchedulerTick      = "scheduler.tick"
	KeyDataDir            = "data_dir"
)

// Environment overrides.
//
//nolint:gosec // G101: environment variable names.
const (
	EnvServerURL = "DOCSYNC_SERVER_URL"
	EnvToken     = "DOCSYNC_TOKEN"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindBool
	kindDuration
)

// settingKinds lists every key Set accepts.
var settingKinds = map[string]valueKind{
	KeyServerURL:          kindString,
	KeyServerToken:        kindString,
	KeyServerAuthScheme:   kindString,
	KeySyncPageSize:       kindInt,
	KeySyncInterval:       kindDuration,
	KeyHealthProbeTimeout: kindDuration,
	KeyHealthForeground:   kindDuration,
	KeyHealthBackground:   kindDuration,
	KeyHealthMaxInterval:  kindDuration,
	KeyHealthMaxFailures:  kindInt,
	KeyUploadInboxDir:     kindString,
	KeyUploadInterval:     kindDuration,
	KeyTrashRetention:     kindDuration,
	KeySchedulerEnabled:   kindBool,
	KeySchedulerTick:      kindDuration,
	KeyDataDir:            kindString,
}

// SettingKeys returns every supported key in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current settings. Unset or invalid values fall back to
// defaults; the environment overrides the server URL and token.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Server: domain.ServerSettings{
			URL:        s.getString(KeyServerURL, defaults.Server.URL),
			Token:      s.configStore.GetString(KeyServerToken),
			AuthScheme: s.getAuthScheme(defaults.Server.AuthScheme),
		},
		Sync: domain.SyncSettings{
			PageSize: s.getInt(KeySyncPageSize, defaults.Sync.PageSize),
			Interval: s.getDuration(KeySyncInterval, defaults.Sync.Interval),
		},
		Health: domain.HealthSettings{
			ProbeTimeout:       s.getDuration(KeyHealthProbeTimeout, defaults.Health.ProbeTimeout),
			ForegroundInterval: s.getDuration(KeyHealthForeground, defaults.Health.ForegroundInterval),
			BackgroundInterval: s.getDuration(KeyHealthBackground, defaults.Health.BackgroundInterval),
			MaxInterval:        s.getDuration(KeyHealthMaxInterval, defaults.Health.MaxInterval),
			MaxFailures:        s.getInt(KeyHealthMaxFailures, defaults.Health.MaxFailures),
		},
		Upload: domain.UploadSettings{
			InboxDir: s.configStore.GetString(KeyUploadInboxDir),
			Interval: s.getDuration(KeyUploadInterval, defaults.Upload.Interval),
		},
		Trash: domain.TrashSettings{
			Retention: s.getDuration(KeyTrashRetention, defaults.Trash.Retention),
		},
		Scheduler: defaults.Scheduler,
		DataDir:   s.configStore.GetString(KeyDataDir),
	}

	if v, ok := s.configStore.Get(KeySchedulerEnabled); ok {
		if b, ok := v.(bool); ok {
			settings.Scheduler.Enabled = b
		}
	}
	settings.Scheduler.Tick = s.getDuration(KeySchedulerTick, defaults.Scheduler.Tick)
	settings.Scheduler.TaskConfigs = map[string]domain.TaskConfig{
		domain.TaskIDDocumentSync:   {Enabled: true, Interval: settings.Sync.Interval},
		domain.TaskIDDocumentUpload: {Enabled: true, Interval: settings.Upload.Interval},
	}

	if v := s.getenv(EnvServerURL); v != "" {
		settings.Server.URL = v
	}
	if v := s.getenv(EnvToken); v != "" {
		settings.Server.Token = v
	}
	settings.Server.URL = strings.TrimRight(settings.Server.URL, "/")

	return settings, nil
}

// SetServer stores the server URL and auth scheme.
func (s *SettingsService) SetServer(url string, scheme domain.AuthScheme) error {
	if scheme == "" {
		scheme = domain.AuthSchemeToken
	}
	candidate := domain.ServerSettings{URL: url, Token: "unchecked", AuthScheme: scheme}
	if err := candidate.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(KeyServerURL, strings.TrimRight(url, "/")); err != nil {
		return fmt.Errorf("save server url: %w", err)
	}
	if err := s.configStore.Set(KeyServerAuthScheme, string(scheme)); err != nil {
		return fmt.Errorf("save auth scheme: %w", err)
	}
	return nil
}

// SetToken stores the API token. An empty token logs out.
func (s *SettingsService) SetToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		if err := s.configStore.Delete(KeyServerToken); err != nil {
			return fmt.Errorf("remove token: %w", err)
		}
		return nil
	}
	if err := s.configStore.Set(KeyServerToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Set stores a single configuration key. String values are converted to
// the key's type so command line input can be passed through.
func (s *SettingsService) Set(key string, value any) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	converted, err := convertSetting(key, kind, value)
	if err != nil {
		return err
	}
	if key == KeyServerAuthScheme && !domain.AuthScheme(converted.(string)).IsValid() {
		return fmt.Errorf("%w: auth scheme %q", domain.ErrInvalidInput, converted)
	}
	if err := s.configStore.Set(key, converted); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Validate checks the server settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Server.Validate(); err != nil {
		return err
	}
	if settings.Sync.PageSize <= 0 {
		return fmt.Errorf("%w: sync.page_size must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v := s.configStore.GetInt(key); v > 0 {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := s.configStore.GetDuration(key); v > 0 {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getAuthScheme(defaultVal domain.AuthScheme) domain.AuthScheme {
	scheme := domain.AuthScheme(s.configStore.GetString(KeyServerAuthScheme))
	if scheme.IsValid() {
		return scheme
	}
	return defaultVal
}

func convertSetting(key string, kind valueKind, value any) (any, error) {
	invalid := func(reason string) error {
		return fmt.Errorf("%w: %s: %s", domain.ErrInvalidInput, key, reason)
	}

	switch kind {
	case kindInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return nil, invalid("expected an integer")
			}
			return n, nil
		}
		return nil, invalid("expected an integer")

	case kindBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return nil, invalid("expected true or false")
			}
			return b, nil
		}
		return nil, invalid("expected true or false")

	case kindDuration:
		switch v := value.(type) {
		case time.Duration:
			return v.String(), nil
		case string:
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil || d <= 0 {
				return nil, invalid("expected a positive duration such as 15m")
			}
			return d.String(), nil
		}
		return nil, invalid("expected a duration")

	case kindString:
		if v, ok := value.(string); ok {
			return v, nil
		}
		return fmt.Sprint(value), nil
	}
	return nil, invalid("unsupported value")
}

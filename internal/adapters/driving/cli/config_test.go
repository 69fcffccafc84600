package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "0123456789abcdef",
			expected: "0123...cdef",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConfigShow_Unconfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "URL: (not set)")
	assert.Contains(t, out, "Token: (not set)")
	assert.Contains(t, out, "Inbox: (disabled)")
	assert.Contains(t, out, "Warning:")
	assert.Contains(t, out, "docsync auth login")
}

func TestConfigShow_MasksToken(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.Server.URL = "https://paperless.example.com"
	ts.settings.settings.Server.Token = "0123456789abcdef"
	ts.settings.settings.Upload.InboxDir = "/srv/scans"

	out, err := executeCommand("config")

	require.NoError(t, err)
	assert.Contains(t, out, "URL: https://paperless.example.com")
	assert.Contains(t, out, "Token: 0123...cdef")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "Inbox: /srv/scans")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestConfigSet(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("config", "set", "sync.page_size", "50")

	require.NoError(t, err)
	assert.Equal(t, "50", ts.settings.values["sync.page_size"])
	assert.Contains(t, out, "Set sync.page_size.")
}

func TestConfigSet_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.setErr = errors.New("unknown setting")

	_, err := executeCommand("config", "set", "nope", "1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set nope")
}

func TestConfigSet_RequiresTwoArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("config", "set", "sync.page_size")

	assert.Error(t, err)
}

func TestConfig_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	settingsService = nil

	_, err := executeCommand("config", "show")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

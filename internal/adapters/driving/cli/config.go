package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Settings are stored in ~/.docsync/config.toml. DOCSYNC_SERVER_URL and
DOCSYNC_TOKEN override the stored server URL and token.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Change a single setting. Durations use Go syntax such as 30s or 15m.

Keys:
  server.url, server.token, server.auth_scheme
  sync.page_size, sync.interval
  health.probe_timeout, health.foreground_interval, health.background_interval,
  health.max_interval, health.max_failures
  upload.inbox_dir, upload.interval
  trash.retention
  scheduler.enabled, scheduler.tick
  data_dir`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Server]")
	if settings.Server.URL != "" {
		cmd.Printf("  URL: %s\n", settings.Server.URL)
	} else {
		cmd.Println("  URL: (not set)")
	}
	if settings.Server.Token != "" {
		cmd.Printf("  Token: %s\n", maskAPIKey(settings.Server.Token))
	} else {
		cmd.Println("  Token: (not set)")
	}
	cmd.Printf("  Auth scheme: %s\n", settings.Server.AuthScheme)
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Page size: %d\n", settings.Sync.PageSize)
	cmd.Printf("  Interval: %s\n", settings.Sync.Interval)
	cmd.Println()

	cmd.Println("[Health]")
	cmd.Printf("  Probe timeout: %s\n", settings.Health.ProbeTimeout)
	cmd.Printf("  Foreground interval: %s\n", settings.Health.ForegroundInterval)
	cmd.Printf("  Background interval: %s\n", settings.Health.BackgroundInterval)
	cmd.Printf("  Max interval: %s\n", settings.Health.MaxInterval)
	cmd.Printf("  Max failures: %d\n", settings.Health.MaxFailures)
	cmd.Println()

	cmd.Println("[Upload]")
	if settings.Upload.InboxDir != "" {
		cmd.Printf("  Inbox: %s\n", settings.Upload.InboxDir)
	} else {
		cmd.Println("  Inbox: (disabled)")
	}
	cmd.Printf("  Interval: %s\n", settings.Upload.Interval)
	cmd.Println()

	cmd.Println("[Trash]")
	cmd.Printf("  Retention: %s\n", settings.Trash.Retention)
	cmd.Println()

	cmd.Println("[Scheduler]")
	if settings.Scheduler.Enabled {
		cmd.Println("  Enabled: yes")
	} else {
		cmd.Println("  Enabled: no")
	}
	cmd.Printf("  Tick: %s\n", settings.Scheduler.Tick)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docsync auth login' to configure the server.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s.\n", key)
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

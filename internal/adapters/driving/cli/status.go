package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/adapters/driving/tui"
	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/logger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server, sync and queue status",
	Long: `Prints the last known server status, the outcome of the last sync and
the queue counters. With --watch, opens a live dashboard instead.

Dashboard controls:
  s - Sync now
  u - Upload now
  c - Check server
  r - Refresh
  ? - Toggle help
  q - Quit`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusWatch bool

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Open the live dashboard")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil || queueService == nil {
		return errors.New("sync service not configured: set a server with 'docsync auth login'")
	}
	if statusWatch {
		return runDashboard(cmd)
	}

	ctx := cmd.Context()

	cmd.Println("[Server]")
	if healthMonitor != nil {
		cmd.Printf("  Status: %s\n", describeServer(healthMonitor.Status()))
	} else {
		cmd.Println("  Status: not configured")
	}
	cmd.Println()

	cmd.Println("[Sync]")
	status, err := syncOrchestrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading sync status: %w", err)
	}
	printSyncStatus(cmd, status)
	cmd.Println()

	counts, err := queueService.Counts(ctx)
	if err != nil {
		return fmt.Errorf("reading queue counts: %w", err)
	}
	cmd.Println("[Uploads]")
	cmd.Printf("  Pending: %d\n", counts.Uploads.Pending)
	cmd.Printf("  Uploading: %d\n", counts.Uploads.Uploading)
	cmd.Printf("  Failed: %d\n", counts.Uploads.Failed)
	cmd.Printf("  Completed: %d\n", counts.Uploads.Completed)

	if scheduler == nil {
		return nil
	}
	tasks, err := scheduler.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("reading scheduled tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println("[Tasks]")
	for i := range tasks {
		t := &tasks[i]
		cmd.Printf("  %s\n", t.Name)
		cmd.Printf("    Last run: %s\n", formatTime(t.LastRun))
		cmd.Printf("    Next run: %s\n", formatTime(t.NextRun))
		if t.LastError != "" {
			cmd.Printf("    Last error: %s\n", t.LastError)
		}
	}
	return nil
}

func describeServer(s domain.ServerStatus) string {
	switch s.Kind {
	case domain.StatusOnline:
		return "online (checked " + formatTime(s.At) + ")"
	case domain.StatusOffline:
		return "offline: " + s.Reason.Description()
	case domain.StatusUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

func runDashboard(cmd *cobra.Command) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in dashboard: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Keep the monitor and counter running while the dashboard is open.
	if healthMonitor != nil {
		go func() {
			if err := healthMonitor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Health monitor stopped: %v", err)
			}
		}()
	}
	if pendingCounter != nil {
		go func() {
			if err := pendingCounter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Pending counter stopped: %v", err)
			}
		}()
	}

	ports := &tui.Ports{
		Sync:    syncOrchestrator,
		Queue:   queueService,
		Health:  healthMonitor,
		Uploads: uploadAgent,
		Pending: pendingCounter,
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}

	if err := app.WithContext(ctx).Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/core/domain"
	"github.com/custodia-labs/docsync/internal/core/ports/driving"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise the local cache with the server",
	Long: `Pushes locally queued changes, then refreshes every cached collection
from the server. Documents the server no longer has are removed locally
unless a queued change still refers to them.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	ctx := cmd.Context()

	cmd.Println("Synchronising...")
	err := syncOrchestrator.PerformFullSync(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		cmd.Println("A sync is already running.")
		return nil
	case err != nil:
		return fmt.Errorf("sync failed: %w", err)
	}

	status, err := syncOrchestrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading sync status: %w", err)
	}
	printSyncStatus(cmd, status)
	return nil
}

func printSyncStatus(cmd *cobra.Command, status *driving.SyncStatus) {
	if status == nil {
		return
	}
	cmd.Printf("Documents:       %d\n", status.DocumentsSynced)
	cmd.Printf("Removed:         %d\n", status.DocumentsRemoved)
	cmd.Printf("Pending changes: %d\n", status.PendingChanges)
	cmd.Printf("Last full sync:  %s\n", formatTime(status.LastFullSync))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Inspect local changes not yet pushed",
	Long: `Local edits, deletes and creations made while the server was
unreachable are queued and pushed by the next sync. A change that keeps
failing stays in the queue until it is retried or discarded.`,
}

var changesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending changes in push order",
	Args:  cobra.NoArgs,
	RunE:  runChangesList,
}

var changesRetryCmd = &cobra.Command{
	Use:   "retry <change-id>",
	Short: "Reset a change's failure count",
	Args:  cobra.ExactArgs(1),
	RunE:  runChangesRetry,
}

var changesDiscardCmd = &cobra.Command{
	Use:   "discard <change-id>",
	Short: "Drop a change without pushing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runChangesDiscard,
}

func init() {
	changesCmd.AddCommand(changesListCmd)
	changesCmd.AddCommand(changesRetryCmd)
	changesCmd.AddCommand(changesDiscardCmd)
	rootCmd.AddCommand(changesCmd)
}

func runChangesList(cmd *cobra.Command, _ []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}

	changes, err := queueService.ListPendingChanges(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list pending changes: %w", err)
	}

	if len(changes) == 0 {
		cmd.Println("No pending changes.")
		return nil
	}

	for i := range changes {
		c := &changes[i]
		cmd.Printf("  %d  %s %s%s\n", c.ID, c.ChangeType, c.EntityType, entityRef(c))
		if c.SyncAttempts > 0 {
			cmd.Printf("    Attempts: %d\n", c.SyncAttempts)
		}
		if c.LastError != nil {
			cmd.Printf("    Error: %s\n", *c.LastError)
		}
		cmd.Printf("    Recorded: %s\n", formatTime(c.CreatedAt))
	}
	return nil
}

func runChangesRetry(cmd *cobra.Command, args []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := queueService.RetryPendingChange(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to retry change %d: %w", id, err)
	}
	cmd.Printf("Change %d will be pushed on the next sync.\n", id)
	return nil
}

func runChangesDiscard(cmd *cobra.Command, args []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := queueService.DiscardPendingChange(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to discard change %d: %w", id, err)
	}
	cmd.Printf("Change %d discarded.\n", id)
	return nil
}

func entityRef(c *domain.PendingChange) string {
	if c.EntityID == nil {
		return " (new)"
	}
	return fmt.Sprintf(" #%d", *c.EntityID)
}

package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the upload queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued uploads",
	Args:  cobra.NoArgs,
	RunE:  runQueueList,
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry <upload-id>",
	Short: "Move a failed upload back to pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRetry,
}

var queueDiscardCmd = &cobra.Command{
	Use:   "discard <upload-id>",
	Short: "Remove an upload from the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueDiscard,
}

var queuePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove completed uploads",
	Args:  cobra.NoArgs,
	RunE:  runQueuePrune,
}

var queueListStatus string

func init() {
	queueListCmd.Flags().StringVar(&queueListStatus, "status", "",
		"Only show uploads with this status (pending, uploading, completed, failed)")

	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueRetryCmd)
	queueCmd.AddCommand(queueDiscardCmd)
	queueCmd.AddCommand(queuePruneCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}

	uploads, err := queueService.ListUploads(cmd.Context(), domain.UploadStatus(queueListStatus))
	if err != nil {
		return fmt.Errorf("failed to list uploads: %w", err)
	}

	if len(uploads) == 0 {
		cmd.Println("Upload queue is empty.")
		return nil
	}

	for i := range uploads {
		u := &uploads[i]
		title := u.Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("  %d  %-9s  %s\n", u.ID, u.Status, title)
		cmd.Printf("    Pages: %d\n", len(u.AllURIs()))
		cmd.Printf("    File: %s\n", u.URI)
		if u.RetryCount > 0 {
			cmd.Printf("    Retries: %d\n", u.RetryCount)
		}
		if u.ErrorMessage != "" {
			cmd.Printf("    Error: %s\n", u.ErrorMessage)
		}
		cmd.Printf("    Queued: %s\n", formatTime(u.CreatedAt))
	}
	return nil
}

func runQueueRetry(cmd *cobra.Command, args []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := queueService.RetryUpload(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to retry upload %d: %w", id, err)
	}
	cmd.Printf("Upload %d moved back to pending.\n", id)
	return nil
}

func runQueueDiscard(cmd *cobra.Command, args []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := queueService.DiscardUpload(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to discard upload %d: %w", id, err)
	}
	cmd.Printf("Upload %d discarded.\n", id)
	return nil
}

func runQueuePrune(cmd *cobra.Command, _ []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}
	n, err := queueService.PruneCompleted(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to prune uploads: %w", err)
	}
	cmd.Printf("Removed %d completed uploads.\n", n)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

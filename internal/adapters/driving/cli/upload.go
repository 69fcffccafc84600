package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Queue and send documents for consumption",
	Long: `Queue captured files for upload and drain the upload queue.

Files are queued locally first, so they can be captured while the server
is unreachable. Several files given to one 'upload add' become the pages
of a single document.

Examples:
  docsync upload add receipt.pdf --title "Hardware store" --tag 3
  docsync upload add page1.jpg page2.jpg page3.jpg
  docsync upload run`,
}

var uploadAddCmd = &cobra.Command{
	Use:   "add <file> [file...]",
	Short: "Queue files as one document",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUploadAdd,
}

var uploadRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Upload every pending item now",
	Args:  cobra.NoArgs,
	RunE:  runUploadRun,
}

// Flags for upload add.
var (
	uploadTitle         string
	uploadTags          []int64
	uploadDocumentType  int64
	uploadCorrespondent int64
)

func init() {
	uploadAddCmd.Flags().StringVar(&uploadTitle, "title", "", "Document title")
	uploadAddCmd.Flags().Int64SliceVar(&uploadTags, "tag", nil, "Tag ID (repeatable)")
	uploadAddCmd.Flags().Int64Var(&uploadDocumentType, "document-type", 0, "Document type ID")
	uploadAddCmd.Flags().Int64Var(&uploadCorrespondent, "correspondent", 0, "Correspondent ID")

	uploadCmd.AddCommand(uploadAddCmd)
	uploadCmd.AddCommand(uploadRunCmd)
	rootCmd.AddCommand(uploadCmd)
}

func runUploadAdd(cmd *cobra.Command, args []string) error {
	if queueService == nil {
		return errors.New("queue service not configured")
	}

	uris := make([]string, 0, len(args))
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", arg, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", arg, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", arg)
		}
		uris = append(uris, path)
	}

	upload := &domain.PendingUpload{
		URI:            uris[0],
		AdditionalURIs: uris[1:],
		Title:          uploadTitle,
		TagIDs:         uploadTags,
	}
	if cmd.Flags().Changed("document-type") {
		id := uploadDocumentType
		upload.DocumentTypeID = &id
	}
	if cmd.Flags().Changed("correspondent") {
		id := uploadCorrespondent
		upload.CorrespondentID = &id
	}

	if err := queueService.EnqueueUpload(cmd.Context(), upload); err != nil {
		return fmt.Errorf("failed to queue upload: %w", err)
	}

	pages := "1 page"
	if len(uris) > 1 {
		pages = strconv.Itoa(len(uris)) + " pages"
	}
	cmd.Printf("Queued upload %d (%s).\n", upload.ID, pages)
	return nil
}

func runUploadRun(cmd *cobra.Command, _ []string) error {
	if uploadAgent == nil {
		return errors.New("uploads are not available: server not configured")
	}

	ctx := cmd.Context()

	uploadAgent.SetProgress(func(id, sent, total int64) {
		if total > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "\rUpload %d: %d%%", id, sent*100/total)
		}
	})
	defer uploadAgent.SetProgress(nil)

	result := uploadAgent.DoWork(ctx)
	fmt.Fprintln(cmd.ErrOrStderr())

	if queueService != nil {
		if counts, err := queueService.Counts(ctx); err == nil {
			cmd.Printf("Pending: %d  Failed: %d  Completed: %d\n",
				counts.Uploads.Pending, counts.Uploads.Failed, counts.Uploads.Completed)
		}
	}

	switch result {
	case domain.WorkFailure:
		return errors.New("upload failed: every item failed, see 'docsync queue list'")
	case domain.WorkRetry:
		cmd.Println("Some uploads will be retried later.")
	case domain.WorkSuccess:
		cmd.Println("Upload queue drained.")
	}
	return nil
}

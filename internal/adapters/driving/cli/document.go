package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage cached documents",
	Long: `List and edit documents from the local cache. Edits and deletes are
applied locally first and pushed immediately when the server is
reachable, or queued for the next sync otherwise.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get <doc-id>",
	Short: "Show document details",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentEditCmd = &cobra.Command{
	Use:   "edit <doc-id>",
	Short: "Change a document's title, tags, type or correspondent",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentEdit,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete <doc-id>",
	Short: "Move a document to the trash",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Restore or permanently delete trashed documents",
	Long:  `Trash actions need the server to be reachable.`,
}

var trashRestoreCmd = &cobra.Command{
	Use:   "restore <doc-id> [doc-id...]",
	Short: "Restore documents from the trash",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrashRestore,
}

var trashEmptyCmd = &cobra.Command{
	Use:   "empty <doc-id> [doc-id...]",
	Short: "Permanently delete trashed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrashEmpty,
}

var createCmd = &cobra.Command{
	Use:       "create <tag|correspondent|document-type> <name>",
	Short:     "Create a tag, correspondent or document type",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"tag", "correspondent", "document-type"},
	RunE:      runCreate,
}

// Flags for document commands.
var (
	documentListDeleted bool
	editTitle           string
	editTags            []int64
	editDocumentType    int64
	editCorrespondent   int64
)

func init() {
	documentListCmd.Flags().BoolVar(&documentListDeleted, "deleted", false, "Include trashed documents")
	documentEditCmd.Flags().StringVar(&editTitle, "title", "", "New title")
	documentEditCmd.Flags().Int64SliceVar(&editTags, "tag", nil, "Replace tags with these IDs (repeatable)")
	documentEditCmd.Flags().Int64Var(&editDocumentType, "document-type", 0, "Document type ID")
	documentEditCmd.Flags().Int64Var(&editCorrespondent, "correspondent", 0, "Correspondent ID")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentEditCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	trashCmd.AddCommand(trashRestoreCmd)
	trashCmd.AddCommand(trashEmptyCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(trashCmd)
	rootCmd.AddCommand(createCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.ListDocuments(cmd.Context(), documentListDeleted)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No cached documents. Run 'docsync sync' first.")
		return nil
	}

	for i := range docs {
		cmd.Printf("  %d  %s\n", docs[i].ID, docs[i].Title)
	}
	cmd.Println()
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	doc, err := documentService.GetDocument(cmd.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %d not found", id)
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document %d\n", doc.ID)
	cmd.Printf("  Title: %s\n", doc.Title)
	if doc.Correspondent != nil {
		cmd.Printf("  Correspondent: %d\n", *doc.Correspondent)
	}
	if doc.DocumentType != nil {
		cmd.Printf("  Document type: %d\n", *doc.DocumentType)
	}
	if len(doc.Tags) > 0 {
		tags := make([]string, len(doc.Tags))
		for i, t := range doc.Tags {
			tags[i] = fmt.Sprint(t)
		}
		cmd.Printf("  Tags: %s\n", strings.Join(tags, ", "))
	}
	if doc.Created != nil {
		cmd.Printf("  Created: %s\n", formatTime(*doc.Created))
	}
	if doc.OriginalFileName != "" {
		cmd.Printf("  File: %s\n", doc.OriginalFileName)
	}
	return nil
}

func runDocumentEdit(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var patch domain.DocumentPatch
	flags := cmd.Flags()
	if flags.Changed("title") {
		title := editTitle
		patch.Title = &title
	}
	if flags.Changed("tag") {
		tags := append([]int64{}, editTags...)
		patch.Tags = &tags
	}
	if flags.Changed("document-type") {
		v := editDocumentType
		patch.DocumentType = &v
	}
	if flags.Changed("correspondent") {
		v := editCorrespondent
		patch.Correspondent = &v
	}
	if patch.IsEmpty() {
		return errors.New("nothing to change: pass --title, --tag, --document-type or --correspondent")
	}

	if err := documentService.UpdateDocument(cmd.Context(), id, patch); err != nil {
		return fmt.Errorf("failed to update document %d: %w", id, err)
	}
	cmd.Printf("Document %d updated.\n", id)
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := documentService.DeleteDocument(cmd.Context(), id); err != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}
	cmd.Printf("Document %d moved to the trash.\n", id)
	return nil
}

func runTrashRestore(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	if err := documentService.RestoreFromTrash(cmd.Context(), ids); err != nil {
		return fmt.Errorf("failed to restore documents: %w", err)
	}
	cmd.Printf("Restored %d documents.\n", len(ids))
	return nil
}

func runTrashEmpty(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	if err := documentService.EmptyTrash(cmd.Context(), ids); err != nil {
		return fmt.Errorf("failed to empty trash: %w", err)
	}
	cmd.Printf("Permanently deleted %d documents.\n", len(ids))
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	kind, name := args[0], args[1]
	ctx := cmd.Context()

	var err error
	switch kind {
	case "tag":
		err = documentService.CreateTag(ctx, name)
	case "correspondent":
		err = documentService.CreateCorrespondent(ctx, name)
	case "document-type":
		err = documentService.CreateDocumentType(ctx, name)
	default:
		return fmt.Errorf("unknown kind %q: use tag, correspondent or document-type", kind)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", kind, err)
	}
	cmd.Printf("Created %s %q.\n", kind, name)
	return nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

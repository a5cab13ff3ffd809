package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

var (
	documentsOwner   string
	documentsJSON    bool
	documentsContent bool
)

var documentsCmd = servicesCommand(&cobra.Command{
	Use:     "documents",
	Aliases: []string{"document", "docs"},
	Short:   "Manage indexed documents",
	Long:    `List, inspect or delete an owner's indexed documents.`,
})

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the owner's documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and all its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsCmd.PersistentFlags().StringVar(&documentsOwner, "owner", "", "owner of the documents (required)")
	documentsCmd.PersistentFlags().BoolVar(&documentsJSON, "json", false, "output as JSON")
	documentsGetCmd.Flags().BoolVar(&documentsContent, "content", false, "print the extracted text")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if err := requireOwner(documentsOwner); err != nil {
		return err
	}

	docs, err := documentService.List(cmd.Context(), documentsOwner)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentsJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Title(fmt.Sprintf("Documents (%d):", len(docs))))
	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s  %s\n", d.ID, d.Filename)
		cmd.Printf("      %s\n", st.Muted(fmt.Sprintf("%s  %d chunks  indexed %s",
			d.Category, d.NumChunks(), d.IndexedAt.Local().Format(time.DateTime))))
	}
	return nil
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if err := requireOwner(documentsOwner); err != nil {
		return err
	}

	doc, err := documentService.Get(cmd.Context(), args[0], documentsOwner)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", presentable(err))
	}

	if documentsContent {
		cmd.Println(doc.Content)
		return nil
	}
	if documentsJSON {
		return printJSON(cmd, doc)
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.Title("Document"))
	cmd.Printf("  ID:         %s\n", doc.ID)
	cmd.Printf("  Filename:   %s\n", doc.Filename)
	cmd.Printf("  Owner:      %s\n", doc.OwnerID)
	cmd.Printf("  MIME type:  %s\n", doc.MIMEType)
	cmd.Printf("  Category:   %s\n", doc.Category)
	cmd.Printf("  Shareable:  %t\n", doc.Shareable)
	cmd.Printf("  Chunks:     %d (%d embedded)\n", doc.NumChunks(), doc.EmbeddedChunks())
	cmd.Printf("  Indexed:    %s\n", doc.IndexedAt.Local().Format(time.DateTime))

	if len(doc.Metadata) > 0 {
		cmd.Println()
		cmd.Println(st.Title("Metadata"))
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("  %s: %v\n", k, doc.Metadata[k])
		}
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if err := requireOwner(documentsOwner); err != nil {
		return err
	}

	if err := documentService.Delete(cmd.Context(), args[0], documentsOwner); err != nil {
		return fmt.Errorf("failed to delete document: %w", presentable(err))
	}

	cmd.Printf("Deleted document %s\n", args[0])
	return nil
}

// presentable hides whether a document belongs to someone else.
func presentable(err error) error {
	if errors.Is(err, domain.ErrForbidden) {
		return domain.ErrNotFound
	}
	return err
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

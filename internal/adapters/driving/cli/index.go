package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
	"github.com/custodia-labs/admissions-kb/internal/core/ports/driving"
)

var (
	indexOwner     string
	indexCategory  string
	indexID        string
	indexMIMEType  string
	indexShareable bool
	indexJSON      bool
)

var indexCmd = servicesCommand(&cobra.Command{
	Use:   "index [file...]",
	Short: "Index documents",
	Long: `Extracts, chunks, embeds and stores one or more files for an owner.

Supported formats: PDF, DOCX, Markdown, HTML and plain text. Embedding and
metadata failures do not stop indexing; the document is stored in degraded
mode and stays keyword-searchable. Pass --id to re-index an existing document
in place.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
})

func init() {
	indexCmd.Flags().StringVar(&indexOwner, "owner", "", "owner of the documents (required)")
	indexCmd.Flags().StringVarP(&indexCategory, "category", "c", "", "metadata category: college, program, scholarship or general")
	indexCmd.Flags().StringVar(&indexID, "id", "", "re-index this document id (single file only)")
	indexCmd.Flags().StringVar(&indexMIMEType, "mime", "", "declared MIME type (default: from the file extension)")
	indexCmd.Flags().BoolVar(&indexShareable, "shareable", false, "make the documents visible to every owner")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(indexCmd)
}

// indexOutcome is the JSON line written per file.
type indexOutcome struct {
	File     string   `json:"file"`
	ID       string   `json:"id,omitempty"`
	Chunks   int      `json:"chunks"`
	Embedded int      `json:"embedded"`
	Degraded bool     `json:"degraded"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if err := requireOwner(indexOwner); err != nil {
		return err
	}
	if indexID != "" && len(args) > 1 {
		return errors.New("--id can only be used with a single file")
	}

	st := newStyles(cmd.OutOrStdout())
	var failed []error
	for _, path := range args {
		outcome, err := indexFile(cmd, path)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
			outcome.Error = err.Error()
		}

		if indexJSON {
			data, mErr := json.Marshal(outcome)
			if mErr != nil {
				return fmt.Errorf("failed to marshal result: %w", mErr)
			}
			cmd.Println(string(data))
			continue
		}
		printOutcome(cmd, st, outcome)
	}

	return errors.Join(failed...)
}

func indexFile(cmd *cobra.Command, path string) (indexOutcome, error) {
	outcome := indexOutcome{File: path}

	content, err := os.ReadFile(path)
	if err != nil {
		return outcome, err
	}

	result, err := ingestService.Ingest(cmd.Context(), driving.IngestRequest{
		Raw: domain.RawDocument{
			OwnerID:  indexOwner,
			Filename: filepath.Base(path),
			MIMEType: indexMIMEType,
			Content:  content,
		},
		DocumentID: indexID,
		Category:   domain.Category(indexCategory),
		Shareable:  indexShareable,
	})
	if err != nil {
		return outcome, err
	}

	outcome.ID = result.Document.ID
	outcome.Chunks = result.Report.Total
	outcome.Embedded = result.Report.Embedded
	outcome.Degraded = result.Degraded
	outcome.Warnings = result.Warnings
	return outcome, nil
}

func printOutcome(cmd *cobra.Command, st styles, o indexOutcome) {
	switch {
	case o.Error != "":
		cmd.Printf("%s %s: %s\n", st.Failure("✗"), o.File, o.Error)
	case o.Degraded:
		cmd.Printf("%s %s -> %s (%d chunks, %d embedded, degraded)\n",
			st.Warning("!"), o.File, o.ID, o.Chunks, o.Embedded)
	default:
		cmd.Printf("%s %s -> %s (%d chunks)\n", st.Success("✓"), o.File, o.ID, o.Chunks)
	}
	if verbose {
		for _, w := range o.Warnings {
			cmd.Printf("    %s\n", st.Muted(w))
		}
	}
}

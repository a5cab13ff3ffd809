package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/admissions-kb/internal/adapters/driving/watcher"
	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

var (
	watchOwner     string
	watchCategory  string
	watchShareable bool
	watchInclude   []string
	watchExclude   []string
	watchNoScan    bool
)

var watchCmd = servicesCommand(&cobra.Command{
	Use:   "watch [dir]",
	Short: "Index files dropped into a directory",
	Long: `Watches a directory tree and indexes files as they are added or changed.
Removing a file deletes its document. Hidden files and editor temporaries are
ignored. Existing files are indexed at start unless --no-scan is set.

Patterns use ** globs relative to the directory, for example
--include 'scholarships/**/*.pdf'.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
})

func init() {
	watchCmd.Flags().StringVar(&watchOwner, "owner", "", "owner of the documents (required)")
	watchCmd.Flags().StringVarP(&watchCategory, "category", "c", "", "metadata category for every file")
	watchCmd.Flags().BoolVar(&watchShareable, "shareable", false, "make the documents visible to every owner")
	watchCmd.Flags().StringSliceVar(&watchInclude, "include", nil, "only index paths matching these patterns")
	watchCmd.Flags().StringSliceVar(&watchExclude, "exclude", nil, "skip paths matching these patterns")
	watchCmd.Flags().BoolVar(&watchNoScan, "no-scan", false, "do not index files already present")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if err := requireOwner(watchOwner); err != nil {
		return err
	}

	w, err := watcher.New(watcher.Config{
		Dir:         args[0],
		OwnerID:     watchOwner,
		Category:    domain.Category(watchCategory),
		Shareable:   watchShareable,
		Include:     watchInclude,
		Exclude:     watchExclude,
		InitialScan: !watchNoScan,
	}, ingestService, documentService)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return w.Run(cmd.Context())
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/admissions-kb/internal/core/domain"
)

var (
	searchOwner    string
	searchStrategy string
	searchCategory string
	searchLimit    int
	searchJSON     bool
)

var searchCmd = servicesCommand(&cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Searches the owner's documents and documents shared with everyone.

Strategies:
  keyword - full-text relevance (BM25)
  vector  - semantic similarity over chunk embeddings
  hybrid  - both, with normalised scores merged by the configured weights

Vector and hybrid searches fall back to keyword results when embeddings are
unavailable; the output then says the results are degraded.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
})

func init() {
	searchCmd.Flags().StringVar(&searchOwner, "owner", "", "owner to search as (required)")
	searchCmd.Flags().StringVarP(&searchStrategy, "strategy", "s", string(domain.StrategyHybrid), "keyword, vector or hybrid")
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "restrict results to one category")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}
	if err := requireOwner(searchOwner); err != nil {
		return err
	}

	query := domain.Query{
		Text:     args[0],
		Strategy: domain.Strategy(searchStrategy),
		Owner:    domain.OwnerFilter{OwnerID: searchOwner, IncludeShared: true},
		Size:     searchLimit,
		Filters:  domain.SearchFilters{Category: domain.Category(searchCategory)},
	}

	resp, err := retrievalService.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp)
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	st := newStyles(cmd.OutOrStdout())

	if resp.Degraded {
		cmd.Println(st.Warning("Degraded: " + resp.DegradedReason))
	}
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(st.Title("Results:"))
	cmd.Println()
	for i := range resp.Results {
		r := &resp.Results[i]

		snippet := ""
		if len(r.Highlights) > 0 {
			snippet = r.Highlights[0]
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, r.Filename, r.Score)
		cmd.Printf("      %s\n", st.Muted(fmt.Sprintf("%s  chunk %d  %s", r.DocumentID, r.ChunkIndex, r.Category)))
		if snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/kindle-fetcher/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Run one catalog search and show the ranked results",
	Long: `Search sends a single query to the catalog and prints the result rows,
ranked by similarity to --title (or to the query itself). The last column
marks the rows acquire would try under the preferred formats.

Use --save to keep the ranked rows as YAML for later inspection.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("title", "", "title to rank against (default: the query)")
	searchCmd.Flags().Bool("json", false, "print results as JSON")
	searchCmd.Flags().String("save", "", "write the ranked results to this YAML file")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = query
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	savePath, _ := cmd.Flags().GetString("save")

	catalog := search.NewCatalog(nil, cfg.Catalog)
	rows, err := catalog.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("searching %q: %w", query, err)
	}
	ranked := search.Rank(title, rows)
	formats := cfg.Acquisition.PreferredFormats

	if savePath != "" {
		if err := search.WriteQueryFile(savePath, query, title, formats, ranked); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d results to %s\n", len(ranked), savePath)
	}

	if asJSON {
		return search.FormatJSON(ranked, os.Stdout)
	}
	search.FormatTable(ranked, formats, os.Stdout)
	return nil
}

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/search"
	"github.com/b-vitamins/bibliography/internal/store"
)

var (
	flagSearchLimit  int
	flagSearchOffset int
	flagSearchSort   string
	flagSearchFormat string
	flagSearchField  string
	flagSearchStats  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <terms...>",
	Short: "Search the index",
	Long: `Search the index with free text, field qualifiers (author:knuth),
boolean operators (AND, OR, NOT, NEAR), quoted phrases, and trailing
wildcards. An empty query lists the most recently indexed records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		engine := search.New(st)
		out := cmd.OutOrStdout()

		if flagSearchField != "" {
			name, value, ok := strings.Cut(flagSearchField, "=")
			if !ok {
				return fmt.Errorf("invalid --field %q, expected name=value", flagSearchField)
			}
			results, err := engine.SearchByField(name, value, flagSearchLimit)
			if err != nil {
				return err
			}
			return renderResults(out, results, flagSearchFormat)
		}

		userQuery := strings.Join(args, " ")
		results, warnings, err := engine.Search(
			userQuery, flagSearchLimit, flagSearchOffset, search.SortOrder(flagSearchSort))
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
		}

		if len(results) == 0 {
			fmt.Fprintf(out, "No results found for: %s\n", userQuery)
			return nil
		}
		if flagSearchStats {
			fmt.Fprintf(out, "Found %d results for: %s\n\n", len(results), userQuery)
		}
		return renderResults(out, results, flagSearchFormat)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show one indexed record as BibTeX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := search.New(st).SearchByKey(args[0])
		if errors.Is(err, store.ErrNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "Record not found: %s\n", args[0])
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rec.BibTeX())
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 20, "maximum results")
	searchCmd.Flags().IntVar(&flagSearchOffset, "offset", 0, "pagination offset")
	searchCmd.Flags().StringVar(&flagSearchSort, "sort", "relevance", "sort order: relevance, year, author, title")
	searchCmd.Flags().StringVar(&flagSearchFormat, "format", "table", "output format: table, keys, paths, bibtex, json")
	searchCmd.Flags().StringVar(&flagSearchField, "field", "", "exact field match as name=value instead of full-text search")
	searchCmd.Flags().BoolVar(&flagSearchStats, "stats", false, "print the result count")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
}

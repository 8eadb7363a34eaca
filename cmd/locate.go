package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/biblio"
	"github.com/b-vitamins/bibliography/internal/search"
)

var (
	flagLocateGlob      bool
	flagLocateBasename  bool
	flagLocateExtension string
	flagLocateDirectory string
	flagLocateFormat    string
)

var locateCmd = &cobra.Command{
	Use:   "locate [pattern]",
	Short: "Find records by attachment path",
	Long: `Find records whose attached document matches a path pattern.
By default the pattern is a substring; --glob enables * and ? wildcards,
--basename matches only the final path segment. --extension and
--directory are alternative lookup modes that take no pattern argument.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		engine := search.NewLocate(st)

		var records []biblio.Record
		switch {
		case flagLocateExtension != "":
			records, err = engine.ByExtension(flagLocateExtension)
		case flagLocateDirectory != "":
			records, err = engine.InDirectory(flagLocateDirectory)
		case len(args) == 1:
			records, err = engine.Locate(args[0], flagLocateGlob, flagLocateBasename)
		default:
			return fmt.Errorf("a pattern, --extension, or --directory is required")
		}
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No entries found")
			return nil
		}
		return renderRecords(cmd.OutOrStdout(), records, flagLocateFormat)
	},
}

func init() {
	locateCmd.Flags().BoolVar(&flagLocateGlob, "glob", false, "treat the pattern as a glob")
	locateCmd.Flags().BoolVar(&flagLocateBasename, "basename", false, "match only the file basename")
	locateCmd.Flags().StringVar(&flagLocateExtension, "extension", "", "find attachments with this extension")
	locateCmd.Flags().StringVar(&flagLocateDirectory, "directory", "", "find attachments under this directory")
	locateCmd.Flags().StringVar(&flagLocateFormat, "format", "table", "output format: table, keys, paths, bibtex")
	rootCmd.AddCommand(locateCmd)
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/biblio"
)

var (
	flagListType   string
	flagListFormat string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List records in the repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}
		records, err := r.Load(false)
		if err != nil {
			return err
		}

		if flagListType != "" {
			var filtered []biblio.Record
			for _, rec := range records {
				if rec.Type == flagListType {
					filtered = append(filtered, rec)
				}
			}
			records = filtered
		}

		return renderRecords(cmd.OutOrStdout(), records, flagListFormat)
	},
}

func init() {
	listCmd.Flags().StringVar(&flagListType, "type", "", "only records of this entry type")
	listCmd.Flags().StringVar(&flagListFormat, "format", "table", "output format: table, keys, paths, bibtex")
	rootCmd.AddCommand(listCmd)
}

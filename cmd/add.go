package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/biblio"
)

var (
	flagAddType   string
	flagAddFields []string
	flagAddFile   string
	flagAddAttach string
	flagAddDryRun bool
)

var addCmd = &cobra.Command{
	Use:   "add [key]",
	Short: "Add a record to the repository",
	Long: `Add a record to the repository. Without a key argument, one is
generated from the author, year, and title fields.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := parseFieldArgs(flagAddFields)
		if err != nil {
			return err
		}

		key := ""
		if len(args) == 1 {
			key = args[0]
		}
		if key == "" {
			key = biblio.GenerateKey(fields["author"], fields["year"], fields["title"])
			if key == "" {
				return fmt.Errorf("no key given and not enough fields to generate one")
			}
		}

		r, err := openRepo()
		if err != nil {
			return err
		}

		rec := biblio.Record{Key: key, Type: flagAddType, Fields: fields}

		return withDryRun(r, flagAddDryRun, cmd.OutOrStdout(), func() error {
			if flagAddAttach != "" {
				src, err := filepath.Abs(flagAddAttach)
				if err != nil {
					return err
				}
				dst := filepath.Join(r.Root(), "pdfs", key+filepath.Ext(src))
				if err := r.CopyFile(src, dst); err != nil {
					return err
				}
				rec.SetAttachmentPath(dst, "pdf")
			}

			if err := r.Add(rec, flagAddFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", rec.Key, rec.Type)
			return nil
		})
	},
}

func init() {
	addCmd.Flags().StringVar(&flagAddType, "type", "misc", "entry type (article, book, thesis, ...)")
	addCmd.Flags().StringArrayVar(&flagAddFields, "field", nil, "field as name=value (repeatable)")
	addCmd.Flags().StringVar(&flagAddFile, "bib-file", "", "target .bib file (default by-type file)")
	addCmd.Flags().StringVar(&flagAddAttach, "attach", "", "copy this document into the repository and link it")
	addCmd.Flags().BoolVar(&flagAddDryRun, "dry-run", false, "preview changes without writing")
	rootCmd.AddCommand(addCmd)
}

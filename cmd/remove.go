package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/repo"
)

var (
	flagRemoveAttachment bool
	flagRemoveDryRun     bool
)

var removeCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Remove a record from the repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}

		return withDryRun(r, flagRemoveDryRun, cmd.OutOrStdout(), func() error {
			rec, err := r.Remove(args[0])
			if errors.Is(err, repo.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No record with key %q\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}

			if flagRemoveAttachment {
				if path := rec.AttachmentPath(); path != "" {
					if err := r.DeleteFile(path); err != nil {
						return err
					}
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", rec.Key, rec.Type)
			return nil
		})
	},
}

func init() {
	removeCmd.Flags().BoolVar(&flagRemoveAttachment, "delete-file", false, "also delete the attached document")
	removeCmd.Flags().BoolVar(&flagRemoveDryRun, "dry-run", false, "preview changes without writing")
	rootCmd.AddCommand(removeCmd)
}

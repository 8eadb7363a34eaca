package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/repo"
)

var flagMoveDryRun bool

var moveCmd = &cobra.Command{
	Use:   "move <key> <target-file>",
	Short: "Move a record to a different .bib file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return err
		}

		target, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}

		return withDryRun(r, flagMoveDryRun, cmd.OutOrStdout(), func() error {
			rec, err := r.Move(args[0], target)
			if errors.Is(err, repo.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No record with key %q\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", rec.Key, target)
			return nil
		})
	},
}

func init() {
	moveCmd.Flags().BoolVar(&flagMoveDryRun, "dry-run", false, "preview changes without writing")
	rootCmd.AddCommand(moveCmd)
}

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/repo"
)

var (
	flagUpdateSet    []string
	flagUpdateUnset  []string
	flagUpdateDryRun bool
)

var updateCmd = &cobra.Command{
	Use:   "update <key>",
	Short: "Update fields of a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(flagUpdateSet) == 0 && len(flagUpdateUnset) == 0 {
			return fmt.Errorf("nothing to do: pass --set and/or --unset")
		}

		set, err := parseFieldArgs(flagUpdateSet)
		if err != nil {
			return err
		}
		changes := make(map[string]*string, len(set)+len(flagUpdateUnset))
		for name, value := range set {
			v := value
			changes[name] = &v
		}
		for _, name := range flagUpdateUnset {
			changes[strings.ToLower(name)] = nil
		}

		r, err := openRepo()
		if err != nil {
			return err
		}

		return withDryRun(r, flagUpdateDryRun, cmd.OutOrStdout(), func() error {
			rec, err := r.Update(args[0], changes)
			if errors.Is(err, repo.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No record with key %q\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", rec.Key)
			return nil
		})
	},
}

func init() {
	updateCmd.Flags().StringArrayVar(&flagUpdateSet, "set", nil, "set a field as name=value (repeatable)")
	updateCmd.Flags().StringArrayVar(&flagUpdateUnset, "unset", nil, "delete a field (repeatable)")
	updateCmd.Flags().BoolVar(&flagUpdateDryRun, "dry-run", false, "preview changes without writing")
	rootCmd.AddCommand(updateCmd)
}

package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/search"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report missing attachments and duplicate keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		out := cmd.OutOrStdout()

		missing, err := search.NewLocate(st).VerifyFiles()
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			fmt.Fprintln(out, "All attachments present")
		} else {
			fmt.Fprintf(out, "%d missing attachments:\n", len(missing))
			for _, rec := range missing {
				fmt.Fprintf(out, "  %s: %s\n", rec.Key, rec.AttachmentPath())
			}
		}

		r, err := openRepo()
		if err != nil {
			return err
		}
		dupes, err := r.FindDuplicates()
		if err != nil {
			return err
		}
		if len(dupes) == 0 {
			fmt.Fprintln(out, "No duplicate keys")
			return nil
		}
		keys := make([]string, 0, len(dupes))
		for key := range dupes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Fprintf(out, "%d duplicate keys:\n", len(keys))
		for _, key := range keys {
			fmt.Fprintf(out, "  %s: %v\n", key, dupes[key])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total records:  %d\n", stats.TotalEntries)
		fmt.Fprintf(out, "Database size:  %.1f MB\n", float64(stats.DBSizeBytes)/(1024*1024))
		fmt.Fprintf(out, "Schema version: %s\n", stats.SchemaVersion)

		if len(stats.ByType) > 0 {
			fmt.Fprintln(out, "\nBy entry type:")
			for _, name := range sortedKeys(stats.ByType) {
				fmt.Fprintf(out, "  %-16s %d\n", name, stats.ByType[name])
			}
		}
		if len(stats.ByFile) > 0 {
			fmt.Fprintln(out, "\nBy source file:")
			for _, name := range sortedKeys(stats.ByFile) {
				fmt.Fprintf(out, "  %-32s %d\n", filepath.Base(name), stats.ByFile[name])
			}
		}
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

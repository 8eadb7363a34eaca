package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/index"
	"github.com/b-vitamins/bibliography/internal/repo"
	"github.com/b-vitamins/bibliography/internal/store"
)

var flagIndexNoClear bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build and maintain the search index",
}

func newBuilder(cmd *cobra.Command) (*index.Builder, store.Store, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return index.NewBuilder(repo.New(cfg.Root), st, cmd.OutOrStdout()), st, nil
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index every record in the repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, st, err := newBuilder(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		_, err = builder.Build(!flagIndexNoClear)
		return err
	},
}

var indexUpdateCmd = &cobra.Command{
	Use:   "update [files...]",
	Short: "Re-index specific .bib files, or everything with no arguments",
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, st, err := newBuilder(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		files := make([]string, len(args))
		for i, arg := range args {
			if files[i], err = filepath.Abs(arg); err != nil {
				return err
			}
		}
		return builder.Update(files)
	},
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Compare the index against the repository",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, st, err := newBuilder(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		status, err := builder.Status()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Indexed records:    %d\n", status.IndexEntries)
		fmt.Fprintf(out, "Repository records: %d\n", status.RepoEntries)
		fmt.Fprintf(out, "Projection rows:    %d\n", status.FTSRows)
		fmt.Fprintf(out, "Database size:      %.1f MB\n", float64(status.DBSizeBytes)/(1024*1024))
		if status.UpToDate {
			fmt.Fprintln(out, "Index is up to date")
		} else {
			fmt.Fprintln(out, "Index is stale, run 'bib index build'")
		}
		return nil
	},
}

var indexCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check primary/projection consistency and duplicate keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		r := repo.New(cfg.Root)
		builder := index.NewBuilder(r, st, cmd.OutOrStdout())
		out := cmd.OutOrStdout()

		report, err := builder.CheckConsistency()
		if err != nil {
			return err
		}
		if report.Consistent {
			fmt.Fprintf(out, "Index consistent: %d records\n", report.Entries)
		} else {
			fmt.Fprintf(out, "Index INCONSISTENT: %d primary rows, %d projection rows\n",
				report.Entries, report.FTSRows)
			fmt.Fprintln(out, "Run 'bib index rebuild-fts' to repair")
		}

		dupes, err := r.FindDuplicates()
		if err != nil {
			return err
		}
		if len(dupes) > 0 {
			keys := make([]string, 0, len(dupes))
			for key := range dupes {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			fmt.Fprintf(out, "\n%d duplicate keys on disk:\n", len(keys))
			for _, key := range keys {
				fmt.Fprintf(out, "  %s: %v\n", key, dupes[key])
			}
		}
		return nil
	},
}

var indexRebuildFTSCmd = &cobra.Command{
	Use:   "rebuild-fts",
	Short: "Recompute the search projection from the primary rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, st, err := newBuilder(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		return builder.RebuildFTS()
	},
}

var indexOptimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compact the index and reclaim space",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Optimize()
	},
}

func init() {
	indexBuildCmd.Flags().BoolVar(&flagIndexNoClear, "no-clear", false, "keep existing index rows")
	indexCmd.AddCommand(indexBuildCmd, indexUpdateCmd, indexStatusCmd,
		indexCheckCmd, indexRebuildFTSCmd, indexOptimizeCmd)
	rootCmd.AddCommand(indexCmd)
}

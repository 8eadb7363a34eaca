package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/b-vitamins/bibliography/internal/config"
	"github.com/b-vitamins/bibliography/internal/repo"
	"github.com/b-vitamins/bibliography/internal/store"
)

var (
	flagRoot    string
	flagDB      string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bib",
	Short: "Manage a BibTeX bibliography with a searchable index",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "repository root (default $BIB_ROOT or working directory)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "index database path (default $BIB_DB or the user cache directory)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// resolveConfig merges flags over environment configuration.
func resolveConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagRoot != "" {
		cfg.Root = flagRoot
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	return cfg, nil
}

func openRepo() (*repo.Repository, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	return repo.New(cfg.Root), nil
}

func openStore() (store.Store, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	return store.Open(cfg.DBPath)
}

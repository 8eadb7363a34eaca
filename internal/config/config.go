// Package config resolves the repository root and index database location
// from the environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds the settings shared by every command.
type Config struct {
	// Root is the bibliography repository root; .bib files live under
	// <Root>/bibtex.
	Root string
	// DBPath is the index database file.
	DBPath string
}

// Load reads configuration from the environment, after best-effort loading
// a .env file from the working directory. Variables already set in the
// environment win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	root := getEnv("BIB_ROOT", "")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = wd
	}

	return &Config{
		Root:   root,
		DBPath: getEnv("BIB_DB", DefaultDBPath()),
	}, nil
}

// DefaultDBPath returns the index location under the platform cache
// directory: $XDG_CACHE_HOME, else ~/.cache, plus the application
// namespace.
func DefaultDBPath() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "bibliography", "index.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

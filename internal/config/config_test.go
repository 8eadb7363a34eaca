package config

import (
	"path/filepath"
	"testing"
)

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BIB_ROOT", "/data/bib")
	t.Setenv("BIB_DB", "/data/index.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root != "/data/bib" {
		t.Errorf("Root = %q", cfg.Root)
	}
	if cfg.DBPath != "/data/index.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
}

func TestLoadDefaultsToWorkingDirectory(t *testing.T) {
	t.Setenv("BIB_ROOT", "")
	t.Setenv("BIB_DB", "/data/index.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Root == "" {
		t.Error("Root is empty, want working directory")
	}
	if !filepath.IsAbs(cfg.Root) {
		t.Errorf("Root = %q, want absolute path", cfg.Root)
	}
}

func TestDefaultDBPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/custom/cache")

	want := filepath.Join("/custom/cache", "bibliography", "index.db")
	if got := DefaultDBPath(); got != want {
		t.Errorf("DefaultDBPath = %q, want %q", got, want)
	}
}

func TestDefaultDBPathFallsBackToHome(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/someone")

	want := filepath.Join("/home/someone", ".cache", "bibliography", "index.db")
	if got := DefaultDBPath(); got != want {
		t.Errorf("DefaultDBPath = %q, want %q", got, want)
	}
}

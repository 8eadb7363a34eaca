package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/b-vitamins/bibliography/internal/repo"
)

// parseFieldArgs turns repeated "name=value" flags into a field map.
func parseFieldArgs(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q, expected name=value", arg)
		}
		fields[strings.ToLower(name)] = value
	}
	return fields, nil
}

// withDryRun runs fn against the repository, diverting mutations into a
// changeset and printing its summary when dryRun is set.
func withDryRun(r *repo.Repository, dryRun bool, out io.Writer, fn func() error) error {
	if !dryRun {
		return fn()
	}
	cs := r.EnableDryRun()
	defer r.DisableDryRun()

	if err := fn(); err != nil {
		return err
	}
	fmt.Fprintln(out, cs.Summary())
	return nil
}

// Package repo implements the file-backed record store. A directory of .bib
// files is the source of truth; mutations rewrite whole files atomically.
// An optional dry-run session diverts mutations into a ChangeSet instead of
// writing to disk.
package repo

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/b-vitamins/bibliography/internal/biblio"
	"github.com/b-vitamins/bibliography/internal/bibtex"
)

// ErrNotFound is returned when no record with the requested key exists.
var ErrNotFound = errors.New("record not found")

// DuplicateKeyError is returned by Add when the key already exists anywhere
// in the repository.
type DuplicateKeyError struct {
	Key  string
	File string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("record with key %q already exists in %s", e.Key, e.File)
}

// Repository manages the .bib files under <root>/bibtex. It keeps one cached
// record list per file, populated lazily and refreshed only on an explicit
// force-reload. A single cooperating writer is assumed; there is no locking.
type Repository struct {
	root      string
	bibtexDir string
	cache     map[string][]biblio.Record
	changeset *ChangeSet
	dryRun    bool
	logger    *slog.Logger
}

// New creates a repository rooted at root. Records live under <root>/bibtex.
func New(root string) *Repository {
	return &Repository{
		root:      root,
		bibtexDir: filepath.Join(root, "bibtex"),
		cache:     make(map[string][]biblio.Record),
		logger:    slog.Default(),
	}
}

// Root returns the repository root directory.
func (r *Repository) Root() string { return r.root }

// EnableDryRun starts a dry-run session. Until DisableDryRun is called,
// mutations are recorded in the returned ChangeSet and nothing is written
// to disk. Sessions do not nest; enabling twice resets the changeset.
func (r *Repository) EnableDryRun() *ChangeSet {
	r.dryRun = true
	r.changeset = newChangeSet()
	return r.changeset
}

// DisableDryRun ends the dry-run session and discards the changeset.
func (r *Repository) DisableDryRun() {
	r.dryRun = false
	r.changeset = nil
}

// DryRun reports whether a dry-run session is active.
func (r *Repository) DryRun() bool { return r.dryRun }

// ChangeSet returns the active changeset, or nil outside a dry-run session.
func (r *Repository) ChangeSet() *ChangeSet { return r.changeset }

// Load returns all records from every .bib file under the managed root.
// Without forceReload, the cached flattening is returned if non-empty.
// A file that fails to parse is logged and contributes no records; it does
// not abort loading of the others.
func (r *Repository) Load(forceReload bool) ([]biblio.Record, error) {
	if !forceReload && len(r.cache) > 0 {
		return r.flatten(), nil
	}

	clear(r.cache)

	err := filepath.WalkDir(r.bibtexDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".bib") {
			return nil
		}
		records, err := bibtex.ParseFile(path)
		if err != nil {
			r.logger.Warn("skipping malformed bib file", "path", path, "error", err)
			return nil
		}
		r.cache[path] = records
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", r.bibtexDir, err)
	}

	return r.flatten(), nil
}

// flatten returns the cached records in sorted file order.
func (r *Repository) flatten() []biblio.Record {
	paths := make([]string, 0, len(r.cache))
	for path := range r.cache {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var all []biblio.Record
	for _, path := range paths {
		all = append(all, r.cache[path]...)
	}
	return all
}

// Get returns the record with the given key, or ErrNotFound.
func (r *Repository) Get(key string) (biblio.Record, error) {
	records, err := r.Load(false)
	if err != nil {
		return biblio.Record{}, err
	}
	for _, rec := range records {
		if rec.Key == key {
			return rec, nil
		}
	}
	return biblio.Record{}, ErrNotFound
}

// EntriesByFile returns the records in a single .bib file, loading and
// caching it on first access. A missing file yields an empty list.
func (r *Repository) EntriesByFile(path string) ([]biblio.Record, error) {
	if records, ok := r.cache[path]; ok {
		return records, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		r.cache[path] = nil
		return nil, nil
	}
	records, err := bibtex.ParseFile(path)
	if err != nil {
		return nil, err
	}
	r.cache[path] = records
	return records, nil
}

// TargetFile returns the conventional file for an entry type:
// <root>/bibtex/by-type/<type>.bib.
func (r *Repository) TargetFile(entryType string) string {
	return filepath.Join(r.bibtexDir, "by-type", entryType+".bib")
}

// Add inserts a new record. targetFile == "" picks the by-type file for the
// record's type. Returns a DuplicateKeyError if the key exists anywhere in
// the repository.
func (r *Repository) Add(rec biblio.Record, targetFile string) error {
	if targetFile == "" {
		targetFile = r.TargetFile(rec.Type)
	}

	if existing, err := r.Get(rec.Key); err == nil {
		return &DuplicateKeyError{Key: rec.Key, File: existing.SourceFile}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	existing, err := r.EntriesByFile(targetFile)
	if err != nil {
		return err
	}

	rec.SourceFile = targetFile
	updated := append(append([]biblio.Record{}, existing...), rec)
	return r.Persist(updated, targetFile)
}

// Remove deletes the record with the given key from its owning file and
// returns it, or ErrNotFound.
func (r *Repository) Remove(key string) (biblio.Record, error) {
	rec, err := r.Get(key)
	if err != nil {
		return biblio.Record{}, err
	}

	entries := r.cache[rec.SourceFile]
	updated := make([]biblio.Record, 0, len(entries))
	for _, e := range entries {
		if e.Key != key {
			updated = append(updated, e)
		}
	}
	if err := r.Persist(updated, rec.SourceFile); err != nil {
		return biblio.Record{}, err
	}
	return rec, nil
}

// Update applies field changes to the record with the given key. A nil value
// deletes the field. The stored record is replaced by a modified clone; the
// new record is returned, or ErrNotFound.
func (r *Repository) Update(key string, changes map[string]*string) (biblio.Record, error) {
	rec, err := r.Get(key)
	if err != nil {
		return biblio.Record{}, err
	}

	updated := rec.Apply(changes)

	entries := r.cache[rec.SourceFile]
	replaced := make([]biblio.Record, 0, len(entries))
	for _, e := range entries {
		if e.Key == key {
			replaced = append(replaced, updated)
		} else {
			replaced = append(replaced, e)
		}
	}
	if err := r.Persist(replaced, rec.SourceFile); err != nil {
		return biblio.Record{}, err
	}
	return updated, nil
}

// Move relocates a record to a different .bib file, persisting both files.
// The duplicate-key check is bypassed: the key does not change.
func (r *Repository) Move(key, targetFile string) (biblio.Record, error) {
	rec, err := r.Get(key)
	if err != nil {
		return biblio.Record{}, err
	}
	if rec.SourceFile == targetFile {
		return rec, nil
	}

	source := r.cache[rec.SourceFile]
	remaining := make([]biblio.Record, 0, len(source))
	for _, e := range source {
		if e.Key != key {
			remaining = append(remaining, e)
		}
	}
	if err := r.Persist(remaining, rec.SourceFile); err != nil {
		return biblio.Record{}, err
	}

	target, err := r.EntriesByFile(targetFile)
	if err != nil {
		return biblio.Record{}, err
	}
	rec.SourceFile = targetFile
	updated := append(append([]biblio.Record{}, target...), rec)
	if err := r.Persist(updated, targetFile); err != nil {
		return biblio.Record{}, err
	}
	return rec, nil
}

// Persist is the single write path for a file's record list. Outside a
// dry-run session it serializes the list and writes via a temporary file
// followed by an atomic rename, then refreshes the cache. During dry-run it
// diffs the list against the cached previous contents and records the diff
// in the changeset; no disk I/O occurs and the cache is left untouched.
func (r *Repository) Persist(records []biblio.Record, path string) error {
	if r.dryRun {
		r.recordDiff(r.cache[path], records)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bib-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(bibtex.Serialize(records)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}

	r.cache[path] = records
	return nil
}

// recordDiff appends the difference between the old and new record lists to
// the active changeset.
func (r *Repository) recordDiff(old, new []biblio.Record) {
	oldByKey := make(map[string]biblio.Record, len(old))
	for _, rec := range old {
		oldByKey[rec.Key] = rec
	}
	newKeys := make(map[string]bool, len(new))

	for _, rec := range new {
		newKeys[rec.Key] = true
		prev, ok := oldByKey[rec.Key]
		if !ok {
			r.changeset.Added = append(r.changeset.Added, rec)
		} else if !maps.Equal(prev.Fields, rec.Fields) {
			r.changeset.Updated = append(r.changeset.Updated, UpdatePair{Old: prev, New: rec})
		}
	}
	for _, rec := range old {
		if !newKeys[rec.Key] {
			r.changeset.Removed = append(r.changeset.Removed, rec)
		}
	}
}

// CopyFile copies an attachment file. In dry-run the copy is only recorded.
func (r *Repository) CopyFile(src, dst string) error {
	if r.dryRun {
		r.changeset.FileOps = append(r.changeset.FileOps, FileOp{Op: "copy", Src: src, Dst: dst})
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// MoveFile renames an attachment file. In dry-run the move is only recorded.
func (r *Repository) MoveFile(src, dst string) error {
	if r.dryRun {
		r.changeset.FileOps = append(r.changeset.FileOps, FileOp{Op: "move", Src: src, Dst: dst})
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("move to %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	return nil
}

// DeleteFile removes an attachment file. In dry-run the delete is only
// recorded.
func (r *Repository) DeleteFile(path string) error {
	if r.dryRun {
		r.changeset.FileOps = append(r.changeset.FileOps, FileOp{Op: "delete", Src: path})
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Stats summarizes the repository contents.
type Stats struct {
	TotalRecords int
	TotalFiles   int
	ByType       map[string]int
}

// Stats returns record and file counts for the repository.
func (r *Repository) Stats() (*Stats, error) {
	records, err := r.Load(false)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		TotalRecords: len(records),
		TotalFiles:   len(r.cache),
		ByType:       make(map[string]int),
	}
	for _, rec := range records {
		s.ByType[rec.Type]++
	}
	return s, nil
}

// FindDuplicates scans all loaded files for keys that appear more than once
// on disk. Add prevents new duplicates, but files edited externally can
// already contain them; this is an advisory check, not an enforced
// invariant.
func (r *Repository) FindDuplicates() (map[string][]string, error) {
	records, err := r.Load(false)
	if err != nil {
		return nil, err
	}
	seen := make(map[string][]string)
	for _, rec := range records {
		seen[rec.Key] = append(seen[rec.Key], rec.SourceFile)
	}
	dupes := make(map[string][]string)
	for key, files := range seen {
		if len(files) > 1 {
			sort.Strings(files)
			dupes[key] = files
		}
	}
	return dupes, nil
}

// Package index populates the search index from the file repository. The
// flow is one-directional: records are read from the repository and written
// into the store, and only when a build or update is explicitly requested.
package index

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/b-vitamins/bibliography/internal/repo"
	"github.com/b-vitamins/bibliography/internal/store"
)

const batchSize = 1000

// BuildStats reports the outcome of a full index build.
type BuildStats struct {
	Records int
	Elapsed time.Duration
}

// Status compares the index against the repository.
type Status struct {
	IndexEntries int
	RepoEntries  int
	UpToDate     bool
	FTSRows      int
	DBSizeBytes  int64
	ByType       map[string]int
	ByFile       map[string]int
}

// Builder reads all records from the repository and writes them into the
// index store. Progress goes to the injected output sink.
type Builder struct {
	repo   *repo.Repository
	store  store.Store
	out    io.Writer
	logger *slog.Logger
}

// NewBuilder creates a builder. out receives human-readable progress; pass
// io.Discard to silence it.
func NewBuilder(r *repo.Repository, s store.Store, out io.Writer) *Builder {
	if out == nil {
		out = io.Discard
	}
	return &Builder{repo: r, store: s, out: out, logger: slog.Default()}
}

// Build indexes every record in the repository, optionally clearing the
// existing index first, then compacts the search structures.
func (b *Builder) Build(clearExisting bool) (*BuildStats, error) {
	if clearExisting {
		fmt.Fprintln(b.out, "Clearing existing index...")
		if err := b.store.ClearAll(); err != nil {
			return nil, fmt.Errorf("clear index: %w", err)
		}
	}

	records, err := b.repo.Load(false)
	if err != nil {
		return nil, fmt.Errorf("load repository: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(b.out, "No records found to index")
		return &BuildStats{}, nil
	}

	start := time.Now()
	if err := b.store.InsertBatch(records, batchSize); err != nil {
		return nil, fmt.Errorf("index records: %w", err)
	}

	fmt.Fprintln(b.out, "Optimizing index...")
	if err := b.store.Optimize(); err != nil {
		return nil, fmt.Errorf("optimize index: %w", err)
	}

	stats := &BuildStats{Records: len(records), Elapsed: time.Since(start)}
	rate := float64(stats.Records) / max(stats.Elapsed.Seconds(), 1e-9)
	fmt.Fprintf(b.out, "Indexed %d records in %s (%.0f records/sec)\n",
		stats.Records, stats.Elapsed.Round(time.Millisecond), rate)
	return stats, nil
}

// Update re-indexes specific source files: stale rows for each file are
// dropped, then its current records inserted. With no files given, the
// whole index is rebuilt.
func (b *Builder) Update(files []string) error {
	if len(files) == 0 {
		_, err := b.Build(true)
		return err
	}

	for _, file := range files {
		records, err := b.repo.EntriesByFile(file)
		if err != nil {
			b.logger.Warn("skipping file during index update", "path", file, "error", err)
			continue
		}
		if err := b.store.DeleteByFile(file); err != nil {
			return fmt.Errorf("drop stale rows for %s: %w", file, err)
		}
		if err := b.store.InsertBatch(records, batchSize); err != nil {
			return fmt.Errorf("index %s: %w", file, err)
		}
		fmt.Fprintf(b.out, "Updated %s (%d records)\n", file, len(records))
	}
	return nil
}

// Status reports how the index compares to the repository.
func (b *Builder) Status() (*Status, error) {
	stats, err := b.store.Stats()
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	records, err := b.repo.Load(false)
	if err != nil {
		return nil, fmt.Errorf("load repository: %w", err)
	}
	return &Status{
		IndexEntries: stats.TotalEntries,
		RepoEntries:  len(records),
		UpToDate:     stats.TotalEntries == len(records),
		FTSRows:      stats.FTSRows,
		DBSizeBytes:  stats.DBSizeBytes,
		ByType:       stats.ByType,
		ByFile:       stats.ByFile,
	}, nil
}

// CheckConsistency compares primary and projection row counts.
func (b *Builder) CheckConsistency() (store.ConsistencyReport, error) {
	return b.store.CheckConsistency()
}

// RebuildFTS recomputes the search projection from the primary rows. This
// is the repair path for an inconsistent index.
func (b *Builder) RebuildFTS() error {
	fmt.Fprintln(b.out, "Rebuilding search projection...")
	start := time.Now()
	if err := b.store.RebuildFTS(); err != nil {
		return fmt.Errorf("rebuild projection: %w", err)
	}
	fmt.Fprintf(b.out, "Projection rebuilt in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

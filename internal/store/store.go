// Package store implements the search index: a SQLite database holding a
// primary row per record plus an FTS5 projection of its searchable fields.
// Both rows are written in the same transaction, so the projection never
// drifts from the primary rowset except through external interference,
// which CheckConsistency detects and RebuildFTS repairs.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/b-vitamins/bibliography/internal/biblio"
)

// ErrNotFound is returned when no row with the requested key exists.
var ErrNotFound = errors.New("record not indexed")

// emptyQueryScore is the placeholder assigned to browse results when the
// query is blank.
const emptyQueryScore = 50.0

// Store is the read/write interface over the search index.
type Store interface {
	// Insert writes or overwrites the primary row and its search
	// projection in one transaction.
	Insert(rec biblio.Record) error
	// InsertBatch inserts records in chunks of batchSize (default 1000).
	// Batching is a throughput knob only; final contents are identical
	// for any batch size. A mid-batch failure leaves earlier chunks
	// committed.
	InsertBatch(records []biblio.Record, batchSize int) error
	// GetByKey returns the indexed record for a key, or ErrNotFound.
	GetByKey(key string) (biblio.Record, error)
	// GetByFile returns all indexed records from one source file.
	GetByFile(path string) ([]biblio.Record, error)
	// GetByField returns records whose field equals value. field may be a
	// structural column (key, type, source_file) or a field inside the
	// data blob.
	GetByField(field, value string, limit int) ([]biblio.Record, error)
	// Locate returns records whose attachment field matches the pattern,
	// using GLOB when glob is true and substring matching otherwise.
	Locate(pattern string, glob bool) ([]biblio.Record, error)
	// SearchFTS runs a translated query against the search projection.
	// A blank query returns the most recently inserted rows with a
	// placeholder score; a query the backend rejects yields an empty
	// result, never an error.
	SearchFTS(query string, limit, offset int) ([]Match, error)
	// All returns every indexed record ordered by key.
	All() ([]biblio.Record, error)
	// DeleteByFile removes all rows for a source file from both rowsets.
	DeleteByFile(path string) error
	// ClearAll empties both rowsets.
	ClearAll() error
	// Optimize compacts the FTS structures and vacuums the database.
	Optimize() error
	// RebuildFTS recomputes every projection row from the primary rows.
	RebuildFTS() error
	// CheckConsistency compares primary and projection row counts.
	CheckConsistency() (ConsistencyReport, error)
	// Stats reports index contents and on-disk size.
	Stats() (*Stats, error)
	// Close closes the underlying database.
	Close() error
}

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open creates or opens the index database at dbPath, creating parent
// directories and initializing the schema as needed.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := Init(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db, path: dbPath, logger: slog.Default()}, nil
}

// projection returns the seven searchable column values for a record,
// defaulting to "" for absent fields.
func projection(rec biblio.Record) [7]string {
	return [7]string{
		rec.Key,
		rec.Field("title"),
		rec.Field("author"),
		rec.Field("abstract"),
		rec.Field("keywords"),
		rec.Venue(),
		rec.Field("year"),
	}
}

// insertTx writes the primary row and regenerates the projection row inside
// the caller's transaction.
func insertTx(tx *sql.Tx, rec biblio.Record) error {
	data, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields for %s: %w", rec.Key, err)
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO entries (key, entry_type, source_file, data) VALUES (?, ?, ?, ?)",
		rec.Key, rec.Type, rec.SourceFile, string(data),
	); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM entries_fts WHERE key = ?", rec.Key); err != nil {
		return err
	}
	p := projection(rec)
	_, err = tx.Exec(
		"INSERT INTO entries_fts (key, title, author, abstract, keywords, venue, year) VALUES (?, ?, ?, ?, ?, ?, ?)",
		p[0], p[1], p[2], p[3], p[4], p[5], p[6],
	)
	return err
}

func (s *SQLiteStore) Insert(rec biblio.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertTx(tx, rec); err != nil {
		return fmt.Errorf("insert %s: %w", rec.Key, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) InsertBatch(records []biblio.Record, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))

		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, rec := range records[start:end] {
			if err := insertTx(tx, rec); err != nil {
				tx.Rollback()
				return fmt.Errorf("insert %s: %w", rec.Key, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) GetByKey(key string) (biblio.Record, error) {
	row := s.db.QueryRow(
		"SELECT key, entry_type, source_file, data FROM entries WHERE key = ?", key,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return biblio.Record{}, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) GetByFile(path string) ([]biblio.Record, error) {
	return s.queryRecords(
		"SELECT key, entry_type, source_file, data FROM entries WHERE source_file = ? ORDER BY key",
		path,
	)
}

func (s *SQLiteStore) GetByField(field, value string, limit int) ([]biblio.Record, error) {
	switch field {
	case "key":
		return s.queryRecords(
			"SELECT key, entry_type, source_file, data FROM entries WHERE key = ? LIMIT ?",
			value, limit,
		)
	case "type", "entry_type":
		return s.queryRecords(
			"SELECT key, entry_type, source_file, data FROM entries WHERE entry_type = ? LIMIT ?",
			value, limit,
		)
	case "source_file":
		return s.queryRecords(
			"SELECT key, entry_type, source_file, data FROM entries WHERE source_file = ? LIMIT ?",
			value, limit,
		)
	default:
		return s.queryRecords(
			"SELECT key, entry_type, source_file, data FROM entries WHERE json_extract(data, '$.' || ?) = ? LIMIT ?",
			field, value, limit,
		)
	}
}

func (s *SQLiteStore) Locate(pattern string, glob bool) ([]biblio.Record, error) {
	if glob {
		return s.queryRecords(
			`SELECT DISTINCT key, entry_type, source_file, data FROM entries
			 WHERE json_extract(data, '$.file') GLOB '*' || ? || '*' ORDER BY key`,
			pattern,
		)
	}
	return s.queryRecords(
		`SELECT DISTINCT key, entry_type, source_file, data FROM entries
		 WHERE json_extract(data, '$.file') LIKE '%' || ? || '%' ORDER BY key`,
		pattern,
	)
}

func (s *SQLiteStore) SearchFTS(query string, limit, offset int) ([]Match, error) {
	if isBlank(query) {
		// Browse mode: most recently inserted first, placeholder score.
		records, err := s.queryRecords(
			"SELECT key, entry_type, source_file, data FROM entries ORDER BY id DESC LIMIT ? OFFSET ?",
			limit, offset,
		)
		if err != nil {
			return nil, err
		}
		matches := make([]Match, len(records))
		for i, rec := range records {
			matches[i] = Match{Record: rec, Score: emptyQueryScore}
		}
		return matches, nil
	}

	// Column weights favor title and author over the long-text fields.
	rows, err := s.db.Query(`
		SELECT e.key, e.entry_type, e.source_file, e.data,
		       bm25(entries_fts, 2.0, 10.0, 8.0, 4.0, 4.0, 3.0, 3.0) AS rank
		FROM entries e
		JOIN entries_fts ON e.key = entries_fts.key
		WHERE entries_fts MATCH ?
		ORDER BY rank DESC
		LIMIT ? OFFSET ?`,
		query, limit, offset,
	)
	if err != nil {
		// Syntax the backend rejects degrades to an empty result.
		s.logger.Debug("fts query rejected", "query", query, "error", err)
		return nil, nil
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var rec biblio.Record
		var data string
		var rank float64
		if err := rows.Scan(&rec.Key, &rec.Type, &rec.SourceFile, &data, &rank); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields for %s: %w", rec.Key, err)
		}
		matches = append(matches, Match{Record: rec, Score: displayScore(rank)})
	}
	if err := rows.Err(); err != nil {
		// The driver reports some FTS syntax errors only on the first step.
		s.logger.Debug("fts query rejected", "query", query, "error", err)
		return nil, nil
	}
	return matches, nil
}

// displayScore maps a raw bm25 rank onto the bounded [0, 100] display
// scale, higher meaning more relevant.
func displayScore(rank float64) float64 {
	return math.Max(0, math.Min(100, 100-math.Abs(rank)*10))
}

func (s *SQLiteStore) All() ([]biblio.Record, error) {
	return s.queryRecords("SELECT key, entry_type, source_file, data FROM entries ORDER BY key")
}

func (s *SQLiteStore) DeleteByFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM entries_fts WHERE key IN (SELECT key FROM entries WHERE source_file = ?)", path,
	); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM entries WHERE source_file = ?", path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries_fts"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Optimize() error {
	if _, err := s.db.Exec("INSERT INTO entries_fts(entries_fts) VALUES('rebuild')"); err != nil {
		return fmt.Errorf("fts rebuild: %w", err)
	}
	if _, err := s.db.Exec("INSERT INTO entries_fts(entries_fts) VALUES('optimize')"); err != nil {
		return fmt.Errorf("fts optimize: %w", err)
	}
	if _, err := s.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RebuildFTS() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries_fts"); err != nil {
		return err
	}
	// Mirrors projection(): venue is journal falling back to booktitle.
	if _, err := tx.Exec(`
		INSERT INTO entries_fts (key, title, author, abstract, keywords, venue, year)
		SELECT key,
		       COALESCE(json_extract(data, '$.title'), ''),
		       COALESCE(json_extract(data, '$.author'), ''),
		       COALESCE(json_extract(data, '$.abstract'), ''),
		       COALESCE(json_extract(data, '$.keywords'), ''),
		       COALESCE(NULLIF(json_extract(data, '$.journal'), ''), json_extract(data, '$.booktitle'), ''),
		       COALESCE(json_extract(data, '$.year'), '')
		FROM entries`,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) CheckConsistency() (ConsistencyReport, error) {
	var report ConsistencyReport
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&report.Entries); err != nil {
		return report, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries_fts").Scan(&report.FTSRows); err != nil {
		return report, err
	}
	report.Consistent = report.Entries == report.FTSRows
	if !report.Consistent {
		s.logger.Warn("index inconsistent",
			"entries", report.Entries, "fts_rows", report.FTSRows)
	}
	return report, nil
}

func (s *SQLiteStore) Stats() (*Stats, error) {
	stats := &Stats{
		ByType: make(map[string]int),
		ByFile: make(map[string]int),
	}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&stats.TotalEntries); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM entries_fts").Scan(&stats.FTSRows); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").
		Scan(&stats.SchemaVersion); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rows, err := s.db.Query("SELECT entry_type, COUNT(*) FROM entries GROUP BY entry_type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		stats.ByType[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fileRows, err := s.db.Query("SELECT source_file, COUNT(*) FROM entries GROUP BY source_file")
	if err != nil {
		return nil, err
	}
	defer fileRows.Close()
	for fileRows.Next() {
		var file string
		var n int
		if err := fileRows.Scan(&file, &n); err != nil {
			return nil, err
		}
		stats.ByFile[file] = n
	}
	if err := fileRows.Err(); err != nil {
		return nil, err
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.DBSizeBytes = info.Size()
	}
	return stats, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (biblio.Record, error) {
	var rec biblio.Record
	var data string
	if err := row.Scan(&rec.Key, &rec.Type, &rec.SourceFile, &data); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(data), &rec.Fields); err != nil {
		return rec, fmt.Errorf("unmarshal fields for %s: %w", rec.Key, err)
	}
	return rec, nil
}

func (s *SQLiteStore) queryRecords(query string, args ...any) ([]biblio.Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []biblio.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

package store

import (
	"database/sql"
	"fmt"
)

// schemaVersion is bumped when the table layout changes; the stored marker
// lives in the meta table.
const schemaVersion = "1"

const ddl = `
CREATE TABLE IF NOT EXISTS entries (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    key         TEXT NOT NULL UNIQUE,
    entry_type  TEXT NOT NULL,
    source_file TEXT NOT NULL,
    data        TEXT NOT NULL DEFAULT '{}',
    indexed_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_entries_type   ON entries(entry_type);
CREATE INDEX IF NOT EXISTS idx_entries_source ON entries(source_file);

CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
    key, title, author, abstract, keywords, venue, year,
    tokenize='porter unicode61'
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Init creates the schema if it does not exist and stamps the schema
// version marker. Requires an FTS5-enabled SQLite build.
func Init(db *sql.DB) error {
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	_, err := db.Exec(
		"INSERT INTO meta (key, value) VALUES ('schema_version', ?) ON CONFLICT(key) DO NOTHING",
		schemaVersion,
	)
	return err
}

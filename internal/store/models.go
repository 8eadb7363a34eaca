package store

import "github.com/b-vitamins/bibliography/internal/biblio"

// Match pairs a record read from the index with its display score. Scores
// are bounded to [0, 100]; higher means more relevant.
type Match struct {
	Record biblio.Record
	Score  float64
}

// ConsistencyReport compares the primary rowset against the search
// projection.
type ConsistencyReport struct {
	Entries    int
	FTSRows    int
	Consistent bool
}

// Stats summarizes the index contents.
type Stats struct {
	TotalEntries  int
	ByType        map[string]int
	ByFile        map[string]int
	DBSizeBytes   int64
	FTSRows       int
	SchemaVersion string
}

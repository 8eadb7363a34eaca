// Package search composes the query translator with index lookups and
// result ordering. It reads only from the index store, never from the file
// repository.
package search

import (
	"log/slog"
	"sort"

	"github.com/b-vitamins/bibliography/internal/biblio"
	"github.com/b-vitamins/bibliography/internal/query"
	"github.com/b-vitamins/bibliography/internal/store"
)

// SortOrder selects how search results are ordered.
type SortOrder string

const (
	SortRelevance SortOrder = "relevance"
	SortYear      SortOrder = "year"
	SortAuthor    SortOrder = "author"
	SortTitle     SortOrder = "title"
)

// fieldMatchScore is the synthetic score given to exact field matches,
// where relevance ranking is meaningless.
const fieldMatchScore = 95.0

// Result is a record with its relevance score in [0, 100].
type Result struct {
	Record biblio.Record
	Score  float64
}

// Engine runs full-text and exact searches against the index store.
type Engine struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a search engine over the given index store.
func New(s store.Store) *Engine {
	return &Engine{store: s, logger: slog.Default()}
}

// Search translates the query, runs it against the search projection, and
// re-sorts client-side when sortBy is not relevance. Malformed queries
// degrade to an empty result; translation warnings are returned for
// display.
func (e *Engine) Search(userQuery string, limit, offset int, sortBy SortOrder) ([]Result, []string, error) {
	translated, warnings := query.Translate(userQuery)
	for _, w := range warnings {
		e.logger.Info("query translation", "warning", w)
	}

	matches, err := e.store.SearchFTS(translated, limit, offset)
	if err != nil {
		return nil, warnings, err
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{Record: m.Record, Score: m.Score}
	}

	if sortBy != "" && sortBy != SortRelevance {
		sortResults(results, sortBy)
	}
	return results, warnings, nil
}

// SearchByKey returns the indexed record with the exact key, or
// store.ErrNotFound.
func (e *Engine) SearchByKey(key string) (biblio.Record, error) {
	return e.store.GetByKey(key)
}

// SearchByField returns records whose field exactly equals value. All hits
// carry the same synthetic score.
func (e *Engine) SearchByField(field, value string, limit int) ([]Result, error) {
	records, err := e.store.GetByField(field, value, limit)
	if err != nil {
		return nil, err
	}
	results := make([]Result, len(records))
	for i, rec := range records {
		results[i] = Result{Record: rec, Score: fieldMatchScore}
	}
	return results, nil
}

// Stats reports index statistics.
func (e *Engine) Stats() (*store.Stats, error) {
	return e.store.Stats()
}

// sortResults orders results by year (descending) or author/title
// (ascending). Missing values sort as the empty string.
func sortResults(results []Result, sortBy SortOrder) {
	switch sortBy {
	case SortYear:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Record.Field("year") > results[j].Record.Field("year")
		})
	case SortAuthor:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Record.Field("author") < results[j].Record.Field("author")
		})
	case SortTitle:
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Record.Field("title") < results[j].Record.Field("title")
		})
	}
}

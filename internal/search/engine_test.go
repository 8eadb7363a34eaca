package search

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/b-vitamins/bibliography/internal/biblio"
	"github.com/b-vitamins/bibliography/internal/store"
)

func openTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insert(t *testing.T, s store.Store, key string, fields map[string]string) {
	t.Helper()
	err := s.Insert(biblio.Record{
		Key: key, Type: "article", Fields: fields, SourceFile: "/repo/bibtex/a.bib",
	})
	if err != nil {
		t.Fatalf("insert %s: %v", key, err)
	}
}

func TestSearchRelevance(t *testing.T) {
	s := openTestStore(t)
	insert(t, s, "hit", map[string]string{"title": "Graph Neural Networks", "year": "2021"})
	insert(t, s, "miss", map[string]string{"title": "Unrelated Topic", "year": "2020"})

	engine := New(s)
	results, warnings, err := engine.Search("graph", 10, 0, SortRelevance)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if len(results) != 1 || results[0].Record.Key != "hit" {
		t.Errorf("results = %+v, want only hit", results)
	}
}

func TestSearchSortOrders(t *testing.T) {
	s := openTestStore(t)
	insert(t, s, "old", map[string]string{"title": "Neural Alpha", "author": "Zed, Amy", "year": "1999"})
	insert(t, s, "new", map[string]string{"title": "Neural Beta", "author": "Adams, Bo", "year": "2023"})
	insert(t, s, "mid", map[string]string{"title": "Neural Gamma", "author": "Miller, Cy", "year": "2010"})

	engine := New(s)

	tests := []struct {
		sort SortOrder
		want []string
	}{
		{SortYear, []string{"new", "mid", "old"}},
		{SortAuthor, []string{"new", "mid", "old"}},
		{SortTitle, []string{"old", "new", "mid"}},
	}

	for _, tt := range tests {
		results, _, err := engine.Search("neural", 10, 0, tt.sort)
		if err != nil {
			t.Fatalf("Search(%s): %v", tt.sort, err)
		}
		if len(results) != 3 {
			t.Fatalf("Search(%s) returned %d results", tt.sort, len(results))
		}
		for i, key := range tt.want {
			if results[i].Record.Key != key {
				t.Errorf("sort %s position %d = %s, want %s",
					tt.sort, i, results[i].Record.Key, key)
			}
		}
	}
}

func TestSearchUnknownFieldWarns(t *testing.T) {
	s := openTestStore(t)
	insert(t, s, "x", map[string]string{"title": "Springer Handbook"})

	engine := New(s)
	results, warnings, err := engine.Search("publisher:springer", 10, 0, SortRelevance)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one", warnings)
	}
	// The stripped value still searches all fields.
	if len(results) != 1 || results[0].Record.Key != "x" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchMalformedQueryDegrades(t *testing.T) {
	s := openTestStore(t)
	insert(t, s, "x", map[string]string{"title": "T"})

	engine := New(s)
	results, _, err := engine.Search(`AND (((`, 10, 0, SortRelevance)
	if err != nil {
		t.Errorf("malformed query returned error %v, want nil", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want none", results)
	}
}

func TestSearchEmptyQueryBrowses(t *testing.T) {
	s := openTestStore(t)
	insert(t, s, "a", map[string]string{"title": "A"})
	insert(t, s, "b", map[string]string{"title": "B"})

	engine := New(s)
	results, _, err := engine.Search("", 10, 0, SortRelevance)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2", results)
	}
	if results[0].Record.Key != "b" {
		t.Errorf("browse order starts with %s, want b", results[0].Record.Key)
	}
}

func TestSearchByKey(t *testing.T) {
	s := openTestStore(t)
	insert(t, s, "knuth1984", map[string]string{"title": "Literate Programming"})

	engine := New(s)
	rec, err := engine.SearchByKey("knuth1984")
	if err != nil {
		t.Fatalf("SearchByKey: %v", err)
	}
	if rec.Fields["title"] != "Literate Programming" {
		t.Errorf("record = %+v", rec)
	}

	if _, err := engine.SearchByKey("absent"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SearchByKey(absent) = %v, want store.ErrNotFound", err)
	}
}

func TestSearchByField(t *testing.T) {
	s := openTestStore(t)
	insert(t, s, "a", map[string]string{"year": "2020"})
	insert(t, s, "b", map[string]string{"year": "2021"})

	engine := New(s)
	results, err := engine.SearchByField("year", "2020", 10)
	if err != nil {
		t.Fatalf("SearchByField: %v", err)
	}
	if len(results) != 1 || results[0].Record.Key != "a" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Score != fieldMatchScore {
		t.Errorf("score = %v, want %v", results[0].Score, fieldMatchScore)
	}
}

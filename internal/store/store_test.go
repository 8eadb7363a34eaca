package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/b-vitamins/bibliography/internal/biblio"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(key, typ string, fields map[string]string) biblio.Record {
	if fields == nil {
		fields = map[string]string{}
	}
	return biblio.Record{Key: key, Type: typ, Fields: fields, SourceFile: "/repo/bibtex/a.bib"}
}

func TestInsertAndGetByKey(t *testing.T) {
	s := openTestStore(t)
	rec := record("knuth1984", "article", map[string]string{
		"title": "Literate Programming", "year": "1984",
	})
	if err := s.Insert(rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.GetByKey("knuth1984")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Errorf("GetByKey = %+v, want %+v", got, rec)
	}

	if _, err := s.GetByKey("absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByKey(absent) = %v, want ErrNotFound", err)
	}
}

func TestInsertReplacesExisting(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("x", "article", map[string]string{"title": "Old"})); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(record("x", "article", map[string]string{"title": "New"})); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByKey("x")
	if err != nil {
		t.Fatal(err)
	}
	if got.Fields["title"] != "New" {
		t.Errorf("title = %q, want New", got.Fields["title"])
	}

	report, err := s.CheckConsistency()
	if err != nil {
		t.Fatal(err)
	}
	if !report.Consistent || report.Entries != 1 {
		t.Errorf("report = %+v, want one consistent row", report)
	}
}

func TestSearchFTSBlankQuery(t *testing.T) {
	s := openTestStore(t)
	for _, key := range []string{"first", "second", "third"} {
		if err := s.Insert(record(key, "article", map[string]string{"title": key})); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := s.SearchFTS("   ", 2, 0)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	// Most recently inserted first.
	if matches[0].Record.Key != "third" || matches[1].Record.Key != "second" {
		t.Errorf("order = %s, %s", matches[0].Record.Key, matches[1].Record.Key)
	}
	for _, m := range matches {
		if m.Score != emptyQueryScore {
			t.Errorf("score = %v, want %v", m.Score, emptyQueryScore)
		}
	}
}

func TestSearchFTSRanking(t *testing.T) {
	s := openTestStore(t)
	records := []biblio.Record{
		record("hit", "article", map[string]string{
			"title": "Quantum Computing Advances", "author": "Doe, Jane", "year": "2020",
		}),
		record("miss", "article", map[string]string{
			"title": "Classical Mechanics", "author": "Smith, John", "year": "2019",
		}),
	}
	if err := s.InsertBatch(records, 0); err != nil {
		t.Fatal(err)
	}

	matches, err := s.SearchFTS("quantum", 10, 0)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(matches) != 1 || matches[0].Record.Key != "hit" {
		t.Fatalf("matches = %+v, want only hit", matches)
	}
	if matches[0].Score <= 0 || matches[0].Score > 100 {
		t.Errorf("score %v outside (0, 100]", matches[0].Score)
	}
}

func TestSearchFTSFieldQualifier(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("a", "article", map[string]string{
		"title": "On Cats", "author": "Knuth, Donald",
	})); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(record("b", "article", map[string]string{
		"title": "On Knuth", "author": "Someone Else",
	})); err != nil {
		t.Fatal(err)
	}

	matches, err := s.SearchFTS("{author}:knuth", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Record.Key != "a" {
		t.Errorf("matches = %+v, want only record a", matches)
	}
}

func TestSearchFTSVenueColumn(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("j", "article", map[string]string{
		"title": "A", "journal": "Nature Physics",
	})); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(record("c", "inproceedings", map[string]string{
		"title": "B", "booktitle": "NeurIPS Proceedings",
	})); err != nil {
		t.Fatal(err)
	}

	for query, want := range map[string]string{
		"{venue}:nature":  "j",
		"{venue}:neurips": "c",
	} {
		matches, err := s.SearchFTS(query, 10, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(matches) != 1 || matches[0].Record.Key != want {
			t.Errorf("SearchFTS(%q) = %+v, want %s", query, matches, want)
		}
	}
}

func TestSearchFTSBadSyntax(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("x", "article", map[string]string{"title": "T"})); err != nil {
		t.Fatal(err)
	}

	matches, err := s.SearchFTS(`AND (((`, 10, 0)
	if err != nil {
		t.Errorf("rejected syntax returned error %v, want nil", err)
	}
	if len(matches) != 0 {
		t.Errorf("matches = %+v, want none", matches)
	}
}

func TestInsertBatchSizeEquivalence(t *testing.T) {
	records := make([]biblio.Record, 7)
	for i := range records {
		records[i] = record(string(rune('a'+i)), "article", map[string]string{"title": "T"})
	}

	var baseline []biblio.Record
	for _, size := range []int{1, 3, 1000} {
		s := openTestStore(t)
		if err := s.InsertBatch(records, size); err != nil {
			t.Fatalf("InsertBatch(size=%d): %v", size, err)
		}
		all, err := s.All()
		if err != nil {
			t.Fatal(err)
		}
		if baseline == nil {
			baseline = all
			continue
		}
		if !reflect.DeepEqual(all, baseline) {
			t.Errorf("batch size %d produced different contents", size)
		}
	}
}

func TestGetByField(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("a", "article", map[string]string{"year": "2020"})); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(record("b", "book", map[string]string{"year": "2020"})); err != nil {
		t.Fatal(err)
	}

	byType, err := s.GetByField("type", "book", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(byType) != 1 || byType[0].Key != "b" {
		t.Errorf("GetByField(type) = %+v", byType)
	}

	byYear, err := s.GetByField("year", "2020", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(byYear) != 2 {
		t.Errorf("GetByField(year) = %+v, want 2 records", byYear)
	}

	limited, err := s.GetByField("year", "2020", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit ignored: %+v", limited)
	}
}

func TestLocate(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("p1", "article", map[string]string{
		"file": ":/papers/deep-learning.pdf:pdf",
	})); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(record("p2", "article", map[string]string{
		"file": ":/papers/shallow-learning.djvu:djvu",
	})); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(record("p3", "article", map[string]string{"title": "no attachment"})); err != nil {
		t.Fatal(err)
	}

	substr, err := s.Locate("learning", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(substr) != 2 {
		t.Errorf("substring Locate = %+v, want 2", substr)
	}

	glob, err := s.Locate("*.pdf", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(glob) != 1 || glob[0].Key != "p1" {
		t.Errorf("glob Locate = %+v, want only p1", glob)
	}
}

func TestDeleteByFile(t *testing.T) {
	s := openTestStore(t)
	keep := record("keep", "article", map[string]string{"title": "K"})
	keep.SourceFile = "/repo/bibtex/other.bib"
	if err := s.Insert(keep); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(record("gone", "article", map[string]string{"title": "G"})); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteByFile("/repo/bibtex/a.bib"); err != nil {
		t.Fatalf("DeleteByFile: %v", err)
	}

	all, err := s.All()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Key != "keep" {
		t.Errorf("All = %+v, want only keep", all)
	}

	report, err := s.CheckConsistency()
	if err != nil {
		t.Fatal(err)
	}
	if !report.Consistent {
		t.Errorf("inconsistent after DeleteByFile: %+v", report)
	}
}

func TestClearAll(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("x", "article", nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}

	report, err := s.CheckConsistency()
	if err != nil {
		t.Fatal(err)
	}
	if report.Entries != 0 || report.FTSRows != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestConsistencyAndRebuild(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("a", "article", map[string]string{
		"title": "Quantum Widgets", "journal": "Nature",
	})); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(record("b", "article", map[string]string{"title": "B"})); err != nil {
		t.Fatal(err)
	}

	// Simulate external interference with the projection.
	if _, err := s.db.Exec("DELETE FROM entries_fts WHERE key = 'a'"); err != nil {
		t.Fatal(err)
	}
	report, err := s.CheckConsistency()
	if err != nil {
		t.Fatal(err)
	}
	if report.Consistent {
		t.Fatal("corruption not detected")
	}

	if err := s.RebuildFTS(); err != nil {
		t.Fatalf("RebuildFTS: %v", err)
	}
	report, err = s.CheckConsistency()
	if err != nil {
		t.Fatal(err)
	}
	if !report.Consistent || report.Entries != 2 {
		t.Errorf("report after rebuild = %+v", report)
	}

	// The rebuilt projection is searchable again, venue included.
	matches, err := s.SearchFTS("{venue}:nature", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Record.Key != "a" {
		t.Errorf("search after rebuild = %+v", matches)
	}
}

func TestOptimize(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("x", "article", map[string]string{"title": "T"})); err != nil {
		t.Fatal(err)
	}
	if err := s.Optimize(); err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	matches, err := s.SearchFTS("t", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Errorf("search after optimize = %+v", matches)
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	if err := s.Insert(record("a", "article", nil)); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(record("b", "book", nil)); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEntries != 2 || stats.FTSRows != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.ByType["article"] != 1 || stats.ByType["book"] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
	if stats.ByFile["/repo/bibtex/a.bib"] != 2 {
		t.Errorf("ByFile = %v", stats.ByFile)
	}
	if stats.SchemaVersion != schemaVersion {
		t.Errorf("SchemaVersion = %q, want %q", stats.SchemaVersion, schemaVersion)
	}
	if stats.DBSizeBytes == 0 {
		t.Error("DBSizeBytes = 0")
	}
}

func TestDisplayScore(t *testing.T) {
	tests := []struct {
		rank float64
		want float64
	}{
		{0, 100},
		{-2.5, 75},
		{-10, 0},
		{-50, 0},
	}
	for _, tt := range tests {
		if got := displayScore(tt.rank); got != tt.want {
			t.Errorf("displayScore(%v) = %v, want %v", tt.rank, got, tt.want)
		}
	}
}

package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestInsertAndGetTableInfo(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	// Test success case
	info := TableInfo{Name: "test_table", Split: SplitCVC}
	if err := s.InsertTable(ctx, info); err != nil {
		t.Fatalf("InsertTable() failed: %v", err)
	}

	got, err := s.GetTableInfo(ctx, "test_table")
	if err != nil {
		t.Errorf("GetTableInfo: expected no error, got %v", err)
	}
	if got.Name != "test_table" || got.Split != SplitCVC || got.Id == 0 {
		t.Errorf("got unexpected table info: %+v", got)
	}
	if splitter, err := got.Splitter(); err != nil || splitter.Name() != SplitCVC {
		t.Errorf("Splitter() = %v, %v; want the cvc splitter", splitter, err)
	}

	// Test failure case (nonexistent)
	_, err = s.GetTableInfo(ctx, "nonexistent_table")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows for nonexistent table, got %v", err)
	}

	// Test failure case (duplicate name)
	if err = s.InsertTable(ctx, info); err == nil {
		t.Errorf("expected an error when inserting a table with a duplicate name, but got nil")
	}

	// Test failure case (unknown split)
	err = s.InsertTable(ctx, TableInfo{Name: "bad_split", Split: "syllables"})
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for an unknown split, got %v", err)
	}
	if _, err = s.GetTableInfo(ctx, "bad_split"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("table with an unknown split should not be stored, got %v", err)
	}
}

func TestGetTableInfos(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	_ = s.InsertTable(ctx, TableInfo{Name: "test_table", Split: SplitSingleLetter})
	_ = s.InsertTable(ctx, TableInfo{Name: "another_table", Split: SplitTwoLetter})

	tables, err := s.GetTableInfos(ctx)
	if err != nil {
		t.Fatalf("GetTableInfos failed: %v", err)
	}
	if len(tables) != 2 {
		t.Errorf("expected 2 tables, got %d", len(tables))
	}
	if _, ok := tables["test_table"]; !ok {
		t.Error("expected to find 'test_table'")
	}
	if tables["another_table"].Split != SplitTwoLetter {
		t.Errorf("expected 'another_table' to use %q, got %+v", SplitTwoLetter, tables["another_table"])
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx, s, info := setupTestDBWithTable(t)

	loaded, err := s.LoadTable(ctx, info)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	want := learnWords(t, SingleLetter{}, "cat", "car", "cart")
	for _, state := range want.Sources() {
		if got := loaded.Links(state); !reflect.DeepEqual(got, want.Links(state)) {
			t.Errorf("Links(%q) = %v, want %v", state, got, want.Links(state))
		}
	}
	if loaded.Stats() != want.Stats() {
		t.Errorf("Stats() = %+v, want %+v", loaded.Stats(), want.Stats())
	}
	assertTotals(t, loaded)

	// Saving again replaces rather than merges.
	loaded.NormalizeLinks(false)
	if err := s.SaveTable(ctx, info, loaded); err != nil {
		t.Fatalf("SaveTable failed: %v", err)
	}
	_, reloaded, err := s.LoadTableByName(ctx, info.Name)
	if err != nil {
		t.Fatalf("LoadTableByName failed: %v", err)
	}
	if got := reloaded.Weight("c", "a"); got != 1 {
		t.Errorf("Weight(c, a) = %d after normalized save, want 1", got)
	}
	if got := reloaded.Total(Blank); got != 1 {
		t.Errorf("Total(blank) = %d after normalized save, want 1", got)
	}
}

func TestLoadTableByNameMissing(t *testing.T) {
	_, s := setupTestDB(t)
	_, _, err := s.LoadTableByName(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestRemoveTable(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()

	t1 := TableInfo{Name: "to_delete", Split: SplitSingleLetter}
	t2 := TableInfo{Name: "to_keep", Split: SplitSingleLetter}
	_ = s.InsertTable(ctx, t1)
	_ = s.InsertTable(ctx, t2)
	t1, _ = s.GetTableInfo(ctx, t1.Name)
	t2, _ = s.GetTableInfo(ctx, t2.Name)
	_ = s.SaveTable(ctx, t1, learnWords(t, SingleLetter{}, "delete"))
	_ = s.SaveTable(ctx, t2, learnWords(t, SingleLetter{}, "keep"))

	if err := s.RemoveTable(ctx, t1); err != nil {
		t.Fatalf("RemoveTable failed: %v", err)
	}

	// Verify table t1 is gone
	_, err := s.GetTableInfo(ctx, t1.Name)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows for deleted table, got %v", err)
	}

	// Verify links for t1 are gone
	var count int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markov_links WHERE table_id = ?", t1.Id).Scan(&count)
	if count != 0 {
		t.Errorf("expected 0 links for deleted table, found %d", count)
	}

	// Verify table t2 and its links still exist
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM markov_links WHERE table_id = ?", t2.Id).Scan(&count)
	if count != 5 {
		t.Errorf("expected 5 links for kept table, found %d", count)
	}
}

func TestStoreGetStats(t *testing.T) {
	ctx, s, info := setupTestDBWithTable(t)
	_ = s.InsertTable(ctx, TableInfo{Name: "empty_table", Split: SplitThreeLetter})

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if len(stats.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(stats.Tables))
	}
	if stats.Tables[0].Name != "empty_table" || stats.Tables[1].Name != "test_table" {
		t.Errorf("expected tables sorted by name, got %+v", stats.Tables)
	}

	want := learnWords(t, SingleLetter{}, "cat", "car", "cart").Stats()
	if got := stats.Stats[info.Id]; got != want {
		t.Errorf("stats for %q = %+v, want %+v", info.Name, got, want)
	}
	if stats.Links != want.Links {
		t.Errorf("expected %d stored links, got %d", want.Links, stats.Links)
	}
}

func TestSetupSchemaIdempotent(t *testing.T) {
	db, _ := setupTestDB(t)
	if err := SetupSchema(db); err != nil {
		t.Errorf("second SetupSchema failed: %v", err)
	}
}

func BenchmarkSaveTable(b *testing.B) {
	corpus := createBenchmarkCorpus()
	ctx := context.Background()

	for _, name := range []string{SplitSingleLetter, SplitThreeLetter} {
		b.Run(fmt.Sprintf("Split_%s", name), func(b *testing.B) {
			_, s := setupTestDBBench(b)
			info := TableInfo{Name: "bench_save", Split: name}
			if err := s.InsertTable(ctx, info); err != nil {
				b.Fatalf("InsertTable failed: %v", err)
			}
			info, _ = s.GetTableInfo(ctx, info.Name)
			splitter, _ := info.Splitter()
			table := NewTable()
			if _, err := table.LearnFrom(ctx, strings.NewReader(corpus), splitter); err != nil {
				b.Fatalf("LearnFrom() setup failed: %v", err)
			}

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if err := s.SaveTable(ctx, info, table); err != nil {
					b.Fatalf("SaveTable() failed: %v", err)
				}
			}
		})
	}
}

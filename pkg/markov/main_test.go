package markov

import (
	"context"
	"database/sql"
	"go/build"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates a new SQLite database and a Store for testing.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Store) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=-4000")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// setupTestDBWithTable is a convenience helper that also stores a trained table.
func setupTestDBWithTable(t *testing.T) (context.Context, *Store, TableInfo) {
	_, s := setupTestDB(t)
	ctx := context.Background()
	info := TableInfo{Name: "test_table", Split: SplitSingleLetter}

	if err := s.InsertTable(ctx, info); err != nil {
		t.Fatalf("setup: InsertTable() failed: %v", err)
	}
	info, err := s.GetTableInfo(ctx, info.Name)
	if err != nil {
		t.Fatalf("setup: GetTableInfo() failed: %v", err)
	}
	table := learnWords(t, SingleLetter{}, "cat", "car", "cart")
	if err := s.SaveTable(ctx, info, table); err != nil {
		t.Fatalf("setup: SaveTable() failed: %v", err)
	}
	return ctx, s, info
}

// learnWords returns a new table that has learned words with s.
func learnWords(tb testing.TB, s Splitter, words ...string) *Table {
	tb.Helper()
	table := NewTable()
	for _, w := range words {
		if err := table.Learn(w, s); err != nil {
			tb.Fatalf("Learn(%q) failed: %v", w, err)
		}
	}
	return table
}

// assertTotals fails the test if any source total differs from the sum of its links.
func assertTotals(t *testing.T, table *Table) {
	t.Helper()
	for _, state := range table.Sources() {
		sum := 0
		for _, w := range table.Links(state) {
			sum += w
		}
		if got := table.Total(state); got != sum {
			t.Errorf("Total(%q) = %d, sum of links = %d", state, got, sum)
		}
	}
}

// fixedSource always returns the same offset into the requested range,
// clamped to the range.
type fixedSource struct {
	offset int
}

func (f fixedSource) IntN(n int) int {
	return min(f.offset, n-1)
}

// lastSource always returns the largest value of the requested range.
type lastSource struct{}

func (lastSource) IntN(n int) int { return n - 1 }

// setupTestDBBench creates a database for benchmarking.
func setupTestDBBench(b *testing.B) (*sql.DB, *Store) {
	dbFile := filepath.Join(b.TempDir(), "bench.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=OFF&_cache_size=-16000&_mmap_size=268435456")
	if err != nil {
		b.Fatalf("failed to open database: %v", err)
	}
	b.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		b.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		b.Fatalf("NewStore() error = %v", err)
	}
	b.Cleanup(s.Close)

	return db, s
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files and keeps their alphabetic
// identifiers, one lowercase word per line.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}
		words := regexp.MustCompile(`[A-Za-z]{3,}`)

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this\nis\na\nfallback\ncorpus\nfor\nbenchmarking\n"
				return
			}
			for _, w := range words.FindAllString(string(content), -1) {
				sb.WriteString(strings.ToLower(w))
				sb.WriteString("\n")
			}
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}

package markov

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// TableInfo holds the metadata of a stored table: its unique ID, its name, and
// the identifier of the splitter its words are learned with.
type TableInfo struct {
	Id    int    `json:"id"`
	Name  string `json:"name"`
	Split string `json:"split"`
}

// Splitter returns the splitter named by info.Split.
func (info TableInfo) Splitter() (Splitter, error) {
	return ParseSplitter(info.Split)
}

// SetupSchema initializes the tables a Store needs in the provided database.
// It is idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaTables = `
CREATE TABLE IF NOT EXISTS markov_tables (
    table_id INTEGER PRIMARY KEY,
    table_name TEXT NOT NULL UNIQUE,
    split_mode TEXT NOT NULL
);
`
		schemaLinks = `
CREATE TABLE IF NOT EXISTS markov_links (
    table_id INTEGER NOT NULL,
    source_state TEXT NOT NULL,
    next_state TEXT NOT NULL,
    frequency INTEGER NOT NULL CHECK (frequency > 0),
    PRIMARY KEY (table_id, source_state, next_state)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaTables); err != nil {
		return fmt.Errorf("could not create tables schema: %w", err)
	}

	if _, err = tx.Exec(schemaLinks); err != nil {
		return fmt.Errorf("could not create links schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store persists named tables in a SQLite database. It holds the database
// connection and prepared statements for the common queries.
type Store struct {
	db               *sql.DB
	stmtGetTableInfo *sql.Stmt
	stmtGetTables    *sql.Stmt
	stmtAddTable     *sql.Stmt
	stmtGetLinks     *sql.Stmt
	stmtCountLinks   *sql.Stmt
	logger           *slog.Logger
}

// NewStore creates a Store for db, which must already have the schema from
// SetupSchema. It returns an error if any statement fails to prepare.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetTableInfo, err := db.Prepare(`SELECT table_id, split_mode FROM markov_tables WHERE table_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetTables, err := db.Prepare(`SELECT table_id, table_name, split_mode FROM markov_tables;`)
	if err != nil {
		return nil, err
	}

	stmtAddTable, err := db.Prepare(`INSERT INTO markov_tables (table_name, split_mode) VALUES (?, ?);`)
	if err != nil {
		return nil, err
	}

	stmtGetLinks, err := db.Prepare(`SELECT source_state, next_state, frequency FROM markov_links WHERE table_id = ?;`)
	if err != nil {
		return nil, err
	}

	stmtCountLinks, err := db.Prepare(`SELECT COUNT(*) FROM markov_links;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:               db,
		stmtGetTableInfo: stmtGetTableInfo,
		stmtGetTables:    stmtGetTables,
		stmtAddTable:     stmtAddTable,
		stmtGetLinks:     stmtGetLinks,
		stmtCountLinks:   stmtCountLinks,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared statements held by the Store. The database
// itself is owned by the caller and stays open.
func (s *Store) Close() {
	_ = s.stmtGetTableInfo.Close()
	_ = s.stmtGetTables.Close()
	_ = s.stmtAddTable.Close()
	_ = s.stmtGetLinks.Close()
	_ = s.stmtCountLinks.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetTableInfos retrieves metadata for all stored tables, keyed by name.
func (s *Store) GetTableInfos(ctx context.Context) (map[string]TableInfo, error) {
	rows, err := s.stmtGetTables.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	tables := make(map[string]TableInfo)
	for rows.Next() {
		var info TableInfo
		if err = rows.Scan(&info.Id, &info.Name, &info.Split); err != nil {
			return nil, err
		}
		tables[info.Name] = info
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// GetTableInfo retrieves the metadata of the table called name. It returns
// sql.ErrNoRows if there is no such table.
func (s *Store) GetTableInfo(ctx context.Context, name string) (TableInfo, error) {
	info := TableInfo{Name: name}
	err := s.stmtGetTableInfo.QueryRowContext(ctx, name).Scan(&info.Id, &info.Split)
	if err != nil {
		return TableInfo{}, err
	}
	return info, nil
}

// InsertTable creates a new, empty table entry. The split identifier is
// validated before anything is written.
func (s *Store) InsertTable(ctx context.Context, info TableInfo) error {
	if _, err := ParseSplitter(info.Split); err != nil {
		return err
	}
	_, err := s.stmtAddTable.ExecContext(ctx, info.Name, info.Split)
	return err
}

// RemoveTable deletes a table and all of its links. The operation is
// performed within a transaction.
func (s *Store) RemoveTable(ctx context.Context, info TableInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_links WHERE table_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove links for table %d: %w", info.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_tables WHERE table_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to remove table %d: %w", info.Id, err)
	}

	s.logger.InfoContext(ctx, "Table removed successfully",
		slog.String("table_name", info.Name),
		slog.Int("table_id", info.Id),
	)

	return tx.Commit()
}

// SaveTable replaces the stored links of info with the links of table. The
// entire operation is performed within a single transaction.
func (s *Store) SaveTable(ctx context.Context, info TableInfo, table *Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for save: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM markov_links WHERE table_id = ?", info.Id); err != nil {
		return fmt.Errorf("failed to clear links for table %d: %w", info.Id, err)
	}

	stmtInsertLink, err := tx.PrepareContext(ctx, `INSERT INTO markov_links (table_id, source_state, next_state, frequency) VALUES (?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare link insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertLink)

	var linkCount int
	for _, from := range table.Sources() {
		next := table.links[from]
		for _, to := range table.Destinations(from) {
			if _, err = stmtInsertLink.ExecContext(ctx, info.Id, from, to, next[to]); err != nil {
				return fmt.Errorf("failed to insert link (%q -> %q): %w", from, to, err)
			}
			linkCount++
		}
	}

	s.logger.InfoContext(ctx, "Table saved",
		slog.String("table_name", info.Name),
		slog.Int("table_id", info.Id),
		slog.Int("links_saved", linkCount),
	)

	return tx.Commit()
}

// LoadTable reads the stored links of info into a new Table. Headers and
// totals are rebuilt the same way as for snapshots.
func (s *Store) LoadTable(ctx context.Context, info TableInfo) (*Table, error) {
	rows, err := s.stmtGetLinks.QueryContext(ctx, info.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query links for table %d: %w", info.Id, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	links := make(map[string]map[string]int)
	for rows.Next() {
		var from, to string
		var freq int
		if err = rows.Scan(&from, &to, &freq); err != nil {
			return nil, err
		}
		next, ok := links[from]
		if !ok {
			next = make(map[string]int)
			links[from] = next
		}
		next[to] = freq
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	table := NewTable()
	table.SetLogger(s.logger)
	table.replace(links)
	return table, nil
}

// LoadTableByName is a convenience wrapper that looks up a table by name and
// loads it. It returns sql.ErrNoRows if there is no such table.
func (s *Store) LoadTableByName(ctx context.Context, name string) (TableInfo, *Table, error) {
	info, err := s.GetTableInfo(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TableInfo{}, nil, err
		}
		return TableInfo{}, nil, fmt.Errorf("could not get table %q: %w", name, err)
	}
	table, err := s.LoadTable(ctx, info)
	if err != nil {
		return TableInfo{}, nil, err
	}
	return info, table, nil
}

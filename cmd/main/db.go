package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/CTAG07/wordforge/pkg/markov"
)

// initDB opens the table database with the driver selected at build time and
// makes sure the schema exists.
func initDB(dataSource string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("could not open %s database: %w", driverName, err)
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("could not reach database: %w", err)
	}
	// Both drivers spell DSN pragmas differently, so they are applied here.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"} {
		if _, err = db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("could not apply %q: %w", pragma, err)
		}
	}

	if err = markov.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to setup markov schema: %w", err)
	}
	return db, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"smart-audio/internal/app/repository"
	"smart-audio/internal/app/util/files"
)

// DSN builds the SQLite connection string for a database file
func DSN(dbPath string) string {
	return fmt.Sprintf("file:%s?cache=shared&mode=rwc&_busy_timeout=5000", dbPath)
}

// NewRecordStore opens (creating if needed) a SQLite backed record store
func NewRecordStore(ctx context.Context, dbPath string) (*repository.CommonDB, error) {
	if err := files.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection keeps version checks serialised.
	db.SetMaxOpenConns(1)

	store := repository.NewCommonDB(db, "sqlite3")
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

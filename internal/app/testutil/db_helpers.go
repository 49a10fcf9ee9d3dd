package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"smart-audio/internal/app/model"
	"smart-audio/internal/app/repository"
	"smart-audio/internal/app/repository/jsonstore"
	"smart-audio/internal/app/repository/pg"
	"smart-audio/internal/app/repository/sqlite"
)

// StoreKind names a record store backend used in tests
type StoreKind string

const (
	JSONStore     StoreKind = "json"
	SQLiteStore   StoreKind = "sqlite"
	PostgresStore StoreKind = "postgres"
)

// StoreKinds returns the backends available in this environment.
// Postgres is included when POSTGRES_TEST_URL is set.
func StoreKinds() []StoreKind {
	kinds := []StoreKind{JSONStore, SQLiteStore}
	if os.Getenv("POSTGRES_TEST_URL") != "" {
		kinds = append(kinds, PostgresStore)
	}
	return kinds
}

// SetupRecordStore opens an empty record store of the given kind and closes
// it when the test ends
func SetupRecordStore(t *testing.T, kind StoreKind) repository.RecordStore {
	t.Helper()
	ctx := context.Background()

	var (
		store repository.RecordStore
		err   error
	)
	switch kind {
	case JSONStore:
		store, err = jsonstore.New(filepath.Join(t.TempDir(), "files.json"), true)
	case SQLiteStore:
		store, err = sqlite.NewRecordStore(ctx, filepath.Join(t.TempDir(), "records.db"))
	case PostgresStore:
		store, err = pg.NewRecordStore(ctx, os.Getenv("POSTGRES_TEST_URL"))
		if err == nil {
			require.NoError(t, store.Save(ctx, nil))
		}
	default:
		t.Fatalf("unknown store kind %q", kind)
	}
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })
	return store
}

// SeedRecords creates every record in store
func SeedRecords(t *testing.T, store repository.RecordStore, records ...model.JobRecord) {
	t.Helper()
	for _, rec := range records {
		_, err := store.Create(context.Background(), rec)
		require.NoError(t, err)
	}
}

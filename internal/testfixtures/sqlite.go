package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/meeting-rooms/internal/persistence/sqlstore"
)

// NewSQLiteStore opens a migrated SQLite database in a temporary directory.
func NewSQLiteStore(tb testing.TB) *sqlstore.Store {
	tb.Helper()

	dsn := "file:" + filepath.Join(tb.TempDir(), "rooms.db")
	store, err := sqlstore.Open(context.Background(), sqlstore.Config{
		Driver:       sqlstore.DriverSQLite,
		DSN:          dsn,
		MaxOpenConns: 1,
	}, nil)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = store.Close() })

	_, err = store.Migrate()
	require.NoError(tb, err)
	return store
}

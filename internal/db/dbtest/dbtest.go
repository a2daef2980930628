// Package dbtest opens throwaway SQLite databases with all migrations applied.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/templui/fileshare/internal/db"
)

// New returns a migrated SQLite database living in the test's temp dir.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	database, err := db.Init("sqlite", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })

	err = db.RunMigrations(context.Background(), database.DB, "sqlite")
	require.NoError(t, err)

	return database
}

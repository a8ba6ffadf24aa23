// Package testutil opens migrated SQLite databases for integration tests
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/garyjia/tpa-claims/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/tpa-claims/migrations"
	"github.com/garyjia/tpa-claims/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// NewSQLiteDB creates a file-backed database under t.TempDir with the full
// schema applied. The connection is closed when the test ends.
func NewSQLiteDB(t testing.TB) *sqlite.DB {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "claims.db"),
		MaxOpenConns: 4,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).RunMigrations(context.Background(), migrations.FS)
	require.NoError(t, err)

	return sqlite.NewDB(db.DB, logger)
}

package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "test.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestLoadMigrations_SortedByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"010_add_index.sql":      {Data: []byte("CREATE INDEX i ON t(a);")},
		"002_second.sql":         {Data: []byte("CREATE TABLE u (id INTEGER);")},
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE t (a INTEGER);")},
		"README.md":              {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 3)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "initial_schema", migrations[0].Name)
	assert.Len(t, migrations[0].Checksum, 64)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, 10, migrations[2].Version)
	assert.Equal(t, "add_index", migrations[2].Name)
}

func TestLoadMigrations_InvalidFilename(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{
		"initial.sql": {Data: []byte("SELECT 1;")},
	})
	assert.Error(t, err)
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"1_b.sql":   {Data: []byte("SELECT 2;")},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share version 1")
}

func TestMigrator_RunMigrationsIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"001_create.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT);")},
		"002_seed.sql":   {Data: []byte("INSERT INTO widgets (name) VALUES ('a'), ('b');")},
	}

	m := NewMigrator(db, zap.NewNop())
	applied, err := m.RunMigrations(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	applied, err = m.RunMigrations(ctx, fsys)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM widgets").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestMigrator_Pending(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := NewMigrator(db, nil)

	first := fstest.MapFS{
		"001_create.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
	}
	_, err := m.RunMigrations(ctx, first)
	require.NoError(t, err)

	second := fstest.MapFS{
		"001_create.sql": first["001_create.sql"],
		"002_index.sql":  {Data: []byte("CREATE INDEX idx_widgets ON widgets(id);")},
	}
	pending, err := m.Pending(ctx, second)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}

func TestMigrator_DetectsEditedMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	m := NewMigrator(db, nil)

	_, err := m.RunMigrations(ctx, fstest.MapFS{
		"001_create.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
	})
	require.NoError(t, err)

	_, err = m.RunMigrations(ctx, fstest.MapFS{
		"001_create.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT);")},
	})
	assert.ErrorIs(t, err, ErrMigrationChanged)
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)

	fsys := fstest.MapFS{
		"001_broken.sql": {Data: []byte("CREATE TABLE ok (id INTEGER); NOT VALID SQL;")},
	}

	applied, err := NewMigrator(db, nil).RunMigrations(context.Background(), fsys)
	require.Error(t, err)
	assert.Equal(t, 0, applied)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 0, count)
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	dsn := DSN("/tmp/claims.db", 0)
	assert.Contains(t, dsn, "file:/tmp/claims.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_busy_timeout=5000")

	assert.Contains(t, DSN("/tmp/claims.db", 250*time.Millisecond), "_busy_timeout=250")
}

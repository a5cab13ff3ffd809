package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRaw(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func versions(t *testing.T, db *sql.DB) []int {
	t.Helper()
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	require.NoError(t, err)
	defer rows.Close()
	var out []int
	for rows.Next() {
		var v int
		require.NoError(t, rows.Scan(&v))
		out = append(out, v)
	}
	return out
}

func TestMigrate_AppliesInOrderOnce(t *testing.T) {
	db := openRaw(t)
	fsys := fstest.MapFS{
		"002_notes.up.sql":    {Data: []byte("ALTER TABLE things ADD COLUMN note TEXT;")},
		"001_things.up.sql":   {Data: []byte("CREATE TABLE things (id INTEGER);")},
		"001_things.down.sql": {Data: []byte("DROP TABLE things;")},
	}

	require.NoError(t, migrate(context.Background(), db, fsys))
	assert.Equal(t, []int{1, 2}, versions(t, db))

	// A second run finds nothing pending; re-running ALTER would fail.
	require.NoError(t, migrate(context.Background(), db, fsys))
	assert.Equal(t, []int{1, 2}, versions(t, db))
}

func TestMigrate_FailedMigrationLeavesNoTrace(t *testing.T) {
	db := openRaw(t)
	fsys := fstest.MapFS{
		"001_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id INTEGER);")},
		"002_broken.up.sql": {Data: []byte("CREATE TABLE half (id INTEGER); NOT SQL;")},
	}

	err := migrate(context.Background(), db, fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_broken.up.sql")
	assert.Equal(t, []int{1}, versions(t, db))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE name = 'half'").Scan(&n))
	assert.Zero(t, n)
}

func TestMigrate_RejectsNewerSchema(t *testing.T) {
	db := openRaw(t)
	fsys := fstest.MapFS{"001_a.up.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")}}
	require.NoError(t, migrate(context.Background(), db, fsys))
	_, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (7)")
	require.NoError(t, err)

	err = migrate(context.Background(), db, fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer")
}

func TestListMigrations_BadNames(t *testing.T) {
	_, err := listMigrations(fstest.MapFS{"initial.up.sql": {}})
	assert.Error(t, err)

	_, err = listMigrations(fstest.MapFS{"001_a.up.sql": {}, "01_b.up.sql": {}})
	assert.ErrorContains(t, err, "share version 1")
}

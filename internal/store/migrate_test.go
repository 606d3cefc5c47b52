package store

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"m/0002_add_notes.sql": {Data: []byte(`CREATE TABLE notes (id TEXT PRIMARY KEY)`)},
		"m/0001_init.sql":      {Data: []byte(`CREATE TABLE items (id TEXT PRIMARY KEY)`)},
		"m/README.md":          {Data: []byte("ignored")},
	}
}

func TestMigrator_ParseMigrations_Sorted(t *testing.T) {
	migs, err := NewMigrator(testMigrations(), "m").ParseMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "init", migs[0].Name)
	assert.Equal(t, 2, migs[1].Version)
}

func TestMigrator_Run_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	m := NewMigrator(testMigrations(), "m")
	ctx := context.Background()

	res, err := m.Run(ctx, db, "sqlite")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, res.Applied)
	assert.Empty(t, res.Skipped)

	res, err = m.Run(ctx, db, "sqlite")
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Equal(t, []int{1, 2}, res.Skipped)
}

func TestMigrator_Run_Failure(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	fsys := fstest.MapFS{"m/0001_bad.sql": {Data: []byte(`CREATE TABLE`)}}
	res, err := NewMigrator(fsys, "m").Run(context.Background(), db, "sqlite")
	require.Error(t, err)
	require.NotNil(t, res.Failed)
	assert.Equal(t, 1, *res.Failed)
}

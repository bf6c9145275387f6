package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CreatesDirectoryAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")

	db, err := New(Config{Path: path, Name: "runs"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	assert.Equal(t, "runs", db.Name())
	require.NoError(t, db.QuickCheck(context.Background()))

	err = db.Migrate(context.Background(), `CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)

	// Idempotent
	err = db.Migrate(context.Background(), `CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)

	_, err = db.Conn().Exec(`INSERT INTO t (id) VALUES (1)`)
	require.NoError(t, err)
}

func TestMigrate_InvalidSchema(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "bad.db"), Name: "bad"})
	require.NoError(t, err)
	defer db.Close()

	err = db.Migrate(context.Background(), `CREATE TABLOID nope`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestBuildConnectionString(t *testing.T) {
	standard := buildConnectionString("/tmp/x.db", ProfileStandard)
	assert.Contains(t, standard, "/tmp/x.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, standard, "synchronous(NORMAL)")

	cache := buildConnectionString("file:mem?mode=memory", ProfileCache)
	assert.Contains(t, cache, "file:mem?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, cache, "synchronous(OFF)")
}

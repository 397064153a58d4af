package catalog

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRawMain(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(schemaMainSQL)
	require.NoError(t, err)
	return db
}

func TestRunMigrationsAppliesKnownMigrations(t *testing.T) {
	db := openRawMain(t)
	require.NoError(t, runMigrations(db, nil))

	applied, latest, err := appliedMigrations(db)
	require.NoError(t, err)
	assert.True(t, applied["0001_installed_files_is_binary_index"])
	assert.Equal(t, "0001_installed_files_is_binary_index", latest)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := openRawMain(t)
	require.NoError(t, runMigrations(db, nil))
	require.NoError(t, runMigrations(db, nil))
}

func TestRunMigrationsRejectsNewerUnknownMigration(t *testing.T) {
	db := openRawMain(t)
	require.NoError(t, runMigrations(db, nil))

	_, err := db.Exec(
		`INSERT INTO migration_status (name, state, apply_time) VALUES (?, 'applied', 0)`,
		"9999_from_a_future_version",
	)
	require.NoError(t, err)

	err = runMigrations(db, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "upgrade hasp")
}

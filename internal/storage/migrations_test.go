package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/xu-rsd-gen/internal/errors"
)

func openTestSQL(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", filepath.Join(t.TempDir(), "migrations.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()

	var count int

	err := db.QueryRow(
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?", name,
	).Scan(&count)
	require.NoError(t, err)

	return count > 0
}

func TestMigrateUp(t *testing.T) {
	db := openTestSQL(t)
	ctx := context.Background()
	manager := NewMigrationManager(db)

	version, err := manager.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, manager.MigrateUp(ctx))
	assert.True(t, tableExists(t, db, "generations"))

	var columnCount int

	err = db.QueryRow(`
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_name = 'generations' AND column_name IN ('run_id', 'sliding_column', 'column_count')
	`).Scan(&columnCount)
	require.NoError(t, err)
	assert.Equal(t, 3, columnCount)

	applied, err := manager.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)

	// Idempotent
	require.NoError(t, manager.MigrateUp(ctx))

	applied, err = manager.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 1)
}

func TestMigrateDown(t *testing.T) {
	db := openTestSQL(t)
	ctx := context.Background()
	manager := NewMigrationManager(db)

	require.NoError(t, manager.MigrateUp(ctx))
	require.NoError(t, manager.MigrateDown(ctx, 0))

	assert.False(t, tableExists(t, db, "generations"))

	version, err := manager.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)

	// And back up again
	require.NoError(t, manager.MigrateUp(ctx))
	assert.True(t, tableExists(t, db, "generations"))
}

func TestGetMigrations_Ordered(t *testing.T) {
	migrations := NewMigrationManager(nil).GetMigrations()
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.Description)
		assert.NotEmpty(t, m.Up)
		assert.NotEmpty(t, m.Down)
	}
}

func TestApplyMigration_FailureIsNotRecorded(t *testing.T) {
	db := openTestSQL(t)
	ctx := context.Background()
	manager := NewMigrationManager(db)

	require.NoError(t, manager.InitializeMigrationTable(ctx))

	err := manager.ApplyMigration(ctx, Migration{
		Version:     99,
		Description: "broken",
		Up:          "CREATE TABLE (",
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDatabase))
	assert.Contains(t, err.Error(), "migration 99 (broken) failed")

	applied, err := manager.GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

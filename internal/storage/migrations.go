package storage

import (
	"context"
	"database/sql"
	"sort"

	"github.com/kyleking/xu-rsd-gen/internal/errors"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// MigrationManager handles database schema migrations
type MigrationManager struct {
	db *sql.DB
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

// GetMigrations returns all available migrations in order
func (m *MigrationManager) GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Generation history",
			Up: `
				CREATE TABLE IF NOT EXISTS generations (
					id VARCHAR PRIMARY KEY,
					run_id VARCHAR NOT NULL,
					extraction VARCHAR NOT NULL,
					extraction_type VARCHAR,
					source VARCHAR,
					path VARCHAR NOT NULL,
					url VARCHAR NOT NULL,
					sliding_column VARCHAR DEFAULT '',
					column_count INTEGER,
					generated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_generations_run_id ON generations(run_id);
				CREATE INDEX IF NOT EXISTS idx_generations_extraction ON generations(extraction);
				CREATE INDEX IF NOT EXISTS idx_generations_generated_at ON generations(generated_at);
			`,
			Down: `
				DROP INDEX IF EXISTS idx_generations_generated_at;
				DROP INDEX IF EXISTS idx_generations_extraction;
				DROP INDEX IF EXISTS idx_generations_run_id;
				DROP TABLE IF EXISTS generations;
			`,
		},
	}
}

// InitializeMigrationTable creates the migration tracking table
func (m *MigrationManager) InitializeMigrationTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description VARCHAR NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to create migration table")
	}

	return nil
}

// GetAppliedMigrations returns the applied versions in ascending order
func (m *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query applied migrations")
	}
	defer rows.Close()

	var versions []int

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan migration version")
		}

		versions = append(versions, version)
	}

	return versions, rows.Err()
}

// ApplyMigration runs the Up script and records the version in one transaction
func (m *MigrationManager) ApplyMigration(ctx context.Context, migration Migration) error {
	return m.inTx(ctx, migration, migration.Up,
		"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
		migration.Version, migration.Description)
}

// RollbackMigration runs the Down script and forgets the version in one transaction
func (m *MigrationManager) RollbackMigration(ctx context.Context, migration Migration) error {
	return m.inTx(ctx, migration, migration.Down,
		"DELETE FROM schema_migrations WHERE version = ?", migration.Version)
}

func (m *MigrationManager) inTx(ctx context.Context, migration Migration, script, bookkeeping string, args ...any) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "migration %d (%s) failed", migration.Version, migration.Description)
	}

	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to update schema_migrations for version %d", migration.Version)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to commit migration %d", migration.Version)
	}

	return nil
}

// MigrateUp applies all pending migrations
func (m *MigrationManager) MigrateUp(ctx context.Context) error {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.appliedSet(ctx)
	if err != nil {
		return err
	}

	migrations := m.GetMigrations()
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		logging.WithField("version", migration.Version).Debugf("applying migration: %s", migration.Description)

		if err := m.ApplyMigration(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}

// MigrateDown rolls back migrations newer than targetVersion
func (m *MigrationManager) MigrateDown(ctx context.Context, targetVersion int) error {
	appliedVersions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	byVersion := make(map[int]Migration)
	for _, migration := range m.GetMigrations() {
		byVersion[migration.Version] = migration
	}

	sort.Sort(sort.Reverse(sort.IntSlice(appliedVersions)))

	for _, version := range appliedVersions {
		if version <= targetVersion {
			break
		}

		migration, ok := byVersion[version]
		if !ok {
			return errors.Newf(errors.ErrTypeDatabase, "database is at unknown migration %d", version)
		}

		logging.WithField("version", version).Debugf("rolling back migration: %s", migration.Description)

		if err := m.RollbackMigration(ctx, migration); err != nil {
			return err
		}
	}

	return nil
}

// CurrentVersion returns the highest applied migration, zero when none
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	if err := m.InitializeMigrationTable(ctx); err != nil {
		return 0, err
	}

	versions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return 0, err
	}

	if len(versions) == 0 {
		return 0, nil
	}

	return versions[len(versions)-1], nil
}

func (m *MigrationManager) appliedSet(ctx context.Context) (map[int]bool, error) {
	versions, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	return applied, nil
}

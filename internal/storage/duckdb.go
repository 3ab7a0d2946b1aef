package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb" // DuckDB driver

	"github.com/kyleking/xu-rsd-gen/internal/errors"
)

const defaultQueryTimeout = 30 * time.Second

// DuckDBRepository implements the Repository interface using DuckDB
type DuckDBRepository struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
}

// NewDuckDBRepository creates a new DuckDB repository with the default query timeout
func NewDuckDBRepository(dbPath string) (*DuckDBRepository, error) {
	return NewDuckDBRepositoryWithTimeout(dbPath, defaultQueryTimeout)
}

// NewDuckDBRepositoryWithTimeout creates a new DuckDB repository whose
// queries are bounded by queryTimeout
func NewDuckDBRepositoryWithTimeout(dbPath string, queryTimeout time.Duration) (*DuckDBRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to create database directory")
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to ping database")
	}

	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}

	return &DuckDBRepository{
		db:           db,
		path:         dbPath,
		queryTimeout: queryTimeout,
	}, nil
}

func (r *DuckDBRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.queryTimeout)
}

// Initialize creates the database schema using migrations
func (r *DuckDBRepository) Initialize(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return NewMigrationManager(r.db).MigrateUp(ctx)
}

// RecordGeneration stores one generated file. ID and GeneratedAt are filled
// in when empty.
func (r *DuckDBRepository) RecordGeneration(ctx context.Context, record GenerationRecord) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	if record.GeneratedAt.IsZero() {
		record.GeneratedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
	INSERT INTO generations (
		id, run_id, extraction, extraction_type, source, path, url,
		sliding_column, column_count, generated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.RunID,
		record.Extraction,
		record.ExtractionType,
		record.Source,
		record.Path,
		record.URL,
		record.SlidingColumn,
		record.ColumnCount,
		record.GeneratedAt,
	)
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeDatabase, "failed to record generation of %s", record.Path)
	}

	return nil
}

// ListGenerations returns the most recent generated files first
func (r *DuckDBRepository) ListGenerations(ctx context.Context, limit int) ([]GenerationRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
	SELECT id, run_id, extraction, extraction_type, source, path, url,
		   COALESCE(sliding_column, '') AS sliding_column, column_count, generated_at
	FROM generations
	ORDER BY generated_at DESC, path
	LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query generations")
	}
	defer rows.Close()

	var records []GenerationRecord

	for rows.Next() {
		var rec GenerationRecord

		if err := rows.Scan(
			&rec.ID, &rec.RunID, &rec.Extraction, &rec.ExtractionType, &rec.Source,
			&rec.Path, &rec.URL, &rec.SlidingColumn, &rec.ColumnCount, &rec.GeneratedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan generation")
		}

		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListRuns returns one summary per run, most recent first
func (r *DuckDBRepository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
	SELECT run_id, COUNT(*), COUNT(DISTINCT extraction), MIN(generated_at), MAX(generated_at)
	FROM generations
	GROUP BY run_id
	ORDER BY MAX(generated_at) DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to query runs")
	}
	defer rows.Close()

	var runs []RunSummary

	for rows.Next() {
		var run RunSummary

		if err := rows.Scan(&run.RunID, &run.Files, &run.Extractions, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan run")
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetStats returns database statistics
func (r *DuckDBRepository) GetStats(ctx context.Context) (*Stats, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	stats := &Stats{
		ExtractionBreakdown: make(map[string]int),
	}

	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*),
		   COUNT(*) FILTER (WHERE sliding_column <> ''),
		   COUNT(DISTINCT extraction),
		   COUNT(DISTINCT run_id)
	FROM generations`).Scan(&stats.TotalFiles, &stats.SlidingFiles, &stats.TotalExtractions, &stats.TotalRuns)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get generation counts")
	}

	var lastGeneration *time.Time

	err = r.db.QueryRowContext(ctx, "SELECT MAX(generated_at) FROM generations").Scan(&lastGeneration)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get last generation time")
	}

	if lastGeneration != nil {
		stats.LastGeneration = *lastGeneration
	}

	if info, err := os.Stat(r.path); err == nil {
		stats.DatabaseSizeMB = float64(info.Size()) / (1024 * 1024)
	}

	rows, err := r.db.QueryContext(ctx, "SELECT extraction, COUNT(*) FROM generations GROUP BY extraction")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to get extraction breakdown")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			extraction string
			count      int
		)

		if err := rows.Scan(&extraction, &count); err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to scan extraction breakdown")
		}

		stats.ExtractionBreakdown[extraction] = count
	}

	return stats, rows.Err()
}

// Clear deletes all history
func (r *DuckDBRepository) Clear(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM generations"); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to clear generations")
	}

	return nil
}

// Close closes the database connection
func (r *DuckDBRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}

	return nil
}

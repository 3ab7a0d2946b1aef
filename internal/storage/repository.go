package storage

import (
	"context"
	"time"
)

// Repository defines the interface for generation history operations
type Repository interface {
	Initialize(ctx context.Context) error
	RecordGeneration(ctx context.Context, record GenerationRecord) error
	ListGenerations(ctx context.Context, limit int) ([]GenerationRecord, error)
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
	GetStats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// GenerationRecord is one RSD file written during a run
type GenerationRecord struct {
	ID             string    `json:"id"`
	RunID          string    `json:"run_id"`
	Extraction     string    `json:"extraction"`
	ExtractionType string    `json:"extraction_type"`
	Source         string    `json:"source"`
	Path           string    `json:"path"`
	URL            string    `json:"url"`
	SlidingColumn  string    `json:"sliding_column,omitempty"`
	ColumnCount    int       `json:"column_count"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// IsSliding reports whether the file restricts rows to a date window
func (r GenerationRecord) IsSliding() bool {
	return r.SlidingColumn != ""
}

// RunSummary aggregates the files of one generation run
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Files       int       `json:"files"`
	Extractions int       `json:"extractions"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Stats represents database statistics
type Stats struct {
	TotalFiles          int            `json:"total_files"`
	SlidingFiles        int            `json:"sliding_files"`
	TotalExtractions    int            `json:"total_extractions"`
	TotalRuns           int            `json:"total_runs"`
	LastGeneration      time.Time      `json:"last_generation"`
	DatabaseSizeMB      float64        `json:"database_size_mb"`
	ExtractionBreakdown map[string]int `json:"extraction_breakdown"`
}

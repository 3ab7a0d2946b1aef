package cmd

import (
	"context"
	"errors"

	"github.com/kyleking/xu-rsd-gen/internal/storage"
)

// MockRepository implements storage.Repository for error paths
type MockRepository struct {
	records []storage.GenerationRecord
	runs    []storage.RunSummary
	stats   *storage.Stats
	err     error
	cleared bool
	closed  bool
}

func (m *MockRepository) Initialize(_ context.Context) error {
	return m.err
}

func (m *MockRepository) RecordGeneration(_ context.Context, record storage.GenerationRecord) error {
	if m.err != nil {
		return m.err
	}

	m.records = append(m.records, record)

	return nil
}

func (m *MockRepository) ListGenerations(_ context.Context, limit int) ([]storage.GenerationRecord, error) {
	if m.err != nil {
		return nil, m.err
	}

	if limit < len(m.records) {
		return m.records[:limit], nil
	}

	return m.records, nil
}

func (m *MockRepository) ListRuns(_ context.Context, limit int) ([]storage.RunSummary, error) {
	if m.err != nil {
		return nil, m.err
	}

	if limit < len(m.runs) {
		return m.runs[:limit], nil
	}

	return m.runs, nil
}

func (m *MockRepository) GetStats(_ context.Context) (*storage.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}

	if m.stats != nil {
		return m.stats, nil
	}

	return &storage.Stats{TotalFiles: len(m.records)}, nil
}

func (m *MockRepository) Clear(_ context.Context) error {
	if m.err != nil {
		return m.err
	}

	m.cleared = true
	m.records = nil

	return nil
}

func (m *MockRepository) Close() error {
	m.closed = true
	return nil
}

var errMockDatabase = errors.New("mock database failure")

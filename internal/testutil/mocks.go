package testutil

import (
	"context"
	"sync"

	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

// MockClient implements xu.Client in memory with error injection
type MockClient struct {
	mu sync.RWMutex

	extractions []xu.Extraction
	columns     map[string][]xu.Column
	parameters  map[string][]xu.Parameter
	errors      map[string]error
	callCounts  map[string]int
	lastFilter  string
}

// MockOption is a functional option for configuring MockClient
type MockOption func(*MockClient)

// WithExtractions sets the extraction list
func WithExtractions(extractions ...xu.Extraction) MockOption {
	return func(m *MockClient) {
		m.extractions = extractions
	}
}

// WithColumns sets the columns returned for an extraction
func WithColumns(extraction string, columns ...xu.Column) MockOption {
	return func(m *MockClient) {
		m.columns[extraction] = columns
	}
}

// WithParameters sets the parameters returned for an extraction
func WithParameters(extraction string, parameters ...xu.Parameter) MockOption {
	return func(m *MockClient) {
		m.parameters[extraction] = parameters
	}
}

// WithError makes an operation fail. Keys are "extractions",
// "columns:<name>" and "parameters:<name>".
func WithError(key string, err error) MockOption {
	return func(m *MockClient) {
		m.errors[key] = err
	}
}

// NewMockClient creates a new mock metadata client with the given options
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		columns:    make(map[string][]xu.Column),
		parameters: make(map[string][]xu.Parameter),
		errors:     make(map[string]error),
		callCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// ListExtractions returns the configured extractions
func (m *MockClient) ListExtractions(_ context.Context, destinationType string) ([]xu.Extraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["ListExtractions"]++
	m.lastFilter = destinationType

	if err, ok := m.errors["extractions"]; ok {
		return nil, err
	}

	return m.extractions, nil
}

// ListColumns returns the configured columns, empty when none were set
func (m *MockClient) ListColumns(_ context.Context, extraction string) ([]xu.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["ListColumns"]++

	if err, ok := m.errors["columns:"+extraction]; ok {
		return nil, err
	}

	return m.columns[extraction], nil
}

// ListParameters returns the configured parameters
func (m *MockClient) ListParameters(_ context.Context, extraction string) ([]xu.Parameter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts["ListParameters"]++

	if err, ok := m.errors["parameters:"+extraction]; ok {
		return nil, err
	}

	return m.parameters[extraction], nil
}

// GetCallCount returns the number of times a method was called
func (m *MockClient) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.callCounts[method]
}

// LastFilter returns the destination type of the last ListExtractions call
func (m *MockClient) LastFilter() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastFilter
}

// ResetCallCounts resets all call counters
func (m *MockClient) ResetCallCounts() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCounts = make(map[string]int)
}

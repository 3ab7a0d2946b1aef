package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

// ExtractionOption is a functional option for configuring test extractions
type ExtractionOption func(*xu.Extraction)

// WithExtractionType sets the extraction type
func WithExtractionType(extractionType string) ExtractionOption {
	return func(e *xu.Extraction) {
		e.Type = extractionType
	}
}

// WithSource sets the SAP source
func WithSource(source string) ExtractionOption {
	return func(e *xu.Extraction) {
		e.Source = source
	}
}

// WithDestination sets the destination type
func WithDestination(destination string) ExtractionOption {
	return func(e *xu.Extraction) {
		e.Destination = destination
	}
}

// NewTestExtraction creates an extraction with sensible defaults
func NewTestExtraction(name string, opts ...ExtractionOption) xu.Extraction {
	e := xu.Extraction{
		Name:        name,
		Type:        TestExtractionType,
		Source:      TestExtractionSource,
		Destination: "HTTPJSON",
	}

	for _, opt := range opts {
		opt(&e)
	}

	return e
}

// ColumnOption is a functional option for configuring test columns
type ColumnOption func(*xu.Column)

// AsPrimaryKey marks the column as part of the primary key
func AsPrimaryKey() ColumnOption {
	return func(c *xu.Column) {
		c.IsPrimaryKey = true
	}
}

// WithLength sets the column length
func WithLength(length int) ColumnOption {
	return func(c *xu.Column) {
		c.Length = &length
	}
}

// WithDecimals sets the number of decimal digits
func WithDecimals(decimals int) ColumnOption {
	return func(c *xu.Column) {
		c.DecimalsCount = &decimals
	}
}

// WithColumnDescription sets the column description
func WithColumnDescription(description string) ColumnOption {
	return func(c *xu.Column) {
		c.Description = &description
	}
}

// NewTestColumn creates a column without optional fields unless options add them
func NewTestColumn(name, remoteType string, opts ...ColumnOption) xu.Column {
	c := xu.Column{
		Name: name,
		Type: remoteType,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// SalesColumns returns the ID (Int, key) and AEDAT (Date) columns
func SalesColumns() []xu.Column {
	return []xu.Column{
		NewTestColumn("ID", "Int", AsPrimaryKey()),
		NewTestColumn(TestSlidingColumn, "Date"),
	}
}

// FixedClock returns a clock for planners that always reports t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// WriteTemplate writes content to a template file in a temp dir and returns its path
func WriteTemplate(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "TEMPLATE_JSON.rsd")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}

	return path
}

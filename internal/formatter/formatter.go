package formatter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kyleking/xu-rsd-gen/internal/rsd"
	"github.com/kyleking/xu-rsd-gen/internal/storage"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatLong  OutputFormat = "long"
	FormatShort OutputFormat = "short"
)

// Formatter renders metadata, plans and history for the CLI
type Formatter struct {
	// Now is used for relative ages, time.Now when nil
	Now func() time.Time
}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatExtraction formats a single extraction
func (f *Formatter) FormatExtraction(extraction xu.Extraction, format OutputFormat) string {
	switch format {
	case FormatLong:
		return f.formatExtractionLong(extraction)
	default:
		return f.formatExtractionShort(extraction)
	}
}

func (f *Formatter) formatExtractionShort(extraction xu.Extraction) string {
	return fmt.Sprintf("%s  (%s, source: %s)", extraction.Name, dash(extraction.Type), dash(extraction.Source))
}

func (f *Formatter) formatExtractionLong(extraction xu.Extraction) string {
	lines := []string{
		"Extraction: " + extraction.Name,
		"Type: " + dash(extraction.Type),
		"Source: " + dash(extraction.Source),
		"Destination: " + dash(extraction.Destination),
	}

	return strings.Join(lines, "\n")
}

// FormatColumns renders columns as an aligned table with their mapped types
func (f *Formatter) FormatColumns(columns []xu.Column) string {
	if len(columns) == 0 {
		return "No columns."
	}

	rows := [][]string{{"NAME", "TYPE", "RSD TYPE", "KEY", "LENGTH", "DECIMALS", "DESCRIPTION"}}

	for _, col := range columns {
		key := ""
		if col.IsPrimaryKey {
			key = "yes"
		}

		rows = append(rows, []string{
			col.Name,
			col.Type,
			rsd.MapType(col.Type),
			key,
			f.formatOptionalInt(col.Length),
			f.formatOptionalInt(col.DecimalsCount),
			f.formatOptionalString(col.Description),
		})
	}

	return table(rows)
}

// FormatParameters renders custom run parameters
func (f *Formatter) FormatParameters(parameters []xu.Parameter) string {
	if len(parameters) == 0 {
		return "No custom parameters."
	}

	rows := [][]string{{"NAME", "TYPE", "DESCRIPTION"}}
	for _, p := range parameters {
		rows = append(rows, []string{p.Name, p.Type, f.formatOptionalString(p.Description)})
	}

	return table(rows)
}

// FormatPlan renders the files a plan would produce
func (f *Formatter) FormatPlan(plan rsd.Plan) string {
	lines := []string{fmt.Sprintf("%s (%d files)", plan.Extraction.Name, plan.Len())}

	for _, entry := range plan.Entries {
		kind := "full"
		if entry.IsSliding() {
			kind = "sliding on " + entry.SlidingColumn
		}

		lines = append(lines,
			fmt.Sprintf("  %s  [%s]", entry.Path, kind),
			"    "+entry.URL,
		)
	}

	return strings.Join(lines, "\n")
}

// FormatGeneration formats one history record
func (f *Formatter) FormatGeneration(rec storage.GenerationRecord, format OutputFormat) string {
	if format != FormatLong {
		sliding := ""
		if rec.IsSliding() {
			sliding = "  sliding:" + rec.SlidingColumn
		}

		return fmt.Sprintf("%s  %s  %s%s", f.humanizeAge(rec.GeneratedAt), rec.Extraction, rec.Path, sliding)
	}

	lines := []string{
		rec.Path,
		fmt.Sprintf("Extraction: %s (%s, source: %s)", rec.Extraction, dash(rec.ExtractionType), dash(rec.Source)),
		"URL: " + rec.URL,
		"Sliding column: " + dash(rec.SlidingColumn),
		"Columns: " + strconv.Itoa(rec.ColumnCount),
		fmt.Sprintf("Generated: %s (%s)", rec.GeneratedAt.Format(time.RFC3339), f.humanizeAge(rec.GeneratedAt)),
		"Run: " + rec.RunID,
	}

	return strings.Join(lines, "\n")
}

// FormatRun formats one run summary
func (f *Formatter) FormatRun(run storage.RunSummary) string {
	return fmt.Sprintf("%s  %d files from %d extractions  %s",
		run.RunID, run.Files, run.Extractions, f.humanizeAge(run.FinishedAt))
}

// FormatStats renders history statistics
func (f *Formatter) FormatStats(stats *storage.Stats) string {
	lines := []string{
		"Generation history",
		"==================",
		fmt.Sprintf("Files generated: %d (%d sliding)", stats.TotalFiles, stats.SlidingFiles),
		fmt.Sprintf("Extractions: %d", stats.TotalExtractions),
		fmt.Sprintf("Runs: %d", stats.TotalRuns),
		"Last generation: " + f.humanizeAge(stats.LastGeneration),
		fmt.Sprintf("Database size: %.2f MB", stats.DatabaseSizeMB),
	}

	if len(stats.ExtractionBreakdown) > 0 {
		lines = append(lines, "", "Files per extraction:")

		names := make([]string, 0, len(stats.ExtractionBreakdown))
		for name := range stats.ExtractionBreakdown {
			names = append(names, name)
		}

		// Count descending, then name
		sort.Slice(names, func(i, j int) bool {
			ci, cj := stats.ExtractionBreakdown[names[i]], stats.ExtractionBreakdown[names[j]]
			if ci != cj {
				return ci > cj
			}

			return names[i] < names[j]
		})

		for _, name := range names {
			lines = append(lines, fmt.Sprintf("  %s: %d", name, stats.ExtractionBreakdown[name]))
		}
	}

	return strings.Join(lines, "\n")
}

func (f *Formatter) formatOptionalInt(value *int) string {
	if value == nil {
		return "-"
	}

	return strconv.Itoa(*value)
}

func (f *Formatter) formatOptionalString(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}

	return *value
}

// humanizeAge converts a time to a human-readable age string
func (f *Formatter) humanizeAge(t time.Time) string {
	if t.IsZero() {
		return "?"
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	duration := now().Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return plural(int(duration.Minutes()), "minute") + " ago"
	case duration < 24*time.Hour:
		return plural(int(duration.Hours()), "hour") + " ago"
	}

	days := int(duration.Hours() / 24)
	if days < 30 {
		return plural(days, "day") + " ago"
	}

	if days < 365 {
		return plural(days/30, "month") + " ago"
	}

	return plural(days/365, "year") + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}

	return fmt.Sprintf("%d %ss", n, unit)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

// table pads every cell to its column width; the last column is not padded
func table(rows [][]string) string {
	widths := make([]int, len(rows[0]))

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	lines := make([]string, 0, len(rows))

	for _, row := range rows {
		var b strings.Builder

		for i, cell := range row {
			if i == len(row)-1 {
				b.WriteString(cell)
				break
			}

			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-len(cell)+2))
		}

		lines = append(lines, strings.TrimRight(b.String(), " "))
	}

	return strings.Join(lines, "\n")
}

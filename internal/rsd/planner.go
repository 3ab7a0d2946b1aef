package rsd

import (
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

const whereDateLayout = "20060102"

// Entry is one output file: where it goes and the URL it reads from
type Entry struct {
	Path          string `json:"path"`
	URL           string `json:"url"`
	SlidingColumn string `json:"sliding_column,omitempty"`
}

// IsSliding reports whether the entry restricts rows to a date window
func (e Entry) IsSliding() bool {
	return e.SlidingColumn != ""
}

// Plan lists the files generated for one extraction. The first entry is
// always the full extraction, followed by one sliding entry per matching
// column in column order. Paths are unique within a plan.
type Plan struct {
	Extraction xu.Extraction `json:"extraction"`
	Entries    []Entry       `json:"entries"`
}

// Planner derives output paths and source URLs for extractions
type Planner struct {
	BaseURL              string
	OutputDir            string
	DestinationParameter string
	ForceDestinationType bool
	SlidingDays          int
	SlidingColumns       []string

	// Now supplies the current date for sliding windows, time.Now when nil
	Now func() time.Time
}

// Plan computes the output entries for an extraction and its columns
func (p *Planner) Plan(extraction xu.Extraction, columns []xu.Column) Plan {
	base := p.RunURL(extraction.Name)

	plan := Plan{
		Extraction: extraction,
		Entries: []Entry{{
			Path: filepath.Join(p.OutputDir, extraction.Name+".rsd"),
			URL:  base,
		}},
	}

	seen := map[string]bool{plan.Entries[0].Path: true}

	for _, column := range columns {
		if !p.isSlidingColumn(column.Name) {
			continue
		}

		entry := Entry{
			Path:          filepath.Join(p.OutputDir, p.slidingFileName(extraction.Name, column.Name)),
			URL:           base + p.wherePredicate(column.Name),
			SlidingColumn: column.Name,
		}

		if seen[entry.Path] {
			continue
		}

		seen[entry.Path] = true
		plan.Entries = append(plan.Entries, entry)
	}

	return plan
}

// RunURL returns the run URL of an extraction. It always ends in a query
// delimiter so further parameters can be appended with '&'.
func (p *Planner) RunURL(name string) string {
	var b strings.Builder

	b.WriteString(strings.TrimSuffix(p.BaseURL, "/"))
	b.WriteString("/run/")
	b.WriteString(url.PathEscape(name))
	b.WriteString("/?")

	if p.ForceDestinationType {
		b.WriteString("&destination=")
		b.WriteString(url.QueryEscape(p.DestinationParameter))
	}

	return b.String()
}

func (p *Planner) isSlidingColumn(name string) bool {
	for _, c := range p.SlidingColumns {
		if c == name {
			return true
		}
	}

	return false
}

func (p *Planner) slidingFileName(extraction, column string) string {
	return extraction + "_sliding_" + column + "_" + strconv.Itoa(p.SlidingDays) + "days.rsd"
}

// wherePredicate renders `&where=<column> >= '<YYYYMMDD>'` percent-encoded,
// with the date SlidingDays before today.
func (p *Planner) wherePredicate(column string) string {
	since := p.now().AddDate(0, 0, -p.SlidingDays).Format(whereDateLayout)

	return "&where=" + url.QueryEscape(column) + "%20%3E=%20%27" + since + "%27"
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}

	return time.Now()
}

// Len returns the number of files in the plan
func (pl Plan) Len() int {
	return len(pl.Entries)
}

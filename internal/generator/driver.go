package generator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kyleking/xu-rsd-gen/internal/errors"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
	"github.com/kyleking/xu-rsd-gen/internal/rsd"
	"github.com/kyleking/xu-rsd-gen/internal/storage"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

// ColumnSource supplies the result columns of an extraction
type ColumnSource interface {
	ListColumns(ctx context.Context, extraction string) ([]xu.Column, error)
}

// HistoryRecorder stores a record of every written file
type HistoryRecorder interface {
	RecordGeneration(ctx context.Context, record storage.GenerationRecord) error
}

// Progress describes the file about to be generated
type Progress struct {
	ExtractionIndex int // 1-based position in the run
	Total           int
	EntryIndex      int // 0-based position within the extraction's plan
	Extraction      string
	Path            string
}

func (p Progress) String() string {
	return fmt.Sprintf("(%d_%d/%d) \tGenerating RSD for: %s", p.ExtractionIndex, p.EntryIndex, p.Total, p.Extraction)
}

// ProgressFunc receives a Progress before each file is generated
type ProgressFunc func(Progress)

// Failure is one extraction or file that could not be generated. Path is
// empty when the whole extraction was skipped.
type Failure struct {
	Extraction string
	Path       string
	Err        error
}

// Report summarizes a run
type Report struct {
	RunID        string
	Total        int
	Processed    int
	FilesWritten int
	Files        []string
	Failures     []Failure
}

// HasFailures reports whether anything was skipped
func (r *Report) HasFailures() bool {
	return len(r.Failures) > 0
}

// Err returns an error describing the failures, nil when there were none
func (r *Report) Err() error {
	if !r.HasFailures() {
		return nil
	}

	first := r.Failures[0]

	return errors.Wrapf(first.Err, errors.GetType(first.Err),
		"%d failure(s) while generating RSD files, first in %s", len(r.Failures), first.Extraction)
}

func (r *Report) fail(extraction, path string, err error) {
	r.Failures = append(r.Failures, Failure{Extraction: extraction, Path: path, Err: err})
}

// Driver generates RSD files for a list of extractions, one extraction at a
// time. A failing extraction or file is recorded and skipped.
type Driver struct {
	Source   ColumnSource
	Template *rsd.Template
	Planner  *rsd.Planner

	// Optional
	Recorder HistoryRecorder
	Progress ProgressFunc
	Logger   *logging.Logger
}

func (d *Driver) logger() *logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return logging.GetLogger()
}

func (d *Driver) validate() error {
	switch {
	case d.Source == nil:
		return errors.New(errors.ErrTypeInternal, "driver has no column source")
	case d.Template == nil:
		return errors.New(errors.ErrTypeInternal, "driver has no template")
	case d.Planner == nil:
		return errors.New(errors.ErrTypeInternal, "driver has no planner")
	}

	return nil
}

// Run generates every planned file of every extraction. The returned error
// is non-nil only for a misconfigured driver or a canceled context; per-file
// problems are collected in the Report.
func (d *Driver) Run(ctx context.Context, extractions []xu.Extraction) (*Report, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID: uuid.New().String(),
		Total: len(extractions),
	}

	logger := d.logger().WithField(logging.FieldRunID, report.RunID)
	logger.Infof("Generating RSD files for %d extractions", len(extractions))

	for i, extraction := range extractions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if err := d.runExtraction(ctx, logger, report, i+1, extraction); err != nil {
			return report, err
		}
	}

	logger.WithFields(map[string]interface{}{
		"processed": report.Processed,
		"files":     report.FilesWritten,
		"failures":  len(report.Failures),
	}).Info("Generation finished")

	return report, nil
}

func (d *Driver) runExtraction(
	ctx context.Context,
	logger *logging.Logger,
	report *Report,
	index int,
	extraction xu.Extraction,
) error {
	logger = logger.WithExtraction(extraction.Name)

	columns, err := d.Source.ListColumns(ctx, extraction.Name)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		logger.ErrorWithErr("Failed to fetch columns, skipping extraction", err)
		report.fail(extraction.Name, "", err)

		return nil
	}

	plan := d.Planner.Plan(extraction, columns)
	logger.Debugf("Planned %d files from %d columns", plan.Len(), len(columns))

	for j, entry := range plan.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.Progress != nil {
			d.Progress(Progress{
				ExtractionIndex: index,
				Total:           report.Total,
				EntryIndex:      j,
				Extraction:      extraction.Name,
				Path:            entry.Path,
			})
		}

		if err := d.writeEntry(extraction, columns, entry); err != nil {
			logger.WithField(logging.FieldPath, entry.Path).ErrorWithErr("Failed to generate RSD file", err)
			report.fail(extraction.Name, entry.Path, err)

			continue
		}

		report.FilesWritten++
		report.Files = append(report.Files, entry.Path)

		d.record(ctx, logger, report.RunID, extraction, columns, entry)
	}

	report.Processed++

	return nil
}

func (d *Driver) writeEntry(extraction xu.Extraction, columns []xu.Column, entry rsd.Entry) error {
	doc, err := d.Template.Transform(extraction, columns, entry.URL)
	if err != nil {
		return err
	}

	return rsd.WriteDocument(doc, entry.Path)
}

func (d *Driver) record(
	ctx context.Context,
	logger *logging.Logger,
	runID string,
	extraction xu.Extraction,
	columns []xu.Column,
	entry rsd.Entry,
) {
	if d.Recorder == nil {
		return
	}

	err := d.Recorder.RecordGeneration(ctx, storage.GenerationRecord{
		RunID:          runID,
		Extraction:     extraction.Name,
		ExtractionType: extraction.Type,
		Source:         extraction.Source,
		Path:           entry.Path,
		URL:            entry.URL,
		SlidingColumn:  entry.SlidingColumn,
		ColumnCount:    len(columns),
	})
	if err != nil {
		logger.WithField(logging.FieldPath, entry.Path).WithError(err).Warn("Failed to record generation history")
	}
}

// Plans fetches columns and computes plans without writing anything.
// Extractions whose columns cannot be fetched are returned as failures.
func (d *Driver) Plans(ctx context.Context, extractions []xu.Extraction) ([]rsd.Plan, []Failure, error) {
	if d.Source == nil || d.Planner == nil {
		return nil, nil, errors.New(errors.ErrTypeInternal, "driver needs a column source and a planner")
	}

	var (
		plans    []rsd.Plan
		failures []Failure
	)

	for _, extraction := range extractions {
		if err := ctx.Err(); err != nil {
			return plans, failures, err
		}

		columns, err := d.Source.ListColumns(ctx, extraction.Name)
		if err != nil {
			if ctx.Err() != nil {
				return plans, failures, ctx.Err()
			}

			failures = append(failures, Failure{Extraction: extraction.Name, Err: err})

			continue
		}

		plans = append(plans, d.Planner.Plan(extraction, columns))
	}

	return plans, failures, nil
}

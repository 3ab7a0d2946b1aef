package generator

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/xu-rsd-gen/internal/errors"
	"github.com/kyleking/xu-rsd-gen/internal/logging"
	"github.com/kyleking/xu-rsd-gen/internal/rsd"
	"github.com/kyleking/xu-rsd-gen/internal/storage"
	"github.com/kyleking/xu-rsd-gen/internal/testutil"
	"github.com/kyleking/xu-rsd-gen/internal/xu"
)

var runDate = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordGeneration(ctx context.Context, record storage.GenerationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func newTestDriver(t *testing.T, source ColumnSource, template string) (*Driver, string) {
	t.Helper()

	outputDir := filepath.Join(t.TempDir(), "OUTPUT")

	return &Driver{
		Source:   source,
		Template: rsd.NewTemplate([]byte(template)),
		Planner: &rsd.Planner{
			BaseURL:        testutil.TestBaseURL,
			OutputDir:      outputDir,
			SlidingDays:    testutil.TestSlidingDays,
			SlidingColumns: []string{testutil.TestSlidingColumn},
			Now:            testutil.FixedClock(runDate),
		},
		Logger: logging.Discard(),
	}, outputDir
}

func TestDriver_Run(t *testing.T) {
	source := testutil.NewMockClient(
		testutil.WithColumns("SALES", testutil.SalesColumns()...),
		testutil.WithColumns("ORDERS", testutil.NewTestColumn("VBELN", "StringLengthMax", testutil.AsPrimaryKey())),
	)

	driver, outputDir := newTestDriver(t, source, testutil.SampleTemplate)

	var progress []Progress
	driver.Progress = func(p Progress) { progress = append(progress, p) }

	extractions := []xu.Extraction{
		testutil.NewTestExtraction("SALES"),
		testutil.NewTestExtraction("ORDERS"),
	}

	report, err := driver.Run(context.Background(), extractions)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 3, report.FilesWritten)
	assert.False(t, report.HasFailures())

	assert.Equal(t, []string{
		filepath.Join(outputDir, "SALES.rsd"),
		filepath.Join(outputDir, "SALES_sliding_AEDAT_3days.rsd"),
		filepath.Join(outputDir, "ORDERS.rsd"),
	}, report.Files)

	for _, path := range report.Files {
		assert.FileExists(t, path)
	}

	sliding, err := os.ReadFile(filepath.Join(outputDir, "SALES_sliding_AEDAT_3days.rsd"))
	require.NoError(t, err)
	assert.Contains(t, string(sliding), "where=AEDAT%20%3E=%20%2720240312%27")

	require.Len(t, progress, 3)
	assert.Equal(t, Progress{ExtractionIndex: 1, Total: 2, EntryIndex: 0, Extraction: "SALES", Path: report.Files[0]}, progress[0])
	assert.Equal(t, 1, progress[1].EntryIndex)
	assert.Equal(t, 2, progress[2].ExtractionIndex)
	assert.Equal(t, 0, progress[2].EntryIndex, "entry index resets per extraction")

	assert.Equal(t, 2, source.GetCallCount("ListColumns"))
}

func TestProgress_String(t *testing.T) {
	p := Progress{ExtractionIndex: 3, Total: 10, EntryIndex: 1, Extraction: "SALES"}
	assert.Equal(t, "(3_1/10) \tGenerating RSD for: SALES", p.String())
}

func TestDriver_Run_ContinuesAfterColumnFailure(t *testing.T) {
	fetchErr := errors.New(errors.ErrTypeNetwork, "connection refused")

	source := testutil.NewMockClient(
		testutil.WithError("columns:BROKEN", fetchErr),
		testutil.WithColumns("SALES", testutil.SalesColumns()...),
	)

	driver, _ := newTestDriver(t, source, testutil.SampleTemplate)

	report, err := driver.Run(context.Background(), []xu.Extraction{
		testutil.NewTestExtraction("BROKEN"),
		testutil.NewTestExtraction("SALES"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.FilesWritten)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "BROKEN", report.Failures[0].Extraction)
	assert.Empty(t, report.Failures[0].Path)
	assert.ErrorIs(t, report.Failures[0].Err, fetchErr)

	runErr := report.Err()
	require.Error(t, runErr)
	assert.True(t, errors.IsType(runErr, errors.ErrTypeNetwork))
	assert.Contains(t, runErr.Error(), "BROKEN")
}

func TestDriver_Run_TemplateFailure(t *testing.T) {
	source := testutil.NewMockClient(testutil.WithColumns("SALES", testutil.SalesColumns()...))
	driver, outputDir := newTestDriver(t, source, testutil.TemplateWithoutURI)

	report, err := driver.Run(context.Background(), []xu.Extraction{testutil.NewTestExtraction("SALES")})
	require.NoError(t, err)

	assert.Zero(t, report.FilesWritten)
	assert.Equal(t, 1, report.Processed)
	require.Len(t, report.Failures, 2, "each planned file fails on its own")

	for _, failure := range report.Failures {
		assert.True(t, errors.IsType(failure.Err, errors.ErrTypeTemplate))
		assert.NotEmpty(t, failure.Path)
	}

	assert.NoDirExists(t, outputDir, "nothing is written for a broken template")
}

func TestDriver_Run_WriteFailure(t *testing.T) {
	source := testutil.NewMockClient(testutil.WithColumns("SALES", testutil.SalesColumns()...))
	driver, _ := newTestDriver(t, source, testutil.SampleTemplate)

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))
	driver.Planner.OutputDir = blocker

	report, err := driver.Run(context.Background(), []xu.Extraction{testutil.NewTestExtraction("SALES")})
	require.NoError(t, err)

	require.Len(t, report.Failures, 2)
	assert.True(t, errors.IsType(report.Failures[0].Err, errors.ErrTypeFileSystem))
}

func TestDriver_Run_RecordsHistory(t *testing.T) {
	source := testutil.NewMockClient(testutil.WithColumns("SALES", testutil.SalesColumns()...))
	driver, outputDir := newTestDriver(t, source, testutil.SampleTemplate)

	recorder := &mockRecorder{}
	recorder.On("RecordGeneration", mock.Anything, mock.MatchedBy(func(r storage.GenerationRecord) bool {
		return r.Extraction == "SALES" && r.ColumnCount == 2 && r.ExtractionType == testutil.TestExtractionType
	})).Return(nil).Twice()

	driver.Recorder = recorder

	report, err := driver.Run(context.Background(), []xu.Extraction{testutil.NewTestExtraction("SALES")})
	require.NoError(t, err)
	assert.Equal(t, 2, report.FilesWritten)

	recorder.AssertExpectations(t)

	sliding := recorder.Calls[1].Arguments.Get(1).(storage.GenerationRecord)
	assert.Equal(t, report.RunID, sliding.RunID)
	assert.Equal(t, testutil.TestSlidingColumn, sliding.SlidingColumn)
	assert.Equal(t, filepath.Join(outputDir, "SALES_sliding_AEDAT_3days.rsd"), sliding.Path)
}

func TestDriver_Run_HistoryFailureIsNotFatal(t *testing.T) {
	source := testutil.NewMockClient(testutil.WithColumns("SALES", testutil.SalesColumns()...))
	driver, _ := newTestDriver(t, source, testutil.SampleTemplate)

	recorder := &mockRecorder{}
	recorder.On("RecordGeneration", mock.Anything, mock.Anything).Return(stderrors.New("database is locked"))
	driver.Recorder = recorder

	report, err := driver.Run(context.Background(), []xu.Extraction{testutil.NewTestExtraction("SALES")})
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesWritten)
	assert.False(t, report.HasFailures())
	recorder.AssertNumberOfCalls(t, "RecordGeneration", 2)
}

func TestDriver_Run_WithHistoryDatabase(t *testing.T) {
	source := testutil.NewMockClient(testutil.WithColumns("SALES", testutil.SalesColumns()...))
	driver, _ := newTestDriver(t, source, testutil.SampleTemplate)

	repo := storage.NewTestDB(t)
	driver.Recorder = repo

	report, err := driver.Run(context.Background(), []xu.Extraction{testutil.NewTestExtraction("SALES")})
	require.NoError(t, err)

	stats, err := repo.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report.FilesWritten, stats.TotalFiles)
	assert.Equal(t, 1, stats.SlidingFiles)
	assert.Equal(t, 1, stats.TotalRuns)
}

func TestDriver_Run_Cancellation(t *testing.T) {
	source := testutil.NewMockClient(
		testutil.WithColumns("A", testutil.SalesColumns()...),
		testutil.WithColumns("B", testutil.SalesColumns()...),
	)
	driver, _ := newTestDriver(t, source, testutil.SampleTemplate)

	ctx, cancel := context.WithCancel(context.Background())

	// Cancel as soon as the first file is announced
	driver.Progress = func(Progress) { cancel() }

	report, err := driver.Run(ctx, []xu.Extraction{
		testutil.NewTestExtraction("A"),
		testutil.NewTestExtraction("B"),
	})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)

	assert.Equal(t, 1, report.FilesWritten, "the announced file completes")
	assert.Equal(t, 1, source.GetCallCount("ListColumns"))
}

func TestDriver_Run_AlreadyCanceled(t *testing.T) {
	source := testutil.NewMockClient()
	driver, _ := newTestDriver(t, source, testutil.SampleTemplate)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := driver.Run(ctx, []xu.Extraction{testutil.NewTestExtraction("SALES")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Processed)
	assert.Zero(t, source.GetCallCount("ListColumns"))
}

func TestDriver_Run_Misconfigured(t *testing.T) {
	_, err := (&Driver{}).Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInternal))
}

func TestDriver_Run_Empty(t *testing.T) {
	driver, outputDir := newTestDriver(t, testutil.NewMockClient(), testutil.SampleTemplate)

	report, err := driver.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Zero(t, report.FilesWritten)
	assert.NoDirExists(t, outputDir)
}

func TestDriver_Plans(t *testing.T) {
	source := testutil.NewMockClient(
		testutil.WithColumns("SALES", testutil.SalesColumns()...),
		testutil.WithError("columns:BROKEN", errors.New(errors.ErrTypeMetadata, "boom")),
	)
	driver, outputDir := newTestDriver(t, source, testutil.SampleTemplate)

	plans, failures, err := driver.Plans(context.Background(), []xu.Extraction{
		testutil.NewTestExtraction("SALES"),
		testutil.NewTestExtraction("BROKEN"),
	})
	require.NoError(t, err)

	require.Len(t, plans, 1)
	assert.Equal(t, 2, plans[0].Len())
	require.Len(t, failures, 1)
	assert.Equal(t, "BROKEN", failures[0].Extraction)

	assert.NoDirExists(t, outputDir, "planning never writes")
}

package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/classify"
	"github.com/KaramelBytes/sheetscope-cli/internal/export"
	"github.com/KaramelBytes/sheetscope-cli/internal/filter"
	"github.com/KaramelBytes/sheetscope-cli/internal/ingest"
	"github.com/KaramelBytes/sheetscope-cli/internal/sample"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const salesCSV = "Date,Sales,Region\n" +
	"2024-01-01,100,North\n" +
	"2024-01-02,200,South\n" +
	"2024-01-03,,North\n" +
	"2024-01-04,400,East\n" +
	",,\n"

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestLoadBuildsState(t *testing.T) {
	s := New(DefaultOptions())
	st, err := s.Load(testContext(t), bytes.NewReader([]byte(salesCSV)), "sales.csv")
	require.NoError(t, err)

	assert.NotEmpty(t, st.ID)
	assert.Equal(t, "sales.csv", st.FileName)
	assert.Equal(t, 4, st.Data.Rows(), "all-empty row dropped")
	assert.Equal(t, 1, st.Clean.DroppedRows)
	tag, _ := st.Classification.Tag("Date")
	assert.Equal(t, classify.Date, tag)
	_, isTime := st.Data.At(0, 0).Time()
	assert.True(t, isTime, "date column materialized")
	assert.Equal(t, 1, st.Baseline.MissingCells)
	assert.Same(t, st.Baseline, st.ViewReport)
	assert.Same(t, st, s.Current())
}

func TestSampleWorkbookRoundTripKeepsDates(t *testing.T) {
	raw := sample.Generate(10, 3)
	st, err := Build(raw, DefaultOptions())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, export.WriteWorkbook(&buf, st.Data, st.Baseline))

	ds, err := ingest.Load(bytes.NewReader(buf.Bytes()), "sample.xlsx", ingest.DefaultOptions())
	require.NoError(t, err)
	back, err := Build(ds, DefaultOptions())
	require.NoError(t, err)

	tag, _ := back.Classification.Tag("Date")
	assert.Equal(t, classify.Date, tag)
	first, ok := back.Data.At(0, 0).Time()
	require.True(t, ok, "first date is %v", back.Data.At(0, 0))
	assert.True(t, first.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), "first date %v", first)
	require.NotNil(t, back.Baseline.DateRange)
	assert.Equal(t, "2024-01-01", back.Baseline.DateRange.From.Format("2006-01-02"))
	assert.Equal(t, 10, back.Baseline.DateRange.Days())
	assert.Equal(t, st.Baseline.NumericColumns, back.Baseline.NumericColumns)
}

func TestFailedLoadKeepsPreviousState(t *testing.T) {
	ctx := testContext(t)
	s := New(DefaultOptions())
	first, err := s.Load(ctx, bytes.NewReader([]byte(salesCSV)), "sales.csv")
	require.NoError(t, err)

	_, err = s.Load(ctx, bytes.NewReader([]byte("garbage")), "notes.pdf")
	var ie *ingest.Error
	require.True(t, errors.As(err, &ie))
	assert.NotEmpty(t, ie.Hint)
	assert.Same(t, first, s.Current())

	_, err = s.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Same(t, first, s.Current())
}

func TestSetFilterRecomputesView(t *testing.T) {
	ctx := testContext(t)
	s := New(DefaultOptions())
	base, err := s.Load(ctx, bytes.NewReader([]byte(salesCSV)), "sales.csv")
	require.NoError(t, err)

	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	st, err := s.SetFilter(ctx, filter.Spec{DateColumn: "Date", From: &from, CategoryColumn: "Region", Categories: []string{"North", "East"}})
	require.NoError(t, err)
	assert.Equal(t, 2, st.View.Rows())
	assert.Equal(t, 2, st.ViewReport.Rows)
	assert.Equal(t, 4, st.Baseline.Rows, "baseline unchanged")
	assert.Equal(t, base.ID, st.ID)
	assert.Equal(t, 4, base.View.Rows(), "previous state untouched")

	_, err = s.SetFilter(ctx, filter.Spec{CategoryColumn: "Nope", Categories: []string{"x"}})
	assert.ErrorIs(t, err, filter.ErrUnknownColumn)
	assert.Same(t, st, s.Current())

	cleared, err := s.ClearFilter(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cleared.View.Rows())
}

func TestResetAndNoDataset(t *testing.T) {
	ctx := testContext(t)
	s := New(DefaultOptions())
	_, err := s.SetFilter(ctx, filter.Spec{})
	assert.ErrorIs(t, err, ErrNoDataset)
	_, err = s.Require()
	assert.ErrorIs(t, err, ErrNoDataset)

	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(salesCSV), 0o644))
	_, err = s.LoadFile(ctx, path)
	require.NoError(t, err)
	s.Reset(ctx)
	assert.Nil(t, s.Current())
}

func TestConcurrentReadersSeeWholeStates(t *testing.T) {
	ctx := testContext(t)
	s := New(DefaultOptions())
	_, err := s.Load(ctx, bytes.NewReader([]byte(salesCSV)), "sales.csv")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.SetFilter(ctx, filter.Spec{MissingOnly: true})
		}()
		go func() {
			defer wg.Done()
			st := s.Current()
			assert.Equal(t, st.View.Rows(), st.ViewReport.Rows)
		}()
	}
	wg.Wait()
}

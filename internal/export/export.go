// Package export writes a dataset to CSV or to a workbook with a summary
// sheet. Workbook failures degrade to CSV with a notice.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/KaramelBytes/sheetscope-cli/internal/summary"
	"github.com/KaramelBytes/sheetscope-cli/internal/utils"
	"github.com/xuri/excelize/v2"
)

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// Sheet names used by WriteWorkbook.
const (
	DataSheet    = "Data"
	SummarySheet = "Summary"
)

// ParseFormat accepts "csv" and "xlsx" (case-insensitive, leading dot
// allowed).
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use csv or xlsx)", s)
}

// FormatForPath infers the format from a file extension, defaulting to CSV.
func FormatForPath(path string) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	return CSV
}

// ContentType returns the MIME type for downloads.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// WriteCSV writes a header row and one record per row. Nulls are empty
// fields.
func WriteCSV(w io.Writer, ds *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, ds.Width())
	for i := 0; i < ds.Rows(); i++ {
		for j := range rec {
			rec[j] = ds.At(i, j).String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteWorkbook writes ds to a "Data" sheet and, when rep is not nil, the
// report's key/value pairs to a "Summary" sheet.
func WriteWorkbook(w io.Writer, ds *dataset.Dataset, rep *summary.Report) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, ds.Width())
	for j, n := range ds.Names() {
		header[j] = n
	}
	if err := f.SetSheetRow(DataSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]interface{}, ds.Width())
	for i := 0; i < ds.Rows(); i++ {
		for j := range row {
			row[j] = cellValue(ds.At(i, j))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DataSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if rep != nil {
		if _, err := f.NewSheet(SummarySheet); err != nil {
			return fmt.Errorf("add summary sheet: %w", err)
		}
		if err := f.SetSheetRow(SummarySheet, "A1", &[]interface{}{"Metric", "Value"}); err != nil {
			return fmt.Errorf("write summary header: %w", err)
		}
		for k, p := range rep.Pairs() {
			cell, err := excelize.CoordinatesToCellName(1, k+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(SummarySheet, cell, &[]interface{}{p.Key, p.Value}); err != nil {
				return fmt.Errorf("write summary row: %w", err)
			}
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellValue(v dataset.Value) interface{} {
	switch v.Kind() {
	case dataset.KindNumber:
		f, _ := v.Float()
		return f
	case dataset.KindTime:
		t, _ := v.Time()
		return t
	case dataset.KindBool:
		b, _ := v.Bool()
		return b
	case dataset.KindText:
		s, _ := v.Text()
		return s
	}
	return nil
}

// Exporter renders datasets. Workbook is replaceable so callers can plug in
// another writer.
type Exporter struct {
	Workbook func(w io.Writer, ds *dataset.Dataset, rep *summary.Report) error
}

// New returns an Exporter backed by WriteWorkbook.
func New() *Exporter {
	return &Exporter{Workbook: WriteWorkbook}
}

// Output is a rendered export.
type Output struct {
	Data   []byte
	Format Format
	// Notice is set when the requested format was replaced by CSV.
	Notice string
}

// Render produces the bytes for format. A workbook failure falls back to
// CSV and sets Notice; only a CSV failure is returned as an error.
func (e *Exporter) Render(format Format, ds *dataset.Dataset, rep *summary.Report) (Output, error) {
	if format == XLSX {
		wb := e.Workbook
		if wb == nil {
			wb = WriteWorkbook
		}
		var buf bytes.Buffer
		err := wb(&buf, ds, rep)
		if err == nil {
			return Output{Data: buf.Bytes(), Format: XLSX}, nil
		}
		out, cerr := e.Render(CSV, ds, rep)
		if cerr != nil {
			return Output{}, cerr
		}
		out.Notice = fmt.Sprintf("workbook export unavailable (%v); wrote CSV instead", err)
		return out, nil
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds); err != nil {
		return Output{}, err
	}
	return Output{Data: buf.Bytes(), Format: CSV}, nil
}

// Result describes a written export file.
type Result struct {
	Path   string
	Format Format
	Notice string
}

// ExportFile writes ds to path. An empty format is inferred from the
// extension. When a workbook falls back to CSV, the file is written next to
// path with a .csv extension.
func (e *Exporter) ExportFile(path string, format Format, ds *dataset.Dataset, rep *summary.Report) (Result, error) {
	if format == "" {
		format = FormatForPath(path)
	}
	out, err := e.Render(format, ds, rep)
	if err != nil {
		return Result{}, err
	}
	if out.Format != format {
		path = strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
	}
	if err := utils.SafeWriteFile(path, out.Data); err != nil {
		return Result{}, err
	}
	return Result{Path: path, Format: out.Format, Notice: out.Notice}, nil
}

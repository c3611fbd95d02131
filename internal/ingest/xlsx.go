package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

func (xlsxLoader) Load(r io.ReadSeeker, name string, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt)
	if err != nil {
		return nil, &Error{Source: name, Hint: "pick one of the sheets listed in the message", Err: err}
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, &Error{Source: name, Hint: "the first row must hold column headers", Err: ErrEmpty}
	}
	header := make([]string, len(rows[0]))
	for j := range header {
		header[j] = rows[0][j]
		if cell, err := excelize.CoordinatesToCellName(j+1, 1); err == nil {
			if v, err := f.GetCellValue(sheet, cell); err == nil {
				header[j] = v
			}
		}
	}
	return build(name, header, rows[1:], opt, newCellTyper(f, sheet).value)
}

// cellTyper turns raw workbook values into typed cells. Numbers with a date
// or time number format become time cells, so the value does not depend on
// how the workbook chose to display it.
type cellTyper struct {
	f        *excelize.File
	sheet    string
	date1904 bool
	styles   map[int]bool
}

func newCellTyper(f *excelize.File, sheet string) *cellTyper {
	t := &cellTyper{f: f, sheet: sheet, styles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		t.date1904 = *props.Date1904
	}
	return t
}

// value reports ok=false for cells the generic text parser should handle.
func (t *cellTyper) value(i, j int, raw string) (dataset.Value, bool) {
	if raw == "" {
		return dataset.Value{}, false
	}
	cell, err := excelize.CoordinatesToCellName(j+1, i+2)
	if err != nil {
		return dataset.Value{}, false
	}
	ct, err := t.f.GetCellType(t.sheet, cell)
	if err != nil {
		return dataset.Value{}, false
	}
	switch ct {
	case excelize.CellTypeBool:
		return dataset.Bool(raw == "1" || strings.EqualFold(raw, "TRUE")), true
	case excelize.CellTypeError:
		return dataset.Null(), true
	case excelize.CellTypeDate:
		for _, l := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(l, raw); err == nil {
				return dataset.Time(ts), true
			}
		}
		return dataset.Value{}, false
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return dataset.Value{}, false
		}
		if t.isDate(cell) {
			if ts, err := excelize.ExcelDateToTime(v, t.date1904); err == nil {
				return dataset.Time(ts), true
			}
		}
		return dataset.Number(v), true
	}
	return dataset.Value{}, false
}

func (t *cellTyper) isDate(cell string) bool {
	idx, err := t.f.GetCellStyle(t.sheet, cell)
	if err != nil || idx == 0 {
		return false
	}
	if d, ok := t.styles[idx]; ok {
		return d
	}
	d := false
	if style, err := t.f.GetStyle(idx); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			d = isDateFormat(*style.CustomNumFmt)
		} else {
			d = isBuiltinDateFormat(style.NumFmt)
		}
	}
	t.styles[idx] = d
	return d
}

// isBuiltinDateFormat reports the built-in number format IDs that render
// dates or times, including the East Asian locale ranges.
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom format code contains date or time
// tokens outside quoted literals, escapes and bracketed sections.
func isDateFormat(code string) bool {
	inQuote, inBracket := false, false
	rs := []rune(code)
	for k := 0; k < len(rs); k++ {
		r := rs[k]
		switch {
		case inQuote:
			inQuote = r != '"'
		case inBracket:
			inBracket = r != ']'
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		case r == '\\', r == '_', r == '*':
			k++
		case r == ';':
			// only the positive section decides
			return false
		default:
			switch r {
			case 'y', 'Y', 'm', 'M', 'd', 'D', 'h', 'H', 's', 'S':
				return true
			}
		}
	}
	return false
}

// pickSheet resolves Options.Sheet / Options.SheetIndex against the
// workbook's sheet list.
func pickSheet(sheets []string, opt Options) (string, error) {
	if len(sheets) == 0 {
		return "", ErrEmpty
	}
	if opt.Sheet != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.Sheet) {
				return s, nil
			}
		}
		return "", fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, opt.Sheet, strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("%w: index %d (workbook has %d)", ErrSheetNotFound, idx, len(sheets))
	}
	return sheets[idx-1], nil
}

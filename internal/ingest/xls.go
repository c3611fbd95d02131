package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/extrame/xls"
)

// xlsLoader reads legacy BIFF (.xls) workbooks.
type xlsLoader struct{}

func (xlsLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xls")
}

func (xlsLoader) Load(r io.ReadSeeker, name string, opt Options) (*dataset.Dataset, error) {
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	names := make([]string, wb.NumSheets())
	for i := range names {
		if s := wb.GetSheet(i); s != nil {
			names[i] = s.Name
		}
	}
	sheetName, err := pickSheet(names, opt)
	if err != nil {
		return nil, &Error{Source: name, Hint: "pick one of the sheets listed in the message", Err: err}
	}
	var sheet *xls.WorkSheet
	for i, n := range names {
		if n == sheetName {
			sheet = wb.GetSheet(i)
			break
		}
	}
	if sheet == nil {
		return nil, &Error{Source: name, Hint: "the first row must hold column headers", Err: ErrEmpty}
	}

	var table [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			table = append(table, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		table = append(table, cells)
	}
	if len(table) == 0 || len(table[0]) == 0 {
		return nil, &Error{Source: name, Hint: "the first row must hold column headers", Err: ErrEmpty}
	}
	return build(name, table[0], table[1:], opt, nil)
}

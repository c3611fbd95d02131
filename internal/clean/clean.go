// Package clean normalizes an ingested dataset before classification.
package clean

import (
	"math"
	"strings"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
)

// Options controls cleaning behavior.
type Options struct {
	// MaxDistinct flags text columns with fewer distinct values as low
	// cardinality. 0 disables the absolute rule.
	MaxDistinct int
	// MaxDistinctRatio flags text columns whose distinct/row ratio is below
	// it. 0 disables the ratio rule.
	MaxDistinctRatio float64
}

// DefaultOptions returns the absolute threshold of 50 distinct values.
func DefaultOptions() Options {
	return Options{MaxDistinct: 50}
}

// Report describes what Clean changed.
type Report struct {
	DroppedRows    int      `json:"dropped_rows"`
	DroppedColumns []string `json:"dropped_columns,omitempty"`
	TrimmedCells   int      `json:"trimmed_cells"`
	// NulledCells counts cells that became null: blank text after trimming,
	// spreadsheet error literals and non-finite numbers.
	NulledCells    int      `json:"nulled_cells"`
	LowCardinality []string `json:"low_cardinality,omitempty"`
}

// errorLiterals are spreadsheet error values that carry no data.
var errorLiterals = map[string]struct{}{
	"#DIV/0!": {}, "#VALUE!": {}, "#REF!": {}, "#NAME?": {},
	"#NUM!": {}, "#NULL!": {}, "#N/A": {}, "#GETTING_DATA": {},
}

// Clean returns a normalized copy of ds. It never fails: malformed cells
// become null.
func Clean(ds *dataset.Dataset, opt Options) (*dataset.Dataset, Report) {
	var rep Report
	src := ds.Columns()
	cols := make([]dataset.Column, 0, len(src))
	for _, c := range src {
		vals := make([]dataset.Value, len(c.Values))
		for i, v := range c.Values {
			nv, trimmed, nulled := cleanCell(v)
			if trimmed {
				rep.TrimmedCells++
			}
			if nulled {
				rep.NulledCells++
			}
			vals[i] = nv
		}
		cols = append(cols, dataset.Column{Name: c.Name, Values: vals})
	}

	// Drop all-null columns.
	kept := cols[:0]
	for _, c := range cols {
		if c.NullCount() == len(c.Values) && len(c.Values) > 0 {
			rep.DroppedColumns = append(rep.DroppedColumns, c.Name)
			continue
		}
		kept = append(kept, c)
	}
	cols = kept

	// Drop all-null rows.
	rows := ds.Rows()
	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		empty := true
		for j := range cols {
			if !cols[j].Values[i].IsNull() {
				empty = false
				break
			}
		}
		if !empty {
			keep = append(keep, i)
		}
	}
	rep.DroppedRows = rows - len(keep)
	if len(cols) == 0 {
		rep.DroppedRows = rows
	}
	if rep.DroppedRows > 0 {
		for j := range cols {
			vals := make([]dataset.Value, len(keep))
			for k, i := range keep {
				vals[k] = cols[j].Values[i]
			}
			cols[j].Values = vals
		}
	}

	n := len(keep)
	for j := range cols {
		if kind, _ := cols[j].StorageKind(); kind != dataset.KindText {
			continue
		}
		if lowCardinality(cols[j].Distinct(), n, opt) {
			cols[j].LowCardinality = true
			rep.LowCardinality = append(rep.LowCardinality, cols[j].Name)
		}
	}

	out, err := dataset.New(ds.Name, cols)
	if err != nil {
		// Columns come from a valid dataset and are trimmed together.
		return ds, rep
	}
	return out, rep
}

func lowCardinality(distinct, rows int, opt Options) bool {
	if opt.MaxDistinct > 0 && distinct < opt.MaxDistinct {
		return true
	}
	if opt.MaxDistinctRatio > 0 && rows > 0 && float64(distinct)/float64(rows) < opt.MaxDistinctRatio {
		return true
	}
	return false
}

func cleanCell(v dataset.Value) (out dataset.Value, trimmed, nulled bool) {
	switch v.Kind() {
	case dataset.KindText:
		s, _ := v.Text()
		t := strings.TrimSpace(s)
		trimmed = t != s
		if t == "" {
			return dataset.Null(), trimmed, true
		}
		if _, bad := errorLiterals[strings.ToUpper(t)]; bad {
			return dataset.Null(), trimmed, true
		}
		return dataset.Text(t), trimmed, false
	case dataset.KindNumber:
		f, _ := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return dataset.Null(), false, true
		}
	case dataset.KindTime:
		if t, _ := v.Time(); t.IsZero() {
			return dataset.Null(), false, true
		}
	}
	return v, false, false
}

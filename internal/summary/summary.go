// Package summary computes the dataset overview: shape, missing and
// duplicate counts, numeric profiles, date range and quality percentages.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/classify"
	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/KaramelBytes/sheetscope-cli/internal/stats"
)

// Options controls summary behavior.
type Options struct {
	// NumericLimit caps how many Numeric columns get a profile. 0 means all.
	NumericLimit int
}

// DefaultOptions profiles the first five Numeric columns.
func DefaultOptions() Options {
	return Options{NumericLimit: 5}
}

// Report is an immutable snapshot of one dataset.
type Report struct {
	Name          string `json:"name"`
	Rows          int    `json:"rows"`
	Columns       int    `json:"columns"`
	TotalCells    int    `json:"total_cells"`
	MissingCells  int    `json:"missing_cells"`
	DuplicateRows int    `json:"duplicate_rows"`
	MemoryBytes   int64  `json:"memory_bytes"`

	DateColumns        int `json:"date_columns"`
	NumericColumns     int `json:"numeric_columns"`
	CategoricalColumns int `json:"categorical_columns"`
	OtherColumns       int `json:"other_columns"`

	Numeric   []NumericSummary `json:"numeric_stats"`
	DateRange *DateRange       `json:"date_range,omitempty"`
	Missing   []ColumnMissing  `json:"missing_by_column"`
	Quality   Quality          `json:"quality"`
	Notes     []string         `json:"notes,omitempty"`
}

// NumericSummary is the profile of one Numeric column.
type NumericSummary struct {
	Column string `json:"column"`
	stats.Describe
}

// DateRange is the span of the first Date column holding a value.
type DateRange struct {
	Column string    `json:"column"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// Days returns the whole days covered, counting both ends.
func (d DateRange) Days() int {
	return int(d.To.Sub(d.From).Hours()/24) + 1
}

// ColumnMissing is the null count of one column.
type ColumnMissing struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Quality holds percentages in [0, 100].
type Quality struct {
	Completeness float64 `json:"completeness"`
	Uniqueness   float64 `json:"uniqueness"`
	Consistency  float64 `json:"consistency"`
}

// Summarize builds a Report for ds using the tags in cls.
func Summarize(ds *dataset.Dataset, cls *classify.Classification, opt Options) *Report {
	rep := &Report{
		Name:          ds.Name,
		Rows:          ds.Rows(),
		Columns:       ds.Width(),
		TotalCells:    ds.Rows() * ds.Width(),
		MissingCells:  ds.MissingCount(),
		DuplicateRows: ds.DuplicateRows(),
		MemoryBytes:   ds.MemoryEstimate(),
	}
	counts := cls.Counts()
	rep.DateColumns = counts[classify.Date]
	rep.NumericColumns = counts[classify.Numeric]
	rep.CategoricalColumns = counts[classify.Categorical]
	rep.OtherColumns = counts[classify.Other]

	numeric := cls.Columns(classify.Numeric)
	if opt.NumericLimit > 0 && len(numeric) > opt.NumericLimit {
		rep.Notes = append(rep.Notes, fmt.Sprintf("numeric statistics limited to the first %d of %d numeric columns", opt.NumericLimit, len(numeric)))
		numeric = numeric[:opt.NumericLimit]
	}
	rep.Numeric = make([]NumericSummary, 0, len(numeric))
	for _, name := range numeric {
		col, ok := ds.Column(name)
		if !ok {
			continue
		}
		rep.Numeric = append(rep.Numeric, NumericSummary{Column: name, Describe: stats.Summarize(Floats(col))})
	}

	for _, name := range cls.Columns(classify.Date) {
		col, ok := ds.Column(name)
		if !ok {
			continue
		}
		if dr, ok := dateRange(col); ok {
			rep.DateRange = &dr
			break
		}
	}

	mixed := 0
	cols := ds.Columns()
	rep.Missing = make([]ColumnMissing, len(cols))
	for j := range cols {
		n := cols[j].NullCount()
		rep.Missing[j] = ColumnMissing{
			Column:  cols[j].Name,
			Count:   n,
			Percent: 100 - stats.Percent(ds.Rows()-n, ds.Rows()),
		}
		if _, m := cols[j].StorageKind(); m {
			mixed++
		}
	}
	rep.Quality = Quality{
		Completeness: stats.Percent(rep.TotalCells-rep.MissingCells, rep.TotalCells),
		Uniqueness:   stats.Percent(rep.Rows-rep.DuplicateRows, rep.Rows),
		Consistency:  stats.Percent(rep.Columns-mixed, rep.Columns),
	}

	for _, d := range cls.Decisions() {
		if d.Fallback {
			rep.Notes = append(rep.Notes, fmt.Sprintf("%s: classified by coarse check (%s)", d.Column, d.Reason))
		}
	}
	if rep.DateColumns > 0 && rep.DateRange == nil {
		rep.Notes = append(rep.Notes, "date columns hold no parseable values")
	}
	return rep
}

// Floats returns the numeric cells of col, skipping everything else.
func Floats(col *dataset.Column) []float64 {
	out := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

func dateRange(col *dataset.Column) (DateRange, bool) {
	dr := DateRange{Column: col.Name}
	found := false
	for _, v := range col.Values {
		t, ok := v.Time()
		if !ok {
			continue
		}
		if !found || t.Before(dr.From) {
			dr.From = t
		}
		if !found || t.After(dr.To) {
			dr.To = t
		}
		found = true
	}
	return dr, found
}

// MemoryMB returns the memory estimate in mebibytes.
func (r *Report) MemoryMB() float64 {
	return float64(r.MemoryBytes) / 1024 / 1024
}

// Pair is one labelled value of the report.
type Pair struct {
	Key   string
	Value string
}

// Pairs flattens the report into ordered key/value rows for tabular export.
func (r *Report) Pairs() []Pair {
	out := []Pair{
		{"File", r.Name},
		{"Total Rows", fmt.Sprint(r.Rows)},
		{"Total Columns", fmt.Sprint(r.Columns)},
		{"Missing Values", fmt.Sprint(r.MissingCells)},
		{"Duplicate Rows", fmt.Sprint(r.DuplicateRows)},
		{"Memory Usage (MB)", fmt.Sprintf("%.2f", r.MemoryMB())},
		{"Date Columns", fmt.Sprint(r.DateColumns)},
		{"Numeric Columns", fmt.Sprint(r.NumericColumns)},
		{"Categorical Columns", fmt.Sprint(r.CategoricalColumns)},
		{"Other Columns", fmt.Sprint(r.OtherColumns)},
		{"Completeness (%)", fmt.Sprintf("%.1f", r.Quality.Completeness)},
		{"Uniqueness (%)", fmt.Sprintf("%.1f", r.Quality.Uniqueness)},
		{"Consistency (%)", fmt.Sprintf("%.1f", r.Quality.Consistency)},
	}
	if r.DateRange != nil {
		out = append(out,
			Pair{"Date Range From", dataset.FormatTime(r.DateRange.From)},
			Pair{"Date Range To", dataset.FormatTime(r.DateRange.To)},
			Pair{"Date Range Days", fmt.Sprint(r.DateRange.Days())},
		)
	}
	for _, n := range r.Numeric {
		p := n.Column + " "
		out = append(out,
			Pair{p + "Mean", n.Mean.Format(2)},
			Pair{p + "Median", n.Median.Format(2)},
			Pair{p + "Std", n.Std.Format(2)},
			Pair{p + "Min", n.Min.Format(2)},
			Pair{p + "Max", n.Max.Format(2)},
			Pair{p + "Skew", n.Skew.Format(3)},
		)
	}
	return out
}

// Markdown renders the report as sectioned plain text.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d (date %d, numeric %d, categorical %d, other %d)\n",
		r.Columns, r.DateColumns, r.NumericColumns, r.CategoricalColumns, r.OtherColumns))
	b.WriteString(fmt.Sprintf("Missing values: %d\n", r.MissingCells))
	b.WriteString(fmt.Sprintf("Duplicate rows: %d\n", r.DuplicateRows))
	b.WriteString(fmt.Sprintf("Memory: %.2f MB\n", r.MemoryMB()))
	if r.DateRange != nil {
		b.WriteString(fmt.Sprintf("Date range (%s): %s to %s (%d days)\n", safeName(r.DateRange.Column),
			dataset.FormatTime(r.DateRange.From), dataset.FormatTime(r.DateRange.To), r.DateRange.Days()))
	}

	b.WriteString("\n[DATA QUALITY]\n")
	b.WriteString(fmt.Sprintf("Completeness: %.1f%%\n", r.Quality.Completeness))
	b.WriteString(fmt.Sprintf("Uniqueness: %.1f%%\n", r.Quality.Uniqueness))
	b.WriteString(fmt.Sprintf("Consistency: %.1f%%\n", r.Quality.Consistency))

	if len(r.Numeric) > 0 {
		b.WriteString("\n[NUMERIC STATISTICS]\n")
		for _, n := range r.Numeric {
			b.WriteString(fmt.Sprintf("- %s (n=%d): mean %s, median %s, std %s, min %s, max %s, skew %s\n",
				safeName(n.Column), n.Count, n.Mean.Format(2), n.Median.Format(2), n.Std.Format(2),
				n.Min.Format(2), n.Max.Format(2), n.Skew.Format(3)))
		}
	}

	var missing []ColumnMissing
	for _, m := range r.Missing {
		if m.Count > 0 {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		b.WriteString("\n[MISSING VALUES]\n")
		for _, m := range missing {
			b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", safeName(m.Column), m.Count, m.Percent))
		}
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- " + n + "\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

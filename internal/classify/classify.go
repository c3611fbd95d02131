// Package classify assigns each column exactly one semantic tag.
package classify

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/araddon/dateparse"
)

// Tag is the semantic type of a column.
type Tag string

const (
	Date        Tag = "Date"
	Numeric     Tag = "Numeric"
	Categorical Tag = "Categorical"
	// Other holds columns that are neither dates, numbers nor text, such as
	// boolean flags.
	Other Tag = "Other"
)

// Tags lists every tag in report order.
var Tags = []Tag{Date, Numeric, Categorical, Other}

// DefaultDateKeywords trigger the lenient date pass when found in a column
// name (case-insensitive).
var DefaultDateKeywords = []string{
	"date", "time", "day", "month", "year",
	"tanggal", "waktu", "bulan", "tahun",
	"fecha", "datum", "jour",
	"日期", "时间",
}

// DefaultLayouts are tried in order. The first layout that parses every
// value of a column wins the strict pass.
var DefaultLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2 Jan 2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2006",
	"2006-01",
	"15:04:05",
	"15:04",
}

// Options controls classification.
type Options struct {
	DateKeywords []string
	Layouts      []string
}

// DefaultOptions returns the default keywords and layouts.
func DefaultOptions() Options {
	return Options{DateKeywords: DefaultDateKeywords, Layouts: DefaultLayouts}
}

// Decision records why a column received its tag.
type Decision struct {
	Column string `json:"column"`
	Tag    Tag    `json:"tag"`
	Reason string `json:"reason"`
	// Layout is the layout that parsed every value in the strict pass.
	Layout string `json:"layout,omitempty"`
	// Lenient is set when the date keyword rule decided the tag.
	Lenient bool `json:"lenient,omitempty"`
	// Fallback is set when inspection failed and the coarse check decided.
	Fallback bool `json:"fallback,omitempty"`
}

// Classification maps every column of a dataset to one tag.
type Classification struct {
	decisions []Decision
	index     map[string]int
	layouts   []string
}

// inspect is swapped in tests to exercise the fallback path.
var inspect = decide

// Classify tags every column of ds. It never fails: a column whose
// inspection fails gets a coarse tag with Fallback set.
func Classify(ds *dataset.Dataset, opt Options) *Classification {
	if len(opt.Layouts) == 0 {
		opt.Layouts = DefaultLayouts
	}
	cols := ds.Columns()
	c := &Classification{
		decisions: make([]Decision, 0, len(cols)),
		index:     make(map[string]int, len(cols)),
		layouts:   opt.Layouts,
	}
	for j := range cols {
		d := classifyColumn(&cols[j], opt)
		c.index[d.Column] = len(c.decisions)
		c.decisions = append(c.decisions, d)
	}
	return c
}

func classifyColumn(col *dataset.Column, opt Options) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = coarse(col, fmt.Sprintf("inspection failed: %v", r))
		}
	}()
	d, err := inspect(col, opt)
	if err != nil {
		return coarse(col, "inspection failed: "+err.Error())
	}
	return d
}

func coarse(col *dataset.Column, reason string) Decision {
	d := Decision{Column: col.Name, Tag: Categorical, Reason: reason, Fallback: true}
	if kind, mixed := col.StorageKind(); kind == dataset.KindNumber && !mixed {
		d.Tag = Numeric
	}
	return d
}

func decide(col *dataset.Column, opt Options) (Decision, error) {
	d := Decision{Column: col.Name}
	kind, mixed := col.StorageKind()
	if kind == dataset.KindNull {
		d.Tag, d.Reason = Categorical, "all values are missing"
		return d, nil
	}
	if layout, ok := strictLayout(col.Values, opt.Layouts); ok {
		d.Tag, d.Layout = Date, layout
		d.Reason = "every value parses as a date"
		if layout == "" {
			d.Reason = "stored as dates"
		}
		return d, nil
	}
	if kw, ok := matchKeyword(col.Name, opt.DateKeywords); ok {
		if n := countLenient(col.Values, opt.Layouts); n > 0 {
			d.Tag, d.Lenient = Date, true
			d.Reason = fmt.Sprintf("name contains %q and %d value(s) parse as dates", kw, n)
			return d, nil
		}
	}
	switch {
	case kind == dataset.KindNumber && !mixed:
		d.Tag, d.Reason = Numeric, "stored as numbers"
	case kind == dataset.KindBool && !mixed:
		d.Tag, d.Reason = Other, "stored as booleans"
	case mixed:
		d.Tag, d.Reason = Categorical, "mixed storage"
	default:
		d.Tag, d.Reason = Categorical, "stored as text"
	}
	return d, nil
}

// strictLayout returns the first layout that parses every non-null value.
// Columns holding only time cells match with an empty layout.
func strictLayout(vals []dataset.Value, layouts []string) (string, bool) {
	var texts []string
	for _, v := range vals {
		switch v.Kind() {
		case dataset.KindNull, dataset.KindTime:
		case dataset.KindText:
			s, _ := v.Text()
			texts = append(texts, strings.TrimSpace(s))
		default:
			return "", false
		}
	}
	if len(texts) == 0 {
		return "", true
	}
	for _, l := range layouts {
		ok := true
		for _, s := range texts {
			if _, err := time.Parse(l, s); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return l, true
		}
	}
	return "", false
}

func countLenient(vals []dataset.Value, layouts []string) int {
	n := 0
	for _, v := range vals {
		if _, ok := parseAny(v, layouts); ok {
			n++
		}
	}
	return n
}

// parseAny converts a cell with the first layout that accepts it, then falls
// back to free-form parsing. Bare digit strings are left alone so codes and
// years are not read as Unix timestamps.
func parseAny(v dataset.Value, layouts []string) (time.Time, bool) {
	switch v.Kind() {
	case dataset.KindTime:
		return v.Time()
	case dataset.KindText:
		s, _ := v.Text()
		s = strings.TrimSpace(s)
		for _, l := range layouts {
			if t, err := time.Parse(l, s); err == nil {
				return t, true
			}
		}
		if s == "" || allDigits(s) {
			return time.Time{}, false
		}
		if t, err := dateparse.ParseIn(s, time.UTC, dateparse.RetryAmbiguousDateWithSwap(true)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func matchKeyword(name string, keywords []string) (string, bool) {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

// Tag returns the tag of a column.
func (c *Classification) Tag(name string) (Tag, bool) {
	i, ok := c.index[name]
	if !ok {
		return "", false
	}
	return c.decisions[i].Tag, true
}

// Decision returns the decision for a column.
func (c *Classification) Decision(name string) (Decision, bool) {
	i, ok := c.index[name]
	if !ok {
		return Decision{}, false
	}
	return c.decisions[i], true
}

// Columns returns the columns carrying tag, in dataset order.
func (c *Classification) Columns(tag Tag) []string {
	var out []string
	for _, d := range c.decisions {
		if d.Tag == tag {
			out = append(out, d.Column)
		}
	}
	return out
}

// Decisions returns a copy of every decision in dataset order.
func (c *Classification) Decisions() []Decision {
	out := make([]Decision, len(c.decisions))
	copy(out, c.decisions)
	return out
}

// Counts returns the number of columns per tag.
func (c *Classification) Counts() map[Tag]int {
	out := make(map[Tag]int, len(Tags))
	for _, t := range Tags {
		out[t] = 0
	}
	for _, d := range c.decisions {
		out[d.Tag]++
	}
	return out
}

// Apply returns a copy of ds where Date columns hold time cells. Values that
// do not parse become null. Other columns are untouched.
func (c *Classification) Apply(ds *dataset.Dataset) (*dataset.Dataset, error) {
	src := ds.Columns()
	cols := make([]dataset.Column, len(src))
	for j, col := range src {
		cols[j] = col
		d, ok := c.Decision(col.Name)
		if !ok || d.Tag != Date {
			continue
		}
		layouts := c.layouts
		if d.Layout != "" {
			layouts = []string{d.Layout}
		}
		vals := make([]dataset.Value, len(col.Values))
		for i, v := range col.Values {
			if t, ok := parseAny(v, layouts); ok {
				vals[i] = dataset.Time(t)
			} else {
				vals[i] = dataset.Null()
			}
		}
		cols[j] = dataset.Column{Name: col.Name, Values: vals}
	}
	out, err := ds.WithColumns(cols)
	if err != nil {
		return nil, fmt.Errorf("apply classification: %w", err)
	}
	return out, nil
}

// Package views computes chart-ready aggregations over a dataset. Every
// function is pure and expects an already filtered dataset.
package views

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/KaramelBytes/sheetscope-cli/internal/stats"
)

// ErrUnknownColumn is returned when a view names a column the dataset lacks.
var ErrUnknownColumn = errors.New("unknown column")

// DefaultTopN is the number of categories TopCategories keeps by default.
const DefaultTopN = 10

func lookup(ds *dataset.Dataset, name string) (*dataset.Column, error) {
	c, ok := ds.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return c, nil
}

// Point is one date group of a time series. Sums align with
// Series.ValueColumns.
type Point struct {
	Date time.Time `json:"date"`
	Sums []float64 `json:"sums"`
}

// Series is the per-date sum of one or more value columns.
type Series struct {
	DateColumn   string   `json:"date_column"`
	ValueColumns []string `json:"value_columns"`
	Points       []Point  `json:"points"`
}

// TimeSeries groups rows by the exact time value of dateCol and sums each
// value column. Rows without a time value are skipped; null or non-numeric
// values add nothing. Points are in ascending date order.
func TimeSeries(ds *dataset.Dataset, dateCol string, valueCols ...string) (*Series, error) {
	dc, err := lookup(ds, dateCol)
	if err != nil {
		return nil, err
	}
	vcs := make([]*dataset.Column, len(valueCols))
	for k, name := range valueCols {
		if vcs[k], err = lookup(ds, name); err != nil {
			return nil, err
		}
	}

	groups := make(map[string]*Point)
	for i, v := range dc.Values {
		t, ok := v.Time()
		if !ok {
			continue
		}
		key := v.Key()
		p := groups[key]
		if p == nil {
			p = &Point{Date: t, Sums: make([]float64, len(vcs))}
			groups[key] = p
		}
		for k, c := range vcs {
			if f, ok := c.Values[i].Float(); ok {
				p.Sums[k] += f
			}
		}
	}

	s := &Series{DateColumn: dateCol, ValueColumns: append([]string(nil), valueCols...), Points: make([]Point, 0, len(groups))}
	for _, p := range groups {
		s.Points = append(s.Points, *p)
	}
	sort.Slice(s.Points, func(a, b int) bool { return s.Points[a].Date.Before(s.Points[b].Date) })
	return s, nil
}

// CategoryCount is one bar of a top-N chart.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// TopCategories counts the non-null values of col, most frequent first with
// ties in order of first appearance, and keeps n of them. n <= 0 keeps all.
func TopCategories(ds *dataset.Dataset, col string, n int) ([]CategoryCount, error) {
	c, err := lookup(ds, col)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]int)
	var out []CategoryCount
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		k := v.Key()
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, CategoryCount{Value: v.String()})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// CategoryMean is the mean of a numeric column within one category.
type CategoryMean struct {
	Category string      `json:"category"`
	Mean     stats.Float `json:"mean"`
	Count    int         `json:"count"`
}

// CategoryMeans averages numCol per value of catCol, highest mean first.
// Categories without numeric values have an undefined mean and sort last.
// Ties keep first-appearance order.
func CategoryMeans(ds *dataset.Dataset, catCol, numCol string) ([]CategoryMean, error) {
	cc, err := lookup(ds, catCol)
	if err != nil {
		return nil, err
	}
	nc, err := lookup(ds, numCol)
	if err != nil {
		return nil, err
	}
	type acc struct {
		name string
		w    stats.Welford
	}
	idx := make(map[string]int)
	var groups []*acc
	for i, v := range cc.Values {
		if v.IsNull() {
			continue
		}
		k := v.Key()
		g, ok := idx[k]
		if !ok {
			g = len(groups)
			idx[k] = g
			groups = append(groups, &acc{name: v.String()})
		}
		if f, ok := nc.Values[i].Float(); ok {
			groups[g].w.Add(f)
		}
	}
	out := make([]CategoryMean, len(groups))
	for i, g := range groups {
		out[i] = CategoryMean{Category: g.name, Mean: stats.Float(g.w.Mean()), Count: g.w.N()}
	}
	sort.SliceStable(out, func(a, b int) bool {
		da, db := out[a].Mean.Defined(), out[b].Mean.Defined()
		if da != db {
			return da
		}
		return da && out[a].Mean > out[b].Mean
	})
	return out, nil
}

// Matrix is a symmetric correlation matrix.
type Matrix struct {
	Columns []string        `json:"columns"`
	Values  [][]stats.Float `json:"values"`
}

// PairCorr is one off-diagonal entry of a Matrix.
type PairCorr struct {
	A string      `json:"a"`
	B string      `json:"b"`
	R stats.Float `json:"r"`
}

// Correlation computes pairwise-complete Pearson coefficients between cols.
// With no cols, every numeric column is used. The diagonal is 1, or NaN for a
// column without variance.
func Correlation(ds *dataset.Dataset, cols ...string) (*Matrix, error) {
	if len(cols) == 0 {
		for _, c := range ds.Columns() {
			if kind, mixed := c.StorageKind(); kind == dataset.KindNumber && !mixed {
				cols = append(cols, c.Name)
			}
		}
	}
	series := make([][]float64, len(cols))
	for k, name := range cols {
		c, err := lookup(ds, name)
		if err != nil {
			return nil, err
		}
		xs := make([]float64, len(c.Values))
		for i, v := range c.Values {
			if f, ok := v.Float(); ok {
				xs[i] = f
			} else {
				xs[i] = math.NaN()
			}
		}
		series[k] = xs
	}

	m := &Matrix{Columns: append([]string(nil), cols...), Values: make([][]stats.Float, len(cols))}
	for i := range m.Values {
		m.Values[i] = make([]stats.Float, len(cols))
	}
	for i := range cols {
		for j := 0; j <= i; j++ {
			r := stats.Float(stats.Pearson(series[i], series[j]))
			if i == j && r.Defined() {
				r = 1
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

// Top returns up to k off-diagonal pairs ordered by |r|, undefined last.
func (m *Matrix) Top(k int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		da, db := pairs[a].R.Defined(), pairs[b].R.Defined()
		if da != db {
			return da
		}
		return da && math.Abs(float64(pairs[a].R)) > math.Abs(float64(pairs[b].R))
	})
	if k > 0 && len(pairs) > k {
		pairs = pairs[:k]
	}
	return pairs
}

// Package stats holds the descriptive statistics shared by the summary and
// view engines. Undefined results are NaN.
package stats

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Float is a float64 that encodes NaN and Inf as JSON null and prints as
// "N/A".
type Float float64

// NaN returns an undefined Float.
func NaN() Float { return Float(math.NaN()) }

// Defined reports whether f is a finite number.
func (f Float) Defined() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (f Float) String() string {
	if !f.Defined() {
		return "N/A"
	}
	return strconv.FormatFloat(float64(f), 'f', -1, 64)
}

// Format renders f with the given number of decimals, or "N/A".
func (f Float) Format(decimals int) string {
	if !f.Defined() {
		return "N/A"
	}
	return strconv.FormatFloat(float64(f), 'f', decimals, 64)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = NaN()
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Describe is the numeric profile of one column.
type Describe struct {
	Count  int   `json:"count"`
	Mean   Float `json:"mean"`
	Median Float `json:"median"`
	Std    Float `json:"std"`
	Min    Float `json:"min"`
	Max    Float `json:"max"`
	Skew   Float `json:"skew"`
}

// Summarize computes the profile of vals. Std uses the n-1 denominator and
// needs two values; skew is the adjusted Fisher-Pearson coefficient and needs
// three values that are not all equal.
func Summarize(vals []float64) Describe {
	d := Describe{Count: len(vals), Mean: NaN(), Median: NaN(), Std: NaN(), Min: NaN(), Max: NaN(), Skew: NaN()}
	if len(vals) == 0 {
		return d
	}
	lo, hi := floats.Min(vals), floats.Max(vals)
	d.Mean = Float(stat.Mean(vals, nil))
	d.Min, d.Max = Float(lo), Float(hi)
	d.Median = Float(Median(vals))
	switch {
	case lo == hi && len(vals) > 1:
		d.Std = 0
	case len(vals) > 1:
		d.Std = Float(stat.StdDev(vals, nil))
	}
	d.Skew = Float(Skew(vals))
	return d
}

// Welford accumulates a running mean and variance.
type Welford struct {
	n    int
	mean float64
	m2   float64
}

// Add feeds one observation.
func (w *Welford) Add(x float64) {
	w.n++
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (x - w.mean)
}

// N returns the number of observations.
func (w *Welford) N() int { return w.n }

// Mean returns the running mean, NaN when empty.
func (w *Welford) Mean() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.mean
}

// Std returns the sample standard deviation, NaN below two observations.
func (w *Welford) Std() float64 {
	if w.n < 2 {
		return math.NaN()
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}

// Mean returns the arithmetic mean, NaN when vals is empty.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// Median returns the middle value without reordering vals.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return Quantile(cp, 0.5)
}

// Quantile linearly interpolates q in an ascending slice.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Skew returns the adjusted Fisher-Pearson sample skewness, NaN with fewer
// than three values or when every value is equal.
func Skew(vals []float64) float64 {
	if len(vals) < 3 || constant(vals) {
		return math.NaN()
	}
	return stat.Skew(vals, nil)
}

// Pearson computes the coefficient over aligned slices, skipping positions
// where either side is NaN. The result is clamped to [-1, 1] and is NaN with
// fewer than two complete pairs or when either side is constant.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		x = append(x, xs[i])
		y = append(y, ys[i])
	}
	if len(x) < 2 || constant(x) || constant(y) {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

func constant(vals []float64) bool {
	for _, v := range vals[1:] {
		if v != vals[0] {
			return false
		}
	}
	return true
}

// Percent returns 100*num/den, or 100 when den is zero.
func Percent(num, den int) float64 {
	if den == 0 {
		return 100
	}
	return 100 * float64(num) / float64(den)
}

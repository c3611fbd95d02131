// Package filter narrows a dataset to the rows matching a Spec.
package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
)

// ErrUnknownColumn is returned when a Spec names a column the dataset lacks.
var ErrUnknownColumn = errors.New("unknown column")

// Spec is the set of active predicates. The zero value keeps every row.
type Spec struct {
	// DateColumn with From and/or To keeps rows whose time value lies in the
	// inclusive range. A nil bound is open.
	DateColumn string     `json:"date_column,omitempty" yaml:"date_column,omitempty"`
	From       *time.Time `json:"from,omitempty" yaml:"from,omitempty"`
	To         *time.Time `json:"to,omitempty" yaml:"to,omitempty"`

	// CategoryColumn with a non-empty Categories set keeps rows whose value
	// is in the set. An empty set means no restriction.
	CategoryColumn string   `json:"category_column,omitempty" yaml:"category_column,omitempty"`
	Categories     []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// MissingOnly keeps rows with at least one null cell.
	MissingOnly bool `json:"missing_only,omitempty" yaml:"missing_only,omitempty"`
}

func (s Spec) dateActive() bool {
	return s.DateColumn != "" && (s.From != nil || s.To != nil)
}

func (s Spec) categoryActive() bool {
	return s.CategoryColumn != "" && len(s.Categories) > 0
}

// IsEmpty reports whether the spec restricts nothing.
func (s Spec) IsEmpty() bool {
	return !s.dateActive() && !s.categoryActive() && !s.MissingOnly
}

// String is a one-line description for logs and reports.
func (s Spec) String() string {
	if s.IsEmpty() {
		return "none"
	}
	var parts []string
	if s.dateActive() {
		from, to := "*", "*"
		if s.From != nil {
			from = dataset.FormatTime(*s.From)
		}
		if s.To != nil {
			to = dataset.FormatTime(*s.To)
		}
		parts = append(parts, fmt.Sprintf("%s in [%s, %s]", s.DateColumn, from, to))
	}
	if s.categoryActive() {
		parts = append(parts, fmt.Sprintf("%s in {%s}", s.CategoryColumn, strings.Join(s.Categories, ", ")))
	}
	if s.MissingOnly {
		parts = append(parts, "rows with missing values")
	}
	return strings.Join(parts, " AND ")
}

// Apply returns the rows of ds that satisfy every active predicate of s, in
// source order. ds is never modified; an empty spec returns ds itself.
func Apply(ds *dataset.Dataset, s Spec) (*dataset.Dataset, error) {
	if s.IsEmpty() {
		return ds, nil
	}
	var preds []func(i int) bool

	if s.dateActive() {
		j := ds.Index(s.DateColumn)
		if j < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, s.DateColumn)
		}
		from, to := s.From, s.To
		preds = append(preds, func(i int) bool {
			t, ok := ds.At(i, j).Time()
			if !ok {
				return false
			}
			if from != nil && t.Before(*from) {
				return false
			}
			if to != nil && t.After(*to) {
				return false
			}
			return true
		})
	}

	if s.categoryActive() {
		j := ds.Index(s.CategoryColumn)
		if j < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, s.CategoryColumn)
		}
		allowed := make(map[string]struct{}, len(s.Categories))
		for _, c := range s.Categories {
			allowed[c] = struct{}{}
		}
		preds = append(preds, func(i int) bool {
			v := ds.At(i, j)
			if v.IsNull() {
				return false
			}
			_, ok := allowed[v.String()]
			return ok
		})
	}

	if s.MissingOnly {
		preds = append(preds, ds.RowHasNull)
	}

	keep := make([]int, 0, ds.Rows())
rows:
	for i := 0; i < ds.Rows(); i++ {
		for _, p := range preds {
			if !p(i) {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	return ds.Select(keep), nil
}

package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRagged is returned when columns differ in length.
	ErrRagged = errors.New("columns have unequal lengths")
	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// Column is a named sequence of cells.
type Column struct {
	Name   string
	Values []Value
	// LowCardinality marks text columns whose distinct-value count fell under
	// the cleaner's threshold. It never changes the values themselves.
	LowCardinality bool
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Values) }

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// StorageKind returns the kind shared by every non-null cell. When more than
// one kind is present, it returns KindText and mixed=true. An all-null
// column reports KindNull.
func (c *Column) StorageKind() (kind Kind, mixed bool) {
	kind = KindNull
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		if kind == KindNull {
			kind = v.Kind()
			continue
		}
		if v.Kind() != kind {
			return KindText, true
		}
	}
	return kind, false
}

// Distinct counts distinct non-null values.
func (c *Column) Distinct() int {
	seen := make(map[string]struct{})
	for _, v := range c.Values {
		if v.IsNull() {
			continue
		}
		seen[v.key()] = struct{}{}
	}
	return len(seen)
}

// Dataset is an ordered set of equal-length columns. Datasets are treated as
// immutable: every operation returns a new Dataset.
type Dataset struct {
	Name    string
	columns []Column
	index   map[string]int
	rows    int
}

// New validates the columns and builds a Dataset. The column slice is
// copied; callers may reuse it.
func New(name string, cols []Column) (*Dataset, error) {
	d := &Dataset{Name: name, columns: make([]Column, len(cols)), index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if i == 0 {
			d.rows = len(c.Values)
		} else if len(c.Values) != d.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrRagged, c.Name, len(c.Values), d.rows)
		}
		if _, dup := d.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		d.index[c.Name] = i
		d.columns[i] = c
	}
	return d, nil
}

// MustNew is New that panics on invalid input. Intended for tests and
// literal fixtures.
func MustNew(name string, cols ...Column) *Dataset {
	d, err := New(name, cols)
	if err != nil {
		panic(err)
	}
	return d
}

// Rows returns the row count.
func (d *Dataset) Rows() int { return d.rows }

// Width returns the column count.
func (d *Dataset) Width() int { return len(d.columns) }

// Columns returns the columns in order. The slice must not be modified.
func (d *Dataset) Columns() []Column { return d.columns }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.columns))
	for i, c := range d.columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return &d.columns[i], true
}

// Index returns the position of a named column or -1.
func (d *Dataset) Index(name string) int {
	if i, ok := d.index[name]; ok {
		return i
	}
	return -1
}

// At returns the cell at row i of column j.
func (d *Dataset) At(i, j int) Value { return d.columns[j].Values[i] }

// Row copies row i.
func (d *Dataset) Row(i int) []Value {
	out := make([]Value, len(d.columns))
	for j := range d.columns {
		out[j] = d.columns[j].Values[i]
	}
	return out
}

// RowHasNull reports whether any cell in row i is null.
func (d *Dataset) RowHasNull(i int) bool {
	for j := range d.columns {
		if d.columns[j].Values[i].IsNull() {
			return true
		}
	}
	return false
}

// Select returns a new Dataset holding the given rows in the given order.
func (d *Dataset) Select(rows []int) *Dataset {
	cols := make([]Column, len(d.columns))
	for j, c := range d.columns {
		vals := make([]Value, len(rows))
		for k, i := range rows {
			vals[k] = c.Values[i]
		}
		cols[j] = Column{Name: c.Name, Values: vals, LowCardinality: c.LowCardinality}
	}
	out, _ := New(d.Name, cols)
	return out
}

// WithColumns returns a new Dataset with the same name and replaced columns.
func (d *Dataset) WithColumns(cols []Column) (*Dataset, error) {
	return New(d.Name, cols)
}

// MissingCount returns the number of null cells across all columns.
func (d *Dataset) MissingCount() int {
	n := 0
	for j := range d.columns {
		n += d.columns[j].NullCount()
	}
	return n
}

// DuplicateRows counts rows that repeat an earlier row value-for-value. The
// first occurrence of each distinct row is not counted.
func (d *Dataset) DuplicateRows() int {
	seen := make(map[string]struct{}, d.rows)
	dups := 0
	var b strings.Builder
	for i := 0; i < d.rows; i++ {
		b.Reset()
		for j := range d.columns {
			b.WriteString(d.columns[j].Values[i].key())
			b.WriteByte(0x1f)
		}
		k := b.String()
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}

// MemoryEstimate is a best-effort footprint of the in-memory representation
// in bytes.
func (d *Dataset) MemoryEstimate() int64 {
	var total int64
	for j := range d.columns {
		total += int64(len(d.columns[j].Name)) + 32
		for _, v := range d.columns[j].Values {
			total += v.size()
		}
	}
	return total
}

// Equal reports whether two datasets have the same columns and cells.
func (d *Dataset) Equal(o *Dataset) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.rows != o.rows || len(d.columns) != len(o.columns) {
		return false
	}
	for j := range d.columns {
		a, b := d.columns[j], o.columns[j]
		if a.Name != b.Name {
			return false
		}
		for i := range a.Values {
			if !a.Values[i].Equal(b.Values[i]) {
				return false
			}
		}
	}
	return true
}

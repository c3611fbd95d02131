package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the runtime type of a single cell.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindTime
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is one typed cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	f    float64
	t    time.Time
	b    bool
}

// Null returns the null cell.
func Null() Value { return Value{} }

// Text returns a text cell.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Number returns a numeric cell.
func Number(f float64) Value { return Value{kind: KindNumber, f: f} }

// Time returns a date/time cell.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the raw text of a text cell.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.s, true
}

// Float returns the number held by a numeric cell.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.f, true
}

// Time returns the instant held by a time cell.
func (v Value) Time() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.t, true
}

// Bool returns the flag held by a bool cell.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// String renders the cell for display and CSV. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindTime:
		return FormatTime(v.t)
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

// Equal reports value-wise equality. Two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.s == o.s
	case KindNumber:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindTime:
		return v.t.Equal(o.t)
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// key is an unambiguous encoding used for hashing rows and categories.
func (v Value) key() string {
	var b strings.Builder
	b.WriteByte(byte('0' + v.kind))
	switch v.kind {
	case KindText:
		b.WriteString(strconv.Itoa(len(v.s)))
		b.WriteByte(':')
		b.WriteString(v.s)
	case KindNumber:
		f := v.f
		if f == 0 {
			f = 0 // -0 and 0 are the same cell
		}
		b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case KindTime:
		b.WriteString(v.t.UTC().Format(time.RFC3339Nano))
	case KindBool:
		b.WriteString(strconv.FormatBool(v.b))
	}
	return b.String()
}

// Key exposes the hashing key so other packages can group by cell identity.
func (v Value) Key() string { return v.key() }

// size is a rough in-memory footprint of the cell in bytes.
func (v Value) size() int64 {
	const header = 64 // kind + string header + float + time + bool, padded
	return header + int64(len(v.s))
}

// FormatTime renders dates without a clock component as 2006-01-02 and
// everything else as RFC 3339.
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}

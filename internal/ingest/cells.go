package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
)

// build turns a header and raw rows into a Dataset. Short rows are padded
// with nulls; cells beyond the header are dropped.
func build(name string, header []string, rows [][]string, opt Options, typer func(row, col int, raw string) (dataset.Value, bool)) (*dataset.Dataset, error) {
	if len(header) == 0 {
		return nil, &Error{Source: name, Hint: "the first row must hold column headers", Err: ErrEmpty}
	}
	names := headerNames(header)
	nulls := nullSet(opt.NullTokens)
	cols := make([]dataset.Column, len(names))
	for j := range cols {
		cols[j] = dataset.Column{Name: names[j], Values: make([]dataset.Value, len(rows))}
	}
	for i, row := range rows {
		for j := range cols {
			raw := ""
			if j < len(row) {
				raw = row[j]
			}
			if typer != nil {
				if v, ok := typer(i, j, raw); ok {
					cols[j].Values[i] = v
					continue
				}
			}
			cols[j].Values[i] = parseCell(raw, nulls, opt)
		}
	}
	return dataset.New(name, cols)
}

// headerNames fills blank headers with Column_N and suffixes duplicates
// with .1, .2, ...
func headerNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func nullSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return set
}

// parseCell types a raw cell: blank and null tokens are null, numeric text is
// a number, everything else stays text (untrimmed; the cleaner trims).
func parseCell(raw string, nulls map[string]struct{}, opt Options) dataset.Value {
	v := strings.TrimSpace(raw)
	if v == "" {
		return dataset.Null()
	}
	if _, ok := nulls[strings.ToLower(v)]; ok {
		return dataset.Null()
	}
	if x, ok := parseNumeric(v, opt); ok {
		return dataset.Number(x)
	}
	return dataset.Text(raw)
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if strings.HasSuffix(raw, "%") {
		raw = strings.TrimSuffix(raw, "%")
	}
	// Normalize spaces
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" || !looksNumeric(raw) {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		// auto detect
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	// Remove thousands separators (common: ',', '.', space) if they differ from decimal
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
		raw = strings.ReplaceAll(raw, " ", "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// looksNumeric rejects text such as "Infinity", "NaN" or hex literals that
// strconv would otherwise accept.
func looksNumeric(s string) bool {
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == ',' || r == ' ':
		case (r == '-' || r == '+') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case (r == 'e' || r == 'E') && i > 0:
		default:
			return false
		}
	}
	return strings.ContainsAny(s, "0123456789")
}

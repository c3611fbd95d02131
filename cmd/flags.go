package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/filter"
	"github.com/KaramelBytes/sheetscope-cli/internal/ingest"
	"github.com/KaramelBytes/sheetscope-cli/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// inputFlags are the parsing overrides shared by every command that reads a
// spreadsheet.
type inputFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
}

func (f *inputFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	fs.StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	fs.StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	fs.StringVar(&f.sheetName, "sheet-name", "", "workbook: sheet name to load")
	fs.IntVar(&f.sheetIndex, "sheet-index", 1, "workbook: 1-based sheet index (used if --sheet-name not provided)")
}

func (f *inputFlags) apply(opt *ingest.Options) error {
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	if opt.DecimalSeparator != 0 && opt.DecimalSeparator == opt.ThousandsSeparator {
		if f.thousands != "" {
			return fmt.Errorf("--decimal and --thousands must differ")
		}
		// --decimal comma implies dot grouping, and the reverse.
		if opt.DecimalSeparator == ',' {
			opt.ThousandsSeparator = '.'
		} else {
			opt.ThousandsSeparator = ','
		}
	}
	opt.Sheet = f.sheetName
	opt.SheetIndex = f.sheetIndex
	return nil
}

// filterFlags describe a filter.Spec on the command line.
type filterFlags struct {
	dateCol     string
	from        string
	to          string
	categoryCol string
	categories  []string
	missingOnly bool
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.dateCol, "date-col", "", "date column for --from/--to")
	fs.StringVar(&f.from, "from", "", "keep rows on or after this date (YYYY-MM-DD or RFC 3339)")
	fs.StringVar(&f.to, "to", "", "keep rows on or before this date (YYYY-MM-DD or RFC 3339)")
	fs.StringVar(&f.categoryCol, "category-col", "", "categorical column for --category")
	fs.StringSliceVar(&f.categories, "category", nil, "keep rows whose category is one of these (repeatable)")
	fs.BoolVar(&f.missingOnly, "missing-only", false, "keep only rows with at least one missing value")
}

func (f *filterFlags) spec() (filter.Spec, error) {
	s := filter.Spec{
		DateColumn:     f.dateCol,
		CategoryColumn: f.categoryCol,
		Categories:     f.categories,
		MissingOnly:    f.missingOnly,
	}
	var err error
	if s.From, err = parseDate(f.from); err != nil {
		return s, fmt.Errorf("invalid --from: %w", err)
	}
	if s.To, err = parseDate(f.to); err != nil {
		return s, fmt.Errorf("invalid --to: %w", err)
	}
	if (s.From != nil || s.To != nil) && s.DateColumn == "" {
		return s, fmt.Errorf("--from/--to need --date-col")
	}
	if len(s.Categories) > 0 && s.CategoryColumn == "" {
		return s, fmt.Errorf("--category needs --category-col")
	}
	return s, nil
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, l := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(l, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%q is not YYYY-MM-DD or RFC 3339", s)
}

// loadState runs the pipeline over path and applies the filter flags.
func loadState(cmd *cobra.Command, path string, in *inputFlags, ff *filterFlags) (*session.State, error) {
	opt := pipelineOptions(currentConfig())
	if in != nil {
		if err := in.apply(&opt.Ingest); err != nil {
			return nil, err
		}
	}
	var spec filter.Spec
	if ff != nil {
		s, err := ff.spec()
		if err != nil {
			return nil, err
		}
		spec = s
	}
	ctx := commandContext(cmd)
	s := session.New(opt)
	st, err := s.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if spec.IsEmpty() {
		return st, nil
	}
	return s.SetFilter(ctx, spec)
}

package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
)

// DefaultMaxBytes is the upload size bound (200 MB).
const DefaultMaxBytes int64 = 200 << 20

var (
	// ErrUnsupported indicates a file format no loader accepts.
	ErrUnsupported = errors.New("unsupported spreadsheet format")
	// ErrTooLarge indicates the input exceeds Options.MaxBytes.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrEmpty indicates the selected sheet has no header row.
	ErrEmpty = errors.New("no header row found")
	// ErrSheetNotFound indicates the requested sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
)

// Error is an ingestion failure. Hint tells the user how to fix it.
type Error struct {
	Source string
	Hint   string
	Err    error
}

func (e *Error) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("ingest: %v", e.Err)
	}
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options controls how uploaded bytes become a Dataset.
type Options struct {
	// Sheet selects a workbook sheet by name (case-insensitive).
	Sheet string
	// SheetIndex is 1-based and used when Sheet is empty. 0 means the first sheet.
	SheetIndex int
	// Delimiter for CSV. If 0, sniffed from the header line.
	Delimiter rune
	// DecimalSeparator for numeric text. If 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// NullTokens are cell texts treated as missing (case-insensitive).
	NullTokens []string
	// MaxBytes bounds the input size; <= 0 means DefaultMaxBytes.
	MaxBytes int64
}

// DefaultNullTokens mirrors the values spreadsheet tools commonly emit for
// missing data.
var DefaultNullTokens = []string{"null", "nan", "n/a", "na", "#n/a", "none", "-"}

// DefaultOptions returns sensible defaults for business spreadsheets.
func DefaultOptions() Options {
	return Options{
		DecimalSeparator:   '.',
		ThousandsSeparator: ',',
		NullTokens:         DefaultNullTokens,
		MaxBytes:           DefaultMaxBytes,
	}
}

// Loader turns a single-sheet spreadsheet stream into a Dataset.
type Loader interface {
	CanLoad(filename string) bool
	Load(r io.ReadSeeker, name string, opt Options) (*dataset.Dataset, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

func init() {
	Register(xlsxLoader{})
	Register(xlsLoader{})
	Register(csvLoader{})
}

// Supported reports whether some loader accepts the file name.
func Supported(filename string) bool {
	return loaderFor(filename) != nil
}

func loaderFor(filename string) Loader {
	for _, l := range registry {
		if l.CanLoad(filename) {
			return l
		}
	}
	return nil
}

// LoadFile opens path and loads it with the loader matching its extension.
func LoadFile(path string, opt Options) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Source: filepath.Base(path), Hint: "check that the file exists and is readable", Err: err}
	}
	defer f.Close()
	return Load(f, filepath.Base(path), opt)
}

// Load reads r as the spreadsheet called name. Every failure is an *Error.
func Load(r io.ReadSeeker, name string, opt Options) (*dataset.Dataset, error) {
	l := loaderFor(name)
	if l == nil {
		return nil, &Error{Source: name, Hint: "upload an .xlsx, .xls or .csv file", Err: ErrUnsupported}
	}
	limit := opt.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, &Error{Source: name, Hint: "the upload could not be read; try again", Err: fmt.Errorf("seek: %w", err)}
	}
	if size > limit {
		return nil, &Error{
			Source: name,
			Hint:   "split the workbook or remove unused sheets before uploading",
			Err:    fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, size, limit),
		}
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, &Error{Source: name, Hint: "the upload could not be read; try again", Err: fmt.Errorf("seek: %w", err)}
	}
	ds, err := l.Load(r, name, opt)
	if err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			return nil, ie
		}
		return nil, &Error{Source: name, Hint: hintFor(name), Err: err}
	}
	return ds, nil
}

func hintFor(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xlsm"), strings.HasSuffix(lower, ".xls"):
		return "close the workbook in other programs and check that it is a valid Excel file"
	default:
		return "check the file format and delimiter"
	}
}

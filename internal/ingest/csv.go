package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvLoader) Load(r io.ReadSeeker, name string, opt Options) (*dataset.Dataset, error) {
	delim := opt.Delimiter
	if delim == 0 {
		d, err := sniffDelimiter(r, name)
		if err != nil {
			return nil, err
		}
		delim = d
	}
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.Comma = delim
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &Error{Source: name, Hint: "the first row must hold column headers", Err: ErrEmpty}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return build(name, header, rows, opt, nil)
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the header
// line, preferring tab for .tsv files. It rewinds r.
func sniffDelimiter(r io.ReadSeeker, name string) (rune, error) {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t', nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("sniff delimiter: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind: %w", err)
	}
	best, bestN := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best, nil
}

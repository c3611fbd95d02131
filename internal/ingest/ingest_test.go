package ingest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/sheetscope-cli/internal/dataset"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadCSVTypesCells(t *testing.T) {
	path := writeFile(t, "sales.csv", strings.Join([]string{
		"Date,Sales,Region,,Region",
		"2024-01-01,\"1,200.50\",North,x,a",
		"2024-01-02,N/A, South ,y,b",
		"2024-01-03,15%,East,z,c",
	}, "\n"))

	ds, err := LoadFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Name != "sales.csv" || ds.Rows() != 3 {
		t.Fatalf("name=%q rows=%d", ds.Name, ds.Rows())
	}
	wantNames := []string{"Date", "Sales", "Region", "Column_4", "Region.1"}
	got := ds.Names()
	for i := range wantNames {
		if got[i] != wantNames[i] {
			t.Fatalf("names = %#v, want %#v", got, wantNames)
		}
	}
	sales, _ := ds.Column("Sales")
	if f, ok := sales.Values[0].Float(); !ok || f != 1200.5 {
		t.Fatalf("sales[0] = %v", sales.Values[0])
	}
	if !sales.Values[1].IsNull() {
		t.Fatalf("N/A should be null, got %v", sales.Values[1])
	}
	if f, _ := sales.Values[2].Float(); f != 15 {
		t.Fatalf("percent = %v", f)
	}
	date, _ := ds.Column("Date")
	if s, ok := date.Values[0].Text(); !ok || s != "2024-01-01" {
		t.Fatalf("date cell should stay text, got %v", date.Values[0])
	}
	region, _ := ds.Column("Region")
	if s, _ := region.Values[1].Text(); s != " South " {
		t.Fatalf("ingest must not trim text, got %q", s)
	}
}

func TestLoadCSVSniffsSemicolon(t *testing.T) {
	path := writeFile(t, "eu.csv", "Group;Score\nA;10\nB;11\n")
	ds, err := LoadFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Width() != 2 {
		t.Fatalf("width = %d, want 2", ds.Width())
	}
}

func TestParseNumericLocales(t *testing.T) {
	cases := []struct {
		in       string
		dec, thu rune
		want     float64
		ok       bool
	}{
		{"1,234.5", '.', ',', 1234.5, true},
		{"1.234,5", ',', '.', 1234.5, true},
		{"1.000,0", 0, 0, 1000, true},
		{"-3e2", '.', ',', -300, true},
		{"2024-01-01", '.', ',', 0, false},
		{"Infinity", '.', ',', 0, false},
		{"abc", '.', ',', 0, false},
	}
	for _, tc := range cases {
		got, ok := parseNumeric(tc.in, Options{DecimalSeparator: tc.dec, ThousandsSeparator: tc.thu})
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("parseNumeric(%q) = (%v,%v), want (%v,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := f.NewSheet("Data"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	rows := [][]interface{}{
		{"Date", "Sales", "Active", "Region"},
		{"2024-01-01", 100, true, "North"},
		{"2024-01-02", 200, false, "South"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Data", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestLoadXLSXSheetSelection(t *testing.T) {
	path := writeWorkbook(t)

	opt := DefaultOptions()
	opt.Sheet = "data"
	ds, err := LoadFile(path, opt)
	if err != nil {
		t.Fatalf("LoadFile by name: %v", err)
	}
	if ds.Rows() != 2 || ds.Width() != 4 {
		t.Fatalf("rows=%d width=%d", ds.Rows(), ds.Width())
	}
	sales, _ := ds.Column("Sales")
	if f, ok := sales.Values[1].Float(); !ok || f != 200 {
		t.Fatalf("sales[1] = %v", sales.Values[1])
	}
	active, _ := ds.Column("Active")
	if b, ok := active.Values[0].Bool(); !ok || !b {
		t.Fatalf("active[0] = %v", active.Values[0])
	}

	opt = DefaultOptions()
	opt.SheetIndex = 2
	byIndex, err := LoadFile(path, opt)
	if err != nil {
		t.Fatalf("LoadFile by index: %v", err)
	}
	if !byIndex.Equal(ds) {
		t.Fatalf("index and name selection differ")
	}

	opt.Sheet = "Missing"
	_, err = LoadFile(path, opt)
	if !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("err = %v, want ErrSheetNotFound", err)
	}
}

func TestLoadXLSXReadsDateCellsAsTimes(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	custom := "dd/mm/yyyy"
	dmy, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
	if err != nil {
		t.Fatalf("style: %v", err)
	}
	pct, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		t.Fatalf("style: %v", err)
	}
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := [][]interface{}{
		{"Order", "Shipped", "Share"},
		{jan, 45292, 0.25},
		{jan.AddDate(0, 0, 31), 45323, 0.5},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SetCellStyle("Sheet1", "B2", "B3", dmy); err != nil {
		t.Fatalf("set style: %v", err)
	}
	if err := f.SetCellStyle("Sheet1", "C2", "C3", pct); err != nil {
		t.Fatalf("set style: %v", err)
	}
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	ds, err := LoadFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	order, _ := ds.Column("Order")
	got, ok := order.Values[0].Time()
	if !ok || !got.Equal(jan) {
		t.Fatalf("order[0] = %v, want %v", order.Values[0], jan)
	}
	if got, _ := order.Values[1].Time(); got.Month() != time.February {
		t.Fatalf("order[1] = %v", order.Values[1])
	}
	shipped, _ := ds.Column("Shipped")
	if got, ok := shipped.Values[0].Time(); !ok || !got.Equal(jan) {
		t.Fatalf("custom date format: shipped[0] = %v", shipped.Values[0])
	}
	share, _ := ds.Column("Share")
	if f, ok := share.Values[1].Float(); !ok || f != 0.5 {
		t.Fatalf("percent cells stay numbers: share[1] = %v", share.Values[1])
	}
}

func TestIsDateFormat(t *testing.T) {
	cases := map[string]bool{
		"yyyy-mm-dd":        true,
		"[$-409]mmm-yy":     true,
		"h:mm AM/PM":        true,
		"0.00%":             false,
		"#,##0":             false,
		`"day "0`:           false,
		`0\d`:               false,
		"[Red]0.00":         false,
		"0;[Red]dd/mm/yyyy": false,
	}
	for code, want := range cases {
		if got := isDateFormat(code); got != want {
			t.Errorf("isDateFormat(%q) = %v, want %v", code, got, want)
		}
	}
	for id, want := range map[int]bool{0: false, 4: false, 14: true, 22: true, 45: true, 49: false} {
		if got := isBuiltinDateFormat(id); got != want {
			t.Errorf("isBuiltinDateFormat(%d) = %v, want %v", id, got, want)
		}
	}
}

func TestLoadErrorsCarryHints(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("x")), "notes.docx", DefaultOptions())
	var ie *Error
	if !errors.As(err, &ie) || !errors.Is(err, ErrUnsupported) || ie.Hint == "" {
		t.Fatalf("unsupported: err = %v", err)
	}

	opt := DefaultOptions()
	opt.MaxBytes = 4
	_, err = Load(bytes.NewReader([]byte("a,b\n1,2\n")), "big.csv", opt)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("too large: err = %v", err)
	}

	_, err = Load(bytes.NewReader([]byte("not a zip")), "broken.xlsx", DefaultOptions())
	if !errors.As(err, &ie) || !strings.Contains(ie.Hint, "close the workbook") {
		t.Fatalf("corrupt workbook: err = %v", err)
	}

	_, err = Load(bytes.NewReader(nil), "empty.csv", DefaultOptions())
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty: err = %v", err)
	}
}

func TestBuildPadsShortRows(t *testing.T) {
	ds, err := build("pad", []string{"a", "b"}, [][]string{{"1"}, {"2", "x", "extra"}}, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if ds.Width() != 2 || !ds.At(0, 1).IsNull() {
		t.Fatalf("short row should pad with null")
	}
	if ds.At(1, 1).Kind() != dataset.KindText {
		t.Fatalf("b[1] kind = %v", ds.At(1, 1).Kind())
	}
}

// Package tabular reads and writes the uploaded row sets: CSV in, CSV or
// XLSX out. Input columns are arbitrary; output is strictly additive.
package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/charmap"
)

// Table is an in-memory tabular dataset. Rows are positional; the original
// row order is the row identity for the duration of one run.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, h := range t.Headers {
		if h == name {
			return i, true
		}
	}
	return 0, false
}

// AddColumn appends a new column filled with defaultValue and returns its
// index. Ragged rows are normalized to the prior header width first, so the
// new cell always lands at the returned index. Existing columns are never
// touched.
func (t *Table) AddColumn(name, defaultValue string) int {
	idx := len(t.Headers)
	t.Headers = append(t.Headers, name)
	for i, row := range t.Rows {
		for len(row) < idx {
			row = append(row, "")
		}
		if len(row) > idx {
			row = row[:idx]
		}
		t.Rows[i] = append(row, defaultValue)
	}
	return idx
}

// Cell returns the value at (row, col), or "" when the row is ragged.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Set writes a value at (row, col). Out-of-range writes are ignored.
func (t *Table) Set(row, col int, value string) {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return
	}
	t.Rows[row][col] = value
}

// ReadCSV parses CSV data. UTF-8 is preferred; input that is not valid UTF-8
// is re-decoded as Latin-1 so spreadsheet exports with legacy encodings still
// load. Ragged rows are padded to the header width.
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: read input")
	}

	if !utf8.Valid(data) {
		decoded, decErr := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if decErr != nil {
			return nil, eris.Wrap(decErr, "tabular: decode latin-1")
		}
		data = decoded
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "tabular: parse csv")
	}
	if len(records) == 0 {
		return nil, eris.New("tabular: empty csv")
	}

	t := &Table{Headers: records[0]}
	for _, rec := range records[1:] {
		row := make([]string, len(t.Headers))
		copy(row, rec)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadCSVFile reads a CSV file from disk.
func ReadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "tabular: open csv")
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes the table as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return eris.Wrap(err, "tabular: write header")
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "tabular: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "tabular: flush csv")
}

// WriteCSVFile writes the table to a CSV file.
func (t *Table) WriteCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "tabular: create csv")
	}
	defer f.Close()
	return t.WriteCSV(f)
}

// WriteXLSXFile writes the table to an XLSX workbook with a single sheet.
func (t *Table) WriteXLSXFile(path, sheetName string) error {
	if sheetName == "" {
		sheetName = "Results"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "tabular: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range t.Headers {
		header.AddCell().Value = h
	}
	for _, row := range t.Rows {
		xr := sheet.AddRow()
		for _, cell := range row {
			xr.AddCell().Value = cell
		}
	}

	return eris.Wrap(f.Save(path), "tabular: save xlsx")
}

// FromEntities flattens raw vendor records into a table over the union of
// their keys, for search and lookalike exports.
func FromEntities(entities []map[string]any, format func(any) string) *Table {
	seen := map[string]bool{}
	var headers []string
	for _, e := range entities {
		for k := range e {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)

	t := &Table{Headers: headers}
	for _, e := range entities {
		row := make([]string, len(headers))
		for i, h := range headers {
			if v, ok := e[h]; ok {
				row[i] = format(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

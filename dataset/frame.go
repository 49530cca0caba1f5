// Package dataset holds order records as an in-memory table of string cells.
//
// A Frame mirrors a CSV read with its first column as the row index: the
// header excludes the index column, every row keeps its index label, and cells
// stay as the raw strings from the file. Typed interpretation (numbers, dates,
// categories) happens in the features package.
package dataset

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	ssErrors "github.com/ezoic/superstore/pkg/errors"
)

// Frame is an immutable table of order records.
type Frame struct {
	header   []string
	colIndex map[string]int
	index    []string
	rows     [][]string
}

// NewFrame builds a Frame. Every row must have len(header) cells and index,
// when non-nil, must have one label per row. A nil index numbers rows from 0.
func NewFrame(header []string, index []string, rows [][]string) (*Frame, error) {
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		if _, dup := colIndex[name]; dup {
			return nil, ssErrors.NewValueError("dataset.NewFrame", "duplicate column "+name)
		}
		colIndex[name] = i
	}
	for _, row := range rows {
		if len(row) != len(header) {
			return nil, ssErrors.NewDimensionError("dataset.NewFrame", len(header), len(row), 1)
		}
	}
	if index == nil {
		index = make([]string, len(rows))
		for i := range index {
			index[i] = strconv.Itoa(i)
		}
	}
	if len(index) != len(rows) {
		return nil, ssErrors.NewDimensionError("dataset.NewFrame", len(rows), len(index), 0)
	}
	return &Frame{header: header, colIndex: colIndex, index: index, rows: rows}, nil
}

// Shape returns (rows, columns), excluding the index column.
func (f *Frame) Shape() (int, int) {
	return len(f.rows), len(f.header)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.rows)
}

// Columns returns a copy of the header.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.header))
	copy(out, f.header)
	return out
}

// Has reports whether the frame has the named column.
func (f *Frame) Has(name string) bool {
	_, ok := f.colIndex[name]
	return ok
}

// Index returns a copy of the row index labels.
func (f *Frame) Index() []string {
	out := make([]string, len(f.index))
	copy(out, f.index)
	return out
}

// Column returns a copy of the named column's raw cells.
func (f *Frame) Column(name string) ([]string, error) {
	j, ok := f.colIndex[name]
	if !ok {
		return nil, ssErrors.NewColumnError("dataset.Column", name)
	}
	out := make([]string, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[j]
	}
	return out, nil
}

// Value returns the cell at (row, column) and whether it holds a value.
// Missing cells and unknown columns report false.
func (f *Frame) Value(row int, column string) (string, bool) {
	j, ok := f.colIndex[column]
	if !ok || row < 0 || row >= len(f.rows) {
		return "", false
	}
	v := f.rows[row][j]
	if IsMissing(v) {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Select projects the frame onto columns, in the given order.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	idx := make([]int, len(columns))
	for k, name := range columns {
		j, ok := f.colIndex[name]
		if !ok {
			return nil, ssErrors.NewColumnError("dataset.Select", name)
		}
		idx[k] = j
	}
	rows := make([][]string, len(f.rows))
	for i, row := range f.rows {
		projected := make([]string, len(idx))
		for k, j := range idx {
			projected[k] = row[j]
		}
		rows[i] = projected
	}
	header := make([]string, len(columns))
	copy(header, columns)
	return NewFrame(header, f.Index(), rows)
}

// Require returns a ColumnError for the first of columns the frame lacks.
func (f *Frame) Require(op string, columns ...string) error {
	for _, name := range columns {
		if !f.Has(name) {
			return ssErrors.NewColumnError(op, name)
		}
	}
	return nil
}

// missingTokens are the cell values read as missing, following the usual
// CSV reader conventions for NA markers.
var missingTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a raw cell denotes a missing value.
func IsMissing(cell string) bool {
	_, ok := missingTokens[strings.TrimSpace(cell)]
	return ok
}

// ParseAmount parses a numeric cell such as "12", "-3.50", "$1,024.00" or
// "1e3". It reports false for missing or malformed cells.
func ParseAmount(cell string) (float64, bool) {
	d, ok := ParseDecimal(cell)
	if !ok {
		return 0, false
	}
	f, _ := d.Float64()
	return f, true
}

// ParseDecimal is ParseAmount returning the exact decimal value.
func ParseDecimal(cell string) (decimal.Decimal, bool) {
	if IsMissing(cell) {
		return decimal.Zero, false
	}
	s := strings.TrimSpace(cell)
	s = strings.ReplaceAll(s, ",", "")
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimPrefix(s, "$")
	if strings.HasPrefix(s, "-$") {
		s = "-" + s[2:]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

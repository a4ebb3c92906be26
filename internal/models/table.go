package models

import (
	"fmt"
	"strconv"
)

// Row holds the cell values of one record, positionally aligned with Table.Columns.
type Row []any

// Table is an in-memory sheet: a header plus rows in file order.
type Table struct {
	Columns []string
	Rows    []Row
}

// Chunk is a contiguous slice of a processed table. Index starts at 1.
type Chunk struct {
	Index int
	Table *Table
}

// ColumnIndex returns the position of name in the header, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Cell returns the value at column i, or nil when the row is shorter than the header.
func (r Row) Cell(i int) any {
	if i < 0 || i >= len(r) {
		return nil
	}
	return r[i]
}

// CellText renders a cell value as text. Whole floats print without a
// fractional part so numeric phone cells compare equal to their typed form.
func CellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

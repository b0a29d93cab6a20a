package models

import "fmt"

// DefaultOrganism is the organism rows are restricted to when none is configured
const DefaultOrganism = "Homo sapiens"

// ColumnSpec describes how a delimited source names its columns.
// Exactly one of Headerless, HeaderRow or NoHeader.
type ColumnSpec interface {
	columnSpec()
}

// Headerless means the source has no header; Names are applied positionally
type Headerless struct {
	Names []string
}

// HeaderRow means the row at Index holds the column names. Rows above it are discarded.
type HeaderRow struct {
	Index int
}

// NoHeader means the source has no header and columns are named by position ("0", "1", ...)
type NoHeader struct{}

func (Headerless) columnSpec() {}
func (HeaderRow) columnSpec()  {}
func (NoHeader) columnSpec()   {}

// Table is an in-memory rectangular dataset with named columns and ordered rows
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

// NewTable creates a table. Every row must have len(columns) fields.
func NewTable(columns []string, rows [][]string) (*Table, error) {
	t := &Table{Columns: columns, Rows: rows}
	t.index = make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := t.index[c]; dup {
			return nil, fmt.Errorf("duplicate column name: %s", c)
		}
		t.index[c] = i
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i, len(row), len(columns))
		}
	}
	return t, nil
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// HasColumn reports whether the named column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the cell at row for the named column, or "" if the column does not exist
func (t *Table) Value(row int, column string) string {
	i, ok := t.index[column]
	if !ok {
		return ""
	}
	return t.Rows[row][i]
}

// Column returns a copy of every value in the named column
func (t *Table) Column(name string) ([]string, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, true
}

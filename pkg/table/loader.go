// Package table reads delimited knowledgebase exports into models.Table values.
//
// Column names come from a models.ColumnSpec: explicit positional names for
// headerless files, a header row at a given index, or positional defaults.
// Rows can be restricted to a single organism. Rows whose field count does not
// match the header fail the load with apperrors.ErrSchema; nothing is dropped
// silently.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// Options control how a table is read
type Options struct {
	Columns        models.ColumnSpec
	Delimiter      rune
	Rename         map[string]string
	OrganismColumn string // empty disables organism filtering
	Organism       string // defaults to models.DefaultOrganism
}

// OptionsFromSource builds loader options from a manifest table source
func OptionsFromSource(src *models.TableSource, organism string) Options {
	opts := Options{
		Columns:        src.ColumnSpec(),
		Rename:         src.Rename,
		OrganismColumn: src.OrganismColumn,
		Organism:       organism,
	}
	if src.Delimiter != "" {
		opts.Delimiter = []rune(src.Delimiter)[0]
	}
	return opts
}

// Load reads the file at path
func Load(path string, opts Options) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", apperrors.ErrIO, path, err)
	}
	defer f.Close()

	t, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read reads a delimited stream
func Read(r io.Reader, opts Options) (*models.Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrSchema, err)
		}
		return nil, fmt.Errorf("%w: failed to read table: %v", apperrors.ErrIO, err)
	}

	columns, rows, err := nameColumns(records, opts.Columns)
	if err != nil {
		return nil, err
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: data row %d has %d fields, expected %d", apperrors.ErrSchema, i+1, len(row), len(columns))
		}
	}

	columns, err = rename(columns, opts.Rename)
	if err != nil {
		return nil, err
	}

	t, err := models.NewTable(columns, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSchema, err)
	}

	if opts.OrganismColumn == "" {
		return t, nil
	}
	organism := opts.Organism
	if organism == "" {
		organism = models.DefaultOrganism
	}
	return FilterOrganism(t, opts.OrganismColumn, organism)
}

// FilterOrganism keeps only rows whose organism column equals organism
func FilterOrganism(t *models.Table, column, organism string) (*models.Table, error) {
	idx, ok := t.ColumnIndex(column)
	if !ok {
		return nil, fmt.Errorf("%w: organism column %q not found", apperrors.ErrSchema, column)
	}

	kept := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if row[idx] == organism {
			kept = append(kept, row)
		}
	}
	return models.NewTable(t.Columns, kept)
}

func nameColumns(records [][]string, spec models.ColumnSpec) ([]string, [][]string, error) {
	switch s := spec.(type) {
	case nil:
		return nameColumns(records, models.HeaderRow{Index: 0})
	case models.Headerless:
		if len(s.Names) == 0 {
			return nil, nil, fmt.Errorf("%w: headerless table needs at least one column name", apperrors.ErrSchema)
		}
		return append([]string(nil), s.Names...), records, nil
	case models.HeaderRow:
		if s.Index < 0 || s.Index >= len(records) {
			return nil, nil, fmt.Errorf("%w: header row %d out of range (%d rows)", apperrors.ErrSchema, s.Index, len(records))
		}
		return append([]string(nil), records[s.Index]...), records[s.Index+1:], nil
	case models.NoHeader:
		if len(records) == 0 {
			return []string{}, records, nil
		}
		names := make([]string, len(records[0]))
		for i := range names {
			names[i] = strconv.Itoa(i)
		}
		return names, records, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported column spec %T", apperrors.ErrSchema, spec)
	}
}

func rename(columns []string, mapping map[string]string) ([]string, error) {
	if len(mapping) == 0 {
		return columns, nil
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	out := append([]string(nil), columns...)
	for from, to := range mapping {
		i, ok := index[from]
		if !ok {
			return nil, fmt.Errorf("%w: cannot rename missing column %q", apperrors.ErrSchema, from)
		}
		out[i] = to
	}
	return out, nil
}

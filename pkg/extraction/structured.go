package extraction

import (
	"fmt"
	"strings"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// ParticipantColumns names the columns of a complex-participants table.
// Name and type columns are optional.
type ParticipantColumns struct {
	ComplexID   string
	ComplexName string
	EntityID    string
	EntityName  string
	EntityType  string
}

// PathwayColumns names the columns of a complex-pathway table.
// The pathway name column is optional.
type PathwayColumns struct {
	ComplexID   string
	PathwayID   string
	PathwayName string
}

// DefaultParticipantColumns are the column names used by the knowledgebase export
var DefaultParticipantColumns = ParticipantColumns{
	ComplexID:   "complex_id",
	ComplexName: "complex_name",
	EntityID:    "entity_id",
	EntityName:  "entity_name",
	EntityType:  "entity_type",
}

// DefaultPathwayColumns are the column names used by the knowledgebase export
var DefaultPathwayColumns = PathwayColumns{
	ComplexID:   "complex_id",
	PathwayID:   "pathway_id",
	PathwayName: "pathway_name",
}

type participantRow struct {
	complexID   string
	complexName string
	entityID    string
	entityName  string
	entityType  string
}

type pathwayRow struct {
	complexID   string
	pathwayID   string
	pathwayName string
}

// columnReader resolves column positions once per table
type columnReader struct {
	table *models.Table
	idx   map[string]int
}

func newColumnReader(t *models.Table, required, optional []string) (*columnReader, error) {
	r := &columnReader{table: t, idx: make(map[string]int)}
	for _, name := range required {
		i, ok := t.ColumnIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: required column %q not found", apperrors.ErrSchema, name)
		}
		r.idx[name] = i
	}
	for _, name := range optional {
		if name == "" {
			continue
		}
		if i, ok := t.ColumnIndex(name); ok {
			r.idx[name] = i
		}
	}
	return r, nil
}

func (r *columnReader) get(row int, column string) string {
	i, ok := r.idx[column]
	if !ok {
		return ""
	}
	return normalizeText(r.table.Rows[row][i])
}

func extractParticipants(t *models.Table, cols ParticipantColumns) ([]participantRow, error) {
	r, err := newColumnReader(t,
		[]string{cols.ComplexID, cols.EntityID},
		[]string{cols.ComplexName, cols.EntityName, cols.EntityType})
	if err != nil {
		return nil, fmt.Errorf("complex participants: %w", err)
	}

	rows := make([]participantRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := participantRow{
			complexID:   r.get(i, cols.ComplexID),
			complexName: r.get(i, cols.ComplexName),
			entityID:    r.get(i, cols.EntityID),
			entityName:  r.get(i, cols.EntityName),
			entityType:  r.get(i, cols.EntityType),
		}
		if row.complexID == "" || row.entityID == "" {
			return nil, fmt.Errorf("%w: complex participants row %d has an empty identifier", apperrors.ErrSchema, i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func extractPathways(t *models.Table, cols PathwayColumns) ([]pathwayRow, error) {
	r, err := newColumnReader(t,
		[]string{cols.ComplexID, cols.PathwayID},
		[]string{cols.PathwayName})
	if err != nil {
		return nil, fmt.Errorf("complex pathways: %w", err)
	}

	rows := make([]pathwayRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := pathwayRow{
			complexID:   r.get(i, cols.ComplexID),
			pathwayID:   r.get(i, cols.PathwayID),
			pathwayName: r.get(i, cols.PathwayName),
		}
		if row.complexID == "" || row.pathwayID == "" {
			return nil, fmt.Errorf("%w: complex pathways row %d has an empty identifier", apperrors.ErrSchema, i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// normalizeText trims surrounding whitespace. Identifiers are case sensitive.
func normalizeText(text string) string {
	return strings.TrimSpace(text)
}

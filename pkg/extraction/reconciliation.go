package extraction

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// Options control reconciliation
type Options struct {
	// Strict makes a pathway row that references an unknown complex a hard failure.
	// When false the row is logged, recorded in Reconciliation.Orphans and skipped.
	Strict       bool
	Participants ParticipantColumns
	Pathways     PathwayColumns
	Logger       *zap.Logger
}

// DefaultOptions returns strict options with the default column names
func DefaultOptions() Options {
	return Options{
		Strict:       true,
		Participants: DefaultParticipantColumns,
		Pathways:     DefaultPathwayColumns,
	}
}

// Reconcile merges a complex-participants table and a complex-pathway table
// into canonical entity, complex and pathway records.
//
// Rows are grouped by complex identifier in a single pass per table.
// Participants and pathways accumulate into sets, so duplicate rows never
// duplicate membership. When rows disagree on a display name the first
// non-empty name wins and the disagreement is recorded in NameConflicts.
// A participant whose identifier is itself a complex is linked as a nested
// complex rather than recorded as an entity.
func Reconcile(participants, pathways *models.Table, opts Options) (*models.Reconciliation, error) {
	if participants == nil || pathways == nil {
		return nil, fmt.Errorf("%w: both complex tables are required", apperrors.ErrSchema)
	}
	if opts.Participants == (ParticipantColumns{}) {
		opts.Participants = DefaultParticipantColumns
	}
	if opts.Pathways == (PathwayColumns{}) {
		opts.Pathways = DefaultPathwayColumns
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("reconciler")

	participantRows, err := extractParticipants(participants, opts.Participants)
	if err != nil {
		return nil, err
	}
	pathwayRows, err := extractPathways(pathways, opts.Pathways)
	if err != nil {
		return nil, err
	}

	// Complex identifiers are known up front so nested complexes can be told
	// apart from entities regardless of row order.
	complexIDs := models.NewStringSet()
	for _, row := range participantRows {
		complexIDs.Add(row.complexID)
	}

	r := &reconciler{result: models.NewReconciliation(), logger: logger}

	for i, row := range participantRows {
		c := r.complex(row.complexID, row.complexName, i)
		c.Participants.Add(row.entityID)

		if complexIDs.Has(row.entityID) {
			continue
		}
		e := r.entity(row.entityID, row.entityName, row.entityType, i)
		e.Complexes.Add(row.complexID)
	}

	for i, row := range pathwayRows {
		c, ok := r.result.Complexes[row.complexID]
		if !ok {
			if opts.Strict {
				return nil, fmt.Errorf("%w: complex pathways row %d references unknown complex %s (pathway %s)",
					apperrors.ErrReconciliation, i, row.complexID, row.pathwayID)
			}
			logger.Warn("Skipping pathway row for unknown complex",
				zap.Int("row", i),
				zap.String("complex_id", row.complexID),
				zap.String("pathway_id", row.pathwayID))
			r.result.Orphans = append(r.result.Orphans, models.OrphanReference{
				ComplexID: row.complexID,
				PathwayID: row.pathwayID,
				RowIndex:  i,
			})
			continue
		}

		c.Pathways.Add(row.pathwayID)
		p := r.pathway(row.pathwayID, row.pathwayName, i)
		p.Members.Add(row.complexID)
	}

	logger.Debug("Reconciled complex tables",
		zap.Int("entities", len(r.result.Entities)),
		zap.Int("complexes", len(r.result.Complexes)),
		zap.Int("pathways", len(r.result.Pathways)),
		zap.Int("name_conflicts", len(r.result.NameConflicts)),
		zap.Int("orphans", len(r.result.Orphans)))

	return r.result, nil
}

type reconciler struct {
	result *models.Reconciliation
	logger *zap.Logger
}

func (r *reconciler) complex(id, name string, row int) *models.Complex {
	c, ok := r.result.Complexes[id]
	if !ok {
		c = models.NewComplex(id, name)
		r.result.Complexes[id] = c
		r.result.ComplexOrder = append(r.result.ComplexOrder, id)
		return c
	}
	c.Name = r.resolveName(id, c.Name, name, "complex", row)
	return c
}

func (r *reconciler) entity(id, name, entityType string, row int) *models.Entity {
	e, ok := r.result.Entities[id]
	if !ok {
		e = models.NewEntity(id, name, entityType)
		r.result.Entities[id] = e
		r.result.EntityOrder = append(r.result.EntityOrder, id)
		return e
	}
	e.Name = r.resolveName(id, e.Name, name, "entity", row)
	if e.Type == "" {
		e.Type = entityType
	}
	return e
}

func (r *reconciler) pathway(id, name string, row int) *models.Pathway {
	p, ok := r.result.Pathways[id]
	if !ok {
		p = models.NewPathway(id, name)
		r.result.Pathways[id] = p
		r.result.PathwayOrder = append(r.result.PathwayOrder, id)
		return p
	}
	p.Name = r.resolveName(id, p.Name, name, "pathway", row)
	return p
}

// resolveName keeps the first non-empty name and records later disagreements
func (r *reconciler) resolveName(id, kept, candidate, source string, row int) string {
	if candidate == "" || candidate == kept {
		return kept
	}
	if kept == "" {
		return candidate
	}
	r.result.NameConflicts = append(r.result.NameConflicts, models.NameConflict{
		ID:       id,
		Kept:     kept,
		Ignored:  candidate,
		Source:   source,
		RowIndex: row,
	})
	r.logger.Debug("Ignoring conflicting display name",
		zap.String("id", id),
		zap.String("kept", kept),
		zap.String("ignored", candidate),
		zap.String("source", source))
	return kept
}

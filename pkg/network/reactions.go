package network

import (
	"fmt"
	"strings"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// ReactionColumns names the columns of a reaction-participants table
type ReactionColumns struct {
	ReactionID    string
	ReactionName  string
	ParticipantID string
	Role          string
}

// ReactionPathwayColumns names the columns of a reaction-pathway table
type ReactionPathwayColumns struct {
	ReactionID  string
	PathwayID   string
	PathwayName string
}

// DefaultReactionColumns are the column names used by the knowledgebase export
var DefaultReactionColumns = ReactionColumns{
	ReactionID:    "reaction_id",
	ReactionName:  "reaction_name",
	ParticipantID: "participant_id",
	Role:          "role",
}

// DefaultReactionPathwayColumns are the column names used by the knowledgebase export
var DefaultReactionPathwayColumns = ReactionPathwayColumns{
	ReactionID:  "reaction_id",
	PathwayID:   "pathway_id",
	PathwayName: "pathway_name",
}

var roleEdges = map[string]models.EdgeType{
	"input":     models.EdgeInput,
	"output":    models.EdgeOutput,
	"catalyst":  models.EdgeCatalyzes,
	"catalyzes": models.EdgeCatalyzes,
	"regulator": models.EdgeRegulates,
	"regulates": models.EdgeRegulates,
}

type reactionRow struct {
	reactionID    string
	reactionName  string
	participantID string
	edge          models.EdgeType
}

type reactionPathwayRow struct {
	reactionID  string
	pathwayID   string
	pathwayName string
}

func parseReactions(t *models.Table, cols ReactionColumns) ([]reactionRow, error) {
	if t == nil {
		return nil, nil
	}
	for _, c := range []string{cols.ReactionID, cols.ParticipantID, cols.Role} {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("%w: reaction participants: required column %q not found", apperrors.ErrSchema, c)
		}
	}

	rows := make([]reactionRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		role := strings.ToLower(strings.TrimSpace(t.Value(i, cols.Role)))
		edge, ok := roleEdges[role]
		if !ok {
			return nil, fmt.Errorf("%w: reaction participants row %d has unknown role %q", apperrors.ErrSchema, i, role)
		}
		row := reactionRow{
			reactionID:    strings.TrimSpace(t.Value(i, cols.ReactionID)),
			reactionName:  strings.TrimSpace(t.Value(i, cols.ReactionName)),
			participantID: strings.TrimSpace(t.Value(i, cols.ParticipantID)),
			edge:          edge,
		}
		if row.reactionID == "" || row.participantID == "" {
			return nil, fmt.Errorf("%w: reaction participants row %d has an empty identifier", apperrors.ErrSchema, i)
		}
		if row.reactionID == row.participantID {
			return nil, fmt.Errorf("%w: reaction participants row %d: reaction %s lists itself", apperrors.ErrSchema, i, row.reactionID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseReactionPathways(t *models.Table, cols ReactionPathwayColumns) ([]reactionPathwayRow, error) {
	if t == nil {
		return nil, nil
	}
	for _, c := range []string{cols.ReactionID, cols.PathwayID} {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("%w: reaction pathways: required column %q not found", apperrors.ErrSchema, c)
		}
	}

	rows := make([]reactionPathwayRow, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := reactionPathwayRow{
			reactionID:  strings.TrimSpace(t.Value(i, cols.ReactionID)),
			pathwayID:   strings.TrimSpace(t.Value(i, cols.PathwayID)),
			pathwayName: strings.TrimSpace(t.Value(i, cols.PathwayName)),
		}
		if row.reactionID == "" || row.pathwayID == "" {
			return nil, fmt.Errorf("%w: reaction pathways row %d has an empty identifier", apperrors.ErrSchema, i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Package network assembles reconciled records into the serializable graph.
//
// Construction runs in ordered passes:
//
//  1. every node referenced by any relationship is created (entities,
//     complexes, reactions, then participants only seen in reactions);
//  2. edges are attached, only between nodes created in pass 1;
//  3. process memberships are computed once: direct pathway links plus
//     memberships inherited through (possibly nested) complex containment.
//
// Node and edge order follow the reconciliation and table row order, and sets
// encode sorted, so identical inputs always encode to identical bytes.
package network

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

// Input is everything a build consumes. The reaction tables are optional.
type Input struct {
	Reconciliation       *models.Reconciliation
	ReactionParticipants *models.Table
	ReactionPathways     *models.Table
	Organism             string
	SourceVersion        string
}

// Builder builds networks
type Builder struct {
	logger          *zap.Logger
	strict          bool
	reactionColumns ReactionColumns
	pathwayColumns  ReactionPathwayColumns
}

// NewBuilder creates a builder. In strict mode a reaction-pathway row for an
// unknown reaction fails the build; otherwise it is logged and skipped.
func NewBuilder(logger *zap.Logger, strict bool) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		logger:          logger.Named("builder"),
		strict:          strict,
		reactionColumns: DefaultReactionColumns,
		pathwayColumns:  DefaultReactionPathwayColumns,
	}
}

// WithColumns overrides the reaction table column names
func (b *Builder) WithColumns(reactions ReactionColumns, pathways ReactionPathwayColumns) *Builder {
	b.reactionColumns = reactions
	b.pathwayColumns = pathways
	return b
}

// Build assembles a network. On error no network is returned.
// in.Reconciliation is only read.
func (b *Builder) Build(in Input) (*models.Network, error) {
	if in.Reconciliation == nil {
		return nil, fmt.Errorf("%w: reconciliation is required", apperrors.ErrSchema)
	}
	organism := in.Organism
	if organism == "" {
		organism = models.DefaultOrganism
	}

	reactions, err := parseReactions(in.ReactionParticipants, b.reactionColumns)
	if err != nil {
		return nil, err
	}
	reactionPathways, err := parseReactionPathways(in.ReactionPathways, b.pathwayColumns)
	if err != nil {
		return nil, err
	}

	n := models.NewNetwork(organism, in.SourceVersion)
	rec := in.Reconciliation

	if err := b.createNodes(n, rec, reactions); err != nil {
		return nil, err
	}
	if err := b.attachEdges(n, rec, reactions); err != nil {
		return nil, err
	}
	if err := b.assignProcesses(n, rec, reactionPathways); err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	b.logger.Info("Built network",
		zap.String("organism", organism),
		zap.String("source_version", in.SourceVersion),
		zap.Int("nodes", len(n.Nodes)),
		zap.Int("edges", len(n.Edges)),
		zap.Int("processes", len(n.Processes)))

	return n, nil
}

// createNodes is pass 1
func (b *Builder) createNodes(n *models.Network, rec *models.Reconciliation, reactions []reactionRow) error {
	for _, id := range rec.EntityOrder {
		e := rec.Entities[id]
		node := models.NewNode(e.ID, displayName(e.Name, e.ID), models.NodeTypeEntity)
		node.EntityType = e.Type
		n.AddNode(node)
	}

	for _, id := range rec.ComplexOrder {
		c := rec.Complexes[id]
		node := models.NewNode(c.ID, displayName(c.Name, c.ID), models.NodeTypeComplex)
		node.Members = models.NewStringSet()
		node.Members.Union(c.Participants)
		if err := addTyped(n, node); err != nil {
			return err
		}
	}

	for _, r := range reactions {
		node := models.NewNode(r.reactionID, displayName(r.reactionName, r.reactionID), models.NodeTypeReaction)
		if err := addTyped(n, node); err != nil {
			return err
		}
		if existing, _ := n.Node(r.reactionID); existing.Name == existing.ID && r.reactionName != "" {
			existing.Name = r.reactionName
		}
	}

	// Participants known only from reaction rows become entity nodes
	for _, r := range reactions {
		if _, ok := n.Node(r.participantID); ok {
			continue
		}
		n.AddNode(models.NewNode(r.participantID, r.participantID, models.NodeTypeEntity))
		b.logger.Debug("Created entity for reaction participant outside complex tables",
			zap.String("participant_id", r.participantID),
			zap.String("reaction_id", r.reactionID))
	}

	return nil
}

// attachEdges is pass 2; every endpoint already exists
func (b *Builder) attachEdges(n *models.Network, rec *models.Reconciliation, reactions []reactionRow) error {
	for _, id := range rec.ComplexOrder {
		for _, member := range rec.Complexes[id].Participants.Sorted() {
			if member == id {
				b.logger.Warn("Ignoring complex listed as its own participant", zap.String("complex_id", id))
				continue
			}
			if _, err := n.AddEdge(models.Edge{Source: member, Target: id, Type: models.EdgeComponentOf, Directed: true}); err != nil {
				return err
			}
		}
	}

	for _, r := range reactions {
		edge := models.Edge{Source: r.participantID, Target: r.reactionID, Type: r.edge, Directed: r.edge.IsDirected()}
		if r.edge == models.EdgeOutput {
			edge.Source, edge.Target = r.reactionID, r.participantID
		}
		if _, err := n.AddEdge(edge); err != nil {
			return err
		}

		participant, _ := n.Node(r.participantID)
		participant.Reactions.Add(r.reactionID)
	}

	return nil
}

// assignProcesses is pass 3: direct memberships, then the containment closure
func (b *Builder) assignProcesses(n *models.Network, rec *models.Reconciliation, reactionPathways []reactionPathwayRow) error {
	for _, id := range rec.PathwayOrder {
		p := rec.Pathways[id]
		n.Processes[id] = models.NewPathway(p.ID, p.Name)
	}

	for _, id := range rec.ComplexOrder {
		for _, pid := range rec.Complexes[id].Pathways.Sorted() {
			b.addMembership(n, id, pid)
		}
	}

	for i, row := range reactionPathways {
		node, ok := n.Node(row.reactionID)
		if !ok || node.Type != models.NodeTypeReaction {
			if b.strict {
				return fmt.Errorf("%w: reaction pathways row %d references unknown reaction %s",
					apperrors.ErrReconciliation, i, row.reactionID)
			}
			b.logger.Warn("Skipping pathway row for unknown reaction",
				zap.Int("row", i),
				zap.String("reaction_id", row.reactionID),
				zap.String("pathway_id", row.pathwayID))
			continue
		}
		p, ok := n.Processes[row.pathwayID]
		if !ok {
			p = models.NewPathway(row.pathwayID, row.pathwayName)
			n.Processes[row.pathwayID] = p
		} else if p.Name == "" {
			p.Name = row.pathwayName
		}
		b.addMembership(n, row.reactionID, row.pathwayID)
	}

	b.inheritThroughComplexes(n, rec)

	for _, p := range n.Processes {
		label := displayName(p.Name, p.ID)
		for id := range p.Members {
			n.Nodes[id].Processes.Add(label)
		}
	}
	return nil
}

// inheritThroughComplexes tags every node reachable from a complex through
// containment with that complex's pathways
func (b *Builder) inheritThroughComplexes(n *models.Network, rec *models.Reconciliation) {
	ids := make(map[string]int64, len(n.NodeOrder))
	for i, id := range n.NodeOrder {
		ids[id] = int64(i)
	}

	g := simple.NewDirectedGraph()
	for _, id := range n.NodeOrder {
		g.AddNode(simple.Node(ids[id]))
	}
	for _, cid := range rec.ComplexOrder {
		for member := range rec.Complexes[cid].Participants {
			if member == cid {
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(ids[cid]), simple.Node(ids[member])))
		}
	}

	inherited := 0
	for _, cid := range rec.ComplexOrder {
		pathways := rec.Complexes[cid].Pathways.Sorted()
		if len(pathways) == 0 {
			continue
		}
		walker := traverse.DepthFirst{
			Visit: func(v graph.Node) {
				member := n.NodeOrder[v.ID()]
				if member == cid {
					return
				}
				for _, pid := range pathways {
					if b.addMembership(n, member, pid) {
						inherited++
					}
				}
			},
		}
		walker.Walk(g, simple.Node(ids[cid]), nil)
	}

	b.logger.Debug("Inherited process memberships through complexes", zap.Int("memberships", inherited))
}

// addMembership records node id as a member of pathway pid and reports whether it was new.
// Node process labels are filled from the memberships once all passes are done.
func (b *Builder) addMembership(n *models.Network, id, pid string) bool {
	if _, ok := n.Node(id); !ok {
		return false
	}
	p := n.Processes[pid]
	if p == nil {
		p = models.NewPathway(pid, "")
		n.Processes[pid] = p
	}
	return p.Members.Add(id)
}

// addTyped adds node, failing if the identifier already names a node of another type
func addTyped(n *models.Network, node *models.Node) error {
	existing, created := n.AddNode(node)
	if !created && existing.Type != node.Type {
		return fmt.Errorf("%w: identifier %s is used for both a %s and a %s",
			apperrors.ErrReconciliation, node.ID, existing.Type, node.Type)
	}
	return nil
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}

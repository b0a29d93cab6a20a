package network

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/extraction"
	"github.com/mimir-aip/pathway-graph/pkg/models"
)

func table(t *testing.T, columns []string, rows ...[]string) *models.Table {
	t.Helper()
	tbl, err := models.NewTable(columns, rows)
	require.NoError(t, err)
	return tbl
}

func reconcile(t *testing.T) *models.Reconciliation {
	t.Helper()
	participants := table(t, []string{"complex_id", "complex_name", "entity_id", "entity_name", "entity_type"},
		[]string{"C1", "inner", "E1", "TP53", "protein"},
		[]string{"C1", "inner", "E2", "MDM2", "protein"},
		[]string{"C2", "outer", "C1", "", ""},
		[]string{"C2", "outer", "E3", "ATP", "small_molecule"},
	)
	pathways := table(t, []string{"complex_id", "pathway_id", "pathway_name"},
		[]string{"C2", "P1", "Signaling"},
		[]string{"C1", "P2", "DNA repair"},
	)
	rec, err := extraction.Reconcile(participants, pathways, extraction.DefaultOptions())
	require.NoError(t, err)
	return rec
}

func reactionTables(t *testing.T) (*models.Table, *models.Table) {
	reactions := table(t, []string{"reaction_id", "reaction_name", "participant_id", "role"},
		[]string{"R1", "phosphorylation", "E1", "input"},
		[]string{"R1", "phosphorylation", "E4", "output"},
		[]string{"R1", "phosphorylation", "C2", "catalyst"},
	)
	reactionPathways := table(t, []string{"reaction_id", "pathway_id", "pathway_name"},
		[]string{"R1", "P3", "Metabolism"},
	)
	return reactions, reactionPathways
}

func build(t *testing.T) *models.Network {
	t.Helper()
	reactions, reactionPathways := reactionTables(t)
	n, err := NewBuilder(zap.NewNop(), true).Build(Input{
		Reconciliation:       reconcile(t),
		ReactionParticipants: reactions,
		ReactionPathways:     reactionPathways,
		SourceVersion:        "86",
	})
	require.NoError(t, err)
	return n
}

func TestBuildNodesAndEdges(t *testing.T) {
	n := build(t)

	assert.Equal(t, []string{"E1", "E2", "E3", "C1", "C2", "R1", "E4"}, n.NodeOrder)
	assert.Equal(t, models.DefaultOrganism, n.Metadata.Organism)
	assert.Equal(t, 7, n.Metadata.NodeCount)

	assert.Equal(t, []models.Edge{
		{Source: "E1", Target: "C1", Type: models.EdgeComponentOf, Directed: true},
		{Source: "E2", Target: "C1", Type: models.EdgeComponentOf, Directed: true},
		{Source: "C1", Target: "C2", Type: models.EdgeComponentOf, Directed: true},
		{Source: "E3", Target: "C2", Type: models.EdgeComponentOf, Directed: true},
		{Source: "E1", Target: "R1", Type: models.EdgeInput, Directed: true},
		{Source: "R1", Target: "E4", Type: models.EdgeOutput, Directed: true},
		{Source: "C2", Target: "R1", Type: models.EdgeCatalyzes, Directed: true},
	}, n.Edges)

	e4, ok := n.Node("E4")
	require.True(t, ok)
	assert.Equal(t, models.NodeTypeEntity, e4.Type)

	c2, _ := n.Node("C2")
	assert.Equal(t, []string{"C1", "E3"}, c2.Members.Sorted())
	assert.Equal(t, []string{"R1"}, c2.Reactions.Sorted())

	e3, _ := n.Node("E3")
	assert.Equal(t, "ATP", e3.Name)
	assert.Equal(t, "small_molecule", e3.EntityType)
}

func TestBuildProcessClosure(t *testing.T) {
	n := build(t)

	processes := func(id string) []string {
		node, ok := n.Node(id)
		require.True(t, ok)
		return node.Processes.Sorted()
	}

	assert.Equal(t, []string{"Signaling"}, processes("C2"))
	assert.Equal(t, []string{"DNA repair", "Signaling"}, processes("C1"))
	assert.Equal(t, []string{"DNA repair", "Signaling"}, processes("E1"))
	assert.Equal(t, []string{"Signaling"}, processes("E3"))
	assert.Equal(t, []string{"Metabolism"}, processes("R1"))
	assert.Empty(t, processes("E4"))

	assert.Equal(t, []string{"C1", "C2", "E1", "E2", "E3"}, n.Processes["P1"].Members.Sorted())
	assert.Equal(t, []string{"R1"}, n.Processes["P3"].Members.Sorted())
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := Marshal(build(t))
	require.NoError(t, err)
	second, err := Marshal(build(t))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestBuildLeavesReconciliationUntouched(t *testing.T) {
	rec := reconcile(t)
	before, err := json.Marshal(rec)
	require.NoError(t, err)

	reactions, reactionPathways := reactionTables(t)
	in := Input{Reconciliation: rec, ReactionParticipants: reactions, ReactionPathways: reactionPathways}
	first, err := NewBuilder(zap.NewNop(), true).Build(in)
	require.NoError(t, err)
	second, err := NewBuilder(zap.NewNop(), true).Build(in)
	require.NoError(t, err)

	after, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))

	a, err := Marshal(first)
	require.NoError(t, err)
	b, err := Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestNetworkRoundTrip(t *testing.T) {
	n := build(t)
	v := 1.5
	e1, _ := n.Node("E1")
	e1.Expression["t0"] = &v
	e1.Expression["t1"] = nil
	e1.RGBA["t0"] = models.FloatRGBA{0.1, 0.2, 0.3, 1}
	e1.RGBAJS["t0"] = models.ByteRGBA{R: 25, G: 51, B: 76, A: 1}

	data, err := Marshal(n)
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, n.Metadata, decoded.Metadata)
	assert.Equal(t, n.NodeOrder, decoded.NodeOrder)
	assert.Equal(t, n.Edges, decoded.Edges)
	assert.Equal(t, n.Nodes, decoded.Nodes)
	assert.Equal(t, n.Processes, decoded.Processes)

	again, err := Marshal(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestBuildWithoutReactions(t *testing.T) {
	n, err := NewBuilder(nil, true).Build(Input{Reconciliation: reconcile(t)})
	require.NoError(t, err)
	assert.Len(t, n.Nodes, 5)
	assert.Len(t, n.Edges, 4)
}

func TestBuildErrors(t *testing.T) {
	t.Run("unknown reaction in pathway table under strict mode", func(t *testing.T) {
		reactions, _ := reactionTables(t)
		pathways := table(t, []string{"reaction_id", "pathway_id"}, []string{"R9", "P3"})

		_, err := NewBuilder(nil, true).Build(Input{Reconciliation: reconcile(t), ReactionParticipants: reactions, ReactionPathways: pathways})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrReconciliation)
	})

	t.Run("unknown reaction skipped when lenient", func(t *testing.T) {
		reactions, _ := reactionTables(t)
		pathways := table(t, []string{"reaction_id", "pathway_id"}, []string{"R9", "P3"})

		n, err := NewBuilder(nil, false).Build(Input{Reconciliation: reconcile(t), ReactionParticipants: reactions, ReactionPathways: pathways})
		require.NoError(t, err)
		_, ok := n.Processes["P3"]
		assert.False(t, ok)
	})

	t.Run("unknown role", func(t *testing.T) {
		reactions := table(t, []string{"reaction_id", "participant_id", "role"}, []string{"R1", "E1", "modifier"})

		_, err := NewBuilder(nil, true).Build(Input{Reconciliation: reconcile(t), ReactionParticipants: reactions})
		assert.ErrorIs(t, err, apperrors.ErrSchema)
	})

	t.Run("identifier reused across node types", func(t *testing.T) {
		reactions := table(t, []string{"reaction_id", "participant_id", "role"}, []string{"E1", "E2", "input"})

		_, err := NewBuilder(nil, true).Build(Input{Reconciliation: reconcile(t), ReactionParticipants: reactions})
		assert.ErrorIs(t, err, apperrors.ErrReconciliation)
	})

	t.Run("missing reconciliation", func(t *testing.T) {
		_, err := NewBuilder(nil, true).Build(Input{})
		assert.ErrorIs(t, err, apperrors.ErrSchema)
	})
}

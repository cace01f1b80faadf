package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNodeAssignsDistinctIDs(t *testing.T) {
	g := NewGraph()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		n := g.AddNode("grayscale", Position{X: float64(i), Y: 0})
		require.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
	}
	assert.Len(t, g.Nodes(), 200)
}

func TestAddNodeDefaults(t *testing.T) {
	g := NewGraph()
	n := g.AddNode("grayscale", Position{X: 10, Y: 20})
	assert.Equal(t, "grayscale", n.Type)
	assert.Equal(t, "grayscale", n.Data.Name)
	assert.Equal(t, Position{X: 10, Y: 20}, n.Position)
	assert.NotNil(t, n.Data.Parameters)
	assert.Empty(t, n.Data.Parameters)

	named := g.AddNode("grayscale", Position{}, WithDisplayName("Gray"))
	assert.Equal(t, "Gray", named.Data.Name)
}

func TestNodesKeepPlacementOrder(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})
	b := g.AddNode("b", Position{})
	c := g.AddNode("c", Position{})
	nodes := g.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{nodes[0].ID, nodes[1].ID, nodes[2].ID})
}

func TestAddEdgeRejectsSelfLoop(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})
	_, err := g.AddEdge(a.ID, a.ID)
	require.ErrorIs(t, err, ErrInvalidEdge)

	// Even for ids the graph has never seen.
	_, err = g.AddEdge("ghost", "ghost")
	require.ErrorIs(t, err, ErrInvalidEdge)
	assert.Empty(t, g.Edges())
}

func TestAddEdgeRejectsUnknownEndpoints(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})

	_, err := g.AddEdge("missing", a.ID)
	require.ErrorIs(t, err, ErrUnknownNode)
	_, err = g.AddEdge(a.ID, "missing")
	require.ErrorIs(t, err, ErrUnknownNode)
	assert.Empty(t, g.Edges())
}

func TestAddEdgeSuppressesDuplicates(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})
	b := g.AddNode("b", Position{})

	e, err := g.AddEdge(a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, OutputHandle, e.SourceHandle)
	assert.Equal(t, InputHandle, e.TargetHandle)

	_, err = g.AddEdge(a.ID, b.ID)
	require.ErrorIs(t, err, ErrInvalidEdge)
	assert.Len(t, g.Edges(), 1)

	// The reverse direction is a different ordered pair.
	_, err = g.AddEdge(b.ID, a.ID)
	require.NoError(t, err)
	assert.Len(t, g.Edges(), 2)
}

func TestAddEdgeAllowsFanIn(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})
	b := g.AddNode("b", Position{})
	c := g.AddNode("c", Position{})

	_, err := g.AddEdge(a.ID, b.ID)
	require.NoError(t, err)
	_, err = g.AddEdge(c.ID, b.ID)
	require.NoError(t, err)

	edges := g.Edges()
	require.Len(t, edges, 2)
	assert.Equal(t, b.ID, edges[0].Target)
	assert.Equal(t, b.ID, edges[1].Target)
}

func TestRemoveEdge(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})
	b := g.AddNode("b", Position{})
	e, err := g.AddEdge(a.ID, b.ID)
	require.NoError(t, err)

	assert.False(t, g.RemoveEdge("nope"))
	assert.Len(t, g.Edges(), 1)
	assert.True(t, g.RemoveEdge(e.ID))
	assert.Empty(t, g.Edges())
}

func TestRemoveNodeCascadesEdges(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})
	b := g.AddNode("b", Position{})
	c := g.AddNode("c", Position{})
	_, _ = g.AddEdge(a.ID, b.ID)
	_, _ = g.AddEdge(b.ID, c.ID)
	keep, _ := g.AddEdge(a.ID, c.ID)
	g.Select(b.ID)

	require.True(t, g.RemoveNode(b.ID))
	assert.Len(t, g.Nodes(), 2)
	assert.Equal(t, []Edge{keep}, g.Edges())
	assert.Empty(t, g.Selected())

	for _, e := range g.Edges() {
		_, okS := g.Node(e.Source)
		_, okT := g.Node(e.Target)
		assert.True(t, okS && okT, "dangling edge %s", e.ID)
	}
	assert.False(t, g.RemoveNode(b.ID))
}

func TestRemoveAllNodes(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})
	b := g.AddNode("b", Position{})
	_, _ = g.AddEdge(a.ID, b.ID)
	g.Select(a.ID)

	g.RemoveAllNodes()
	assert.Equal(t, []Node{}, g.Nodes())
	assert.Equal(t, []Edge{}, g.Edges())
	assert.Empty(t, g.Selected())

	// Clearing an empty graph is fine too.
	g.RemoveAllNodes()
	assert.Empty(t, g.Nodes())
}

func TestMoveNodeRecomputesDependentEdges(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{X: 0, Y: 0})
	b := g.AddNode("b", Position{X: 300, Y: 0})
	c := g.AddNode("c", Position{X: 600, Y: 0})
	ab, _ := g.AddEdge(a.ID, b.ID)
	_, _ = g.AddEdge(c.ID, a.ID)
	other, _ := g.AddEdge(b.ID, c.ID)

	paths, ok := g.MoveNode(a.ID, Position{X: 10, Y: 50})
	require.True(t, ok)
	require.Len(t, paths, 2)
	for _, p := range paths {
		assert.NotEqual(t, other.ID, p.EdgeID)
	}
	assert.Equal(t, ab.ID, paths[0].EdgeID)
	assert.Equal(t, Position{X: 160, Y: 100}, paths[0].Path.From)
	assert.Equal(t, Position{X: 300, Y: 50}, paths[0].Path.To)

	n, _ := g.Node(a.ID)
	assert.Equal(t, Position{X: 10, Y: 50}, n.Position)
}

func TestMoveUnknownNodeIsNoop(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{X: 1, Y: 1})
	_, ok := g.MoveNode("missing", Position{X: 5, Y: 5})
	assert.False(t, ok)
	n, _ := g.Node(a.ID)
	assert.Equal(t, Position{X: 1, Y: 1}, n.Position)
}

func TestSelectDoesNotValidate(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})

	g.Select("stale")
	assert.Equal(t, "stale", g.Selected())
	_, ok := g.SelectedNode()
	assert.False(t, ok)
	assert.Len(t, g.Nodes(), 1)

	g.Select(a.ID)
	n, ok := g.SelectedNode()
	require.True(t, ok)
	assert.Equal(t, a.ID, n.ID)

	g.Select("")
	_, ok = g.SelectedNode()
	assert.False(t, ok)
}

func TestNodeCopiesAreIsolated(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{})
	require.NoError(t, g.SetParameters(a.ID, Params{"k": 1.0}))

	n, _ := g.Node(a.ID)
	n.Data.Parameters["k"] = 2.0
	n.X = 99

	again, _ := g.Node(a.ID)
	assert.Equal(t, 1.0, again.Data.Parameters["k"])
	assert.Equal(t, 0.0, again.X)
}

func TestSetParametersUnknownNode(t *testing.T) {
	g := NewGraph()
	require.ErrorIs(t, g.SetParameters("missing", Params{}), ErrUnknownNode)
	require.ErrorIs(t, g.Rename("missing", "x"), ErrUnknownNode)
}

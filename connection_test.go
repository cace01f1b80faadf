package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoNodes(t *testing.T) (*Graph, Node, Node) {
	t.Helper()
	g := NewGraph()
	a := g.AddNode("a", Position{X: 0, Y: 0})
	b := g.AddNode("b", Position{X: 300, Y: 0})
	return g, a, b
}

func TestParsePortKind(t *testing.T) {
	k, err := ParsePortKind("output")
	require.NoError(t, err)
	assert.Equal(t, PortOutput, k)
	_, err = ParsePortKind("side")
	require.Error(t, err)
}

func TestConnectionCommitsOutputToInput(t *testing.T) {
	g, a, b := twoNodes(t)
	var s ConnectionSession

	require.NoError(t, s.Begin(PortRef{NodeID: a.ID, Kind: PortOutput}, Position{X: 150, Y: 50}))
	s.Move(Position{X: 250, Y: 60})
	assert.Empty(t, g.Edges(), "dragging must not touch the graph")

	res, e, err := s.Release(g, &PortRef{NodeID: b.ID, Kind: PortInput})
	require.NoError(t, err)
	assert.Equal(t, Committed, res)
	assert.Equal(t, a.ID, e.Source)
	assert.Equal(t, b.ID, e.Target)
	assert.False(t, s.Dragging())
	assert.Len(t, g.Edges(), 1)
}

func TestConnectionCancels(t *testing.T) {
	tests := []struct {
		name   string
		origin func(a, b Node) PortRef
		over   func(a, b Node) *PortRef
	}{
		{"released on empty canvas",
			func(a, b Node) PortRef { return PortRef{NodeID: a.ID, Kind: PortOutput} },
			func(a, b Node) *PortRef { return nil }},
		{"output to output",
			func(a, b Node) PortRef { return PortRef{NodeID: a.ID, Kind: PortOutput} },
			func(a, b Node) *PortRef { return &PortRef{NodeID: b.ID, Kind: PortOutput} }},
		{"started on an input",
			func(a, b Node) PortRef { return PortRef{NodeID: b.ID, Kind: PortInput} },
			func(a, b Node) *PortRef { return &PortRef{NodeID: a.ID, Kind: PortOutput} }},
		{"own input",
			func(a, b Node) PortRef { return PortRef{NodeID: a.ID, Kind: PortOutput} },
			func(a, b Node) *PortRef { return &PortRef{NodeID: a.ID, Kind: PortInput} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, a, b := twoNodes(t)
			var s ConnectionSession
			require.NoError(t, s.Begin(tt.origin(a, b), Position{}))

			res, _, err := s.Release(g, tt.over(a, b))
			require.NoError(t, err)
			assert.Equal(t, Cancelled, res)
			assert.False(t, s.Dragging())
			assert.Empty(t, g.Edges())
		})
	}
}

func TestConnectionRejectedDuplicate(t *testing.T) {
	g, a, b := twoNodes(t)
	_, err := g.AddEdge(a.ID, b.ID)
	require.NoError(t, err)

	var s ConnectionSession
	require.NoError(t, s.Begin(PortRef{NodeID: a.ID, Kind: PortOutput}, Position{}))
	res, _, err := s.Release(g, &PortRef{NodeID: b.ID, Kind: PortInput})
	require.ErrorIs(t, err, ErrInvalidEdge)
	assert.Equal(t, Rejected, res)
	assert.False(t, s.Dragging())
	assert.Len(t, g.Edges(), 1)
}

func TestConnectionPreviewAndCancel(t *testing.T) {
	g, a, _ := twoNodes(t)
	var s ConnectionSession

	_, ok := s.Preview(g)
	assert.False(t, ok)

	require.NoError(t, s.Begin(PortRef{NodeID: a.ID, Kind: PortOutput}, Position{X: 150, Y: 50}))
	require.ErrorIs(t, s.Begin(PortRef{NodeID: a.ID, Kind: PortOutput}, Position{}), ErrGestureActive)

	s.Move(Position{X: 250, Y: 90})
	p, ok := s.Preview(g)
	require.True(t, ok)
	assert.Equal(t, OutputPort(a), p.From)
	assert.Equal(t, Position{X: 250, Y: 90}, p.To)

	s.Cancel()
	assert.False(t, s.Dragging())
	_, ok = s.Preview(g)
	assert.False(t, ok)

	res, _, err := s.Release(g, nil)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, res)
}

func TestPreviewFromInputPort(t *testing.T) {
	g, _, b := twoNodes(t)
	var s ConnectionSession
	require.NoError(t, s.Begin(PortRef{NodeID: b.ID, Kind: PortInput}, Position{}))
	p, ok := s.Preview(g)
	require.True(t, ok)
	assert.Equal(t, InputPort(b), p.From)
}

func TestNodeDragKeepsGrabOffset(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("a", Position{X: 100, Y: 100})
	var d NodeDrag

	require.NoError(t, d.Begin(g, a.ID, Position{X: 120, Y: 110}))
	require.ErrorIs(t, d.Begin(g, a.ID, Position{}), ErrGestureActive)

	_, ok := d.Move(g, Position{X: 220, Y: 160})
	require.True(t, ok)
	n, _ := g.Node(a.ID)
	assert.Equal(t, Position{X: 200, Y: 150}, n.Position)

	d.End()
	assert.False(t, d.Dragging())
	_, ok = d.Move(g, Position{X: 0, Y: 0})
	assert.False(t, ok)
	n, _ = g.Node(a.ID)
	assert.Equal(t, Position{X: 200, Y: 150}, n.Position)
}

func TestNodeDragUnknownNode(t *testing.T) {
	var d NodeDrag
	require.ErrorIs(t, d.Begin(NewGraph(), "missing", Position{}), ErrUnknownNode)
	assert.False(t, d.Dragging())
}

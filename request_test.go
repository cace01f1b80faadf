package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPreconditions(t *testing.T) {
	g := NewGraph()

	_, err := Build(g, "")
	require.ErrorIs(t, err, ErrMissingInput, "missing input is reported before an empty graph")

	_, err = Build(g, "data:image/png;base64,AAAA")
	require.ErrorIs(t, err, ErrEmptyGraph)

	g.AddNode("grayscale", Position{})
	_, err = Build(g, "")
	require.ErrorIs(t, err, ErrMissingInput)
}

func TestBuildSerializesGraph(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("grayscale", Position{X: 1, Y: 2})
	b := g.AddNode("roi_extraction", Position{X: 3, Y: 4})
	require.NoError(t, g.SetParameters(b.ID, RegionParams(PixelRect{X: 10, Y: 10, Width: 50, Height: 50})))
	_, err := g.AddEdge(a.ID, b.ID)
	require.NoError(t, err)

	req, err := Build(g, "http://host/uploads/in.png")
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var wire struct {
		Nodes []struct {
			ID   string  `json:"id"`
			Type string  `json:"type"`
			X    float64 `json:"x"`
			Y    float64 `json:"y"`
			Data struct {
				Name       string         `json:"name"`
				Parameters map[string]any `json:"parameters"`
			} `json:"data"`
		} `json:"nodes"`
		Edges []struct {
			Source       string `json:"source"`
			Target       string `json:"target"`
			SourceHandle string `json:"sourceHandle"`
			TargetHandle string `json:"targetHandle"`
		} `json:"edges"`
		InputImage string `json:"inputImage"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))

	require.Len(t, wire.Nodes, 2)
	assert.Equal(t, a.ID, wire.Nodes[0].ID)
	assert.Equal(t, 3.0, wire.Nodes[1].X)
	assert.Equal(t, map[string]any{"x": 10.0, "y": 10.0, "width": 50.0, "height": 50.0}, wire.Nodes[1].Data.Parameters)
	require.Len(t, wire.Edges, 1)
	assert.Equal(t, "output", wire.Edges[0].SourceHandle)
	assert.Equal(t, "input", wire.Edges[0].TargetHandle)
	assert.Equal(t, "http://host/uploads/in.png", wire.InputImage)
}

func TestInterpret(t *testing.T) {
	assert.Equal(t, Outcome{Success: true, Result: "r.png"}, Interpret(Response{Success: true, Result: "r.png"}))
	assert.Equal(t, Outcome{Message: "boom"}, Interpret(Response{Error: "boom"}))
	assert.Equal(t, Outcome{Message: DefaultFailureMessage}, Interpret(Response{}))
}

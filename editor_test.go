package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *Catalog {
	return NewCatalog([]Algorithm{
		{ID: "grayscale", Name: "Grayscale"},
		thresholdAlgorithm(),
		{ID: RegionAlgorithm, Name: "ROI extraction"},
	})
}

type fakeExecutor struct {
	resp    Response
	err     error
	got     []Request
	started chan struct{}
	release chan struct{}
}

func (f *fakeExecutor) Execute(ctx context.Context, req Request) (Response, error) {
	f.got = append(f.got, req)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}
	return f.resp, f.err
}

func TestEditorGrayscaleThenRegion(t *testing.T) {
	e := NewEditor(testCatalog())
	e.SetInput("data:image/png;base64,AAAA", Size{Width: 1000, Height: 500})

	gray, err := e.Drop("grayscale", Position{X: 175, Y: 150})
	require.NoError(t, err)
	assert.Equal(t, Position{X: 100, Y: 100}, gray.Position)
	assert.Equal(t, "Grayscale", gray.Data.Name)

	roi, err := e.Drop(RegionAlgorithm, Position{X: 475, Y: 150})
	require.NoError(t, err)

	require.NoError(t, e.BeginConnection(PortRef{NodeID: gray.ID, Kind: PortOutput}, OutputPort(gray)))
	_, ok := e.MoveConnection(Position{X: 390, Y: 140})
	require.True(t, ok)
	res, edge := e.ReleaseConnection(&PortRef{NodeID: roi.ID, Kind: PortInput})
	require.Equal(t, Committed, res)

	sel, err := e.RegionSelection(roi.ID, Size{Width: 500, Height: 250})
	require.NoError(t, err)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 50, Height: 50}, sel)

	got, err := e.ApplyRegion(roi.ID, Rect{X: 5, Y: 5, Width: 25, Height: 25}, Size{Width: 500, Height: 250})
	require.NoError(t, err)
	assert.Equal(t, PixelRect{X: 10, Y: 10, Width: 50, Height: 50}, got)

	ex := &fakeExecutor{resp: Response{Success: true, Result: "data:image/png;base64,BBBB"}}
	out, err := e.Execute(context.Background(), ex)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Success: true, Result: "data:image/png;base64,BBBB"}, out)

	require.Len(t, ex.got, 1)
	req := ex.got[0]
	require.Len(t, req.Nodes, 2)
	assert.Equal(t, Params{}, req.Nodes[0].Data.Parameters)
	assert.Equal(t, Params{"x": 10, "y": 10, "width": 50, "height": 50}, req.Nodes[1].Data.Parameters)
	assert.Equal(t, []Edge{edge}, req.Edges)

	last, ok := e.LastResult()
	require.True(t, ok)
	assert.Equal(t, out, last)
}

func TestEditorDropUnknownAlgorithm(t *testing.T) {
	e := NewEditor(testCatalog())
	_, err := e.Drop("teleport", Position{})
	require.ErrorIs(t, err, ErrUnknownAlgorithm)
	assert.Empty(t, e.State().Nodes)

	n := e.AddNode("teleport", Position{})
	assert.Equal(t, "teleport", n.Data.Name)
}

func TestEditorApplyParameters(t *testing.T) {
	e := NewEditor(testCatalog())
	n, err := e.Drop("edge_detection", Position{})
	require.NoError(t, err)

	p, err := e.ApplyParameters(n.ID, map[string]string{"threshold": "0.7"})
	require.NoError(t, err)
	assert.Equal(t, 0.7, p["threshold"])

	_, err = e.ApplyParameters(n.ID, map[string]string{"threshold": "7"})
	require.ErrorIs(t, err, ErrInvalidParameter)
	got, _ := e.Node(n.ID)
	assert.Equal(t, 0.7, got.Data.Parameters["threshold"], "rejected input must not change the node")

	_, err = e.ApplyParameters("missing", nil)
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestEditorRegionRequiresSize(t *testing.T) {
	e := NewEditor(testCatalog())
	roi, err := e.Drop(RegionAlgorithm, Position{})
	require.NoError(t, err)

	_, err = e.ApplyRegion(roi.ID, Rect{Width: 10, Height: 10}, Size{Width: 500, Height: 250})
	require.ErrorIs(t, err, ErrSizePending)

	e.SetInput("in.png", Size{Width: 1000, Height: 500})
	_, err = e.ApplyRegion(roi.ID, Rect{Width: 10, Height: 10}, Size{})
	require.ErrorIs(t, err, ErrSizePending)

	gray, _ := e.Drop("grayscale", Position{})
	_, err = e.ApplyRegion(gray.ID, Rect{Width: 10, Height: 10}, Size{Width: 500, Height: 250})
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestEditorExecutePreconditions(t *testing.T) {
	e := NewEditor(testCatalog())
	ex := &fakeExecutor{}

	_, err := e.Execute(context.Background(), ex)
	require.ErrorIs(t, err, ErrMissingInput)

	e.SetInput("in.png", Size{Width: 10, Height: 10})
	_, err = e.Execute(context.Background(), ex)
	require.ErrorIs(t, err, ErrEmptyGraph)
	assert.Empty(t, ex.got)
}

func TestEditorExecuteFailureAndTransport(t *testing.T) {
	e := NewEditor(testCatalog())
	e.SetInput("in.png", Size{Width: 10, Height: 10})
	e.AddNode("grayscale", Position{})

	out, err := e.Execute(context.Background(), &fakeExecutor{resp: Response{}})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Message: DefaultFailureMessage}, out)

	boom := errors.New("connection refused")
	_, err = e.Execute(context.Background(), &fakeExecutor{err: boom})
	require.ErrorIs(t, err, boom)
	assert.Len(t, e.State().Nodes, 1)

	last, ok := e.LastResult()
	require.True(t, ok)
	assert.Equal(t, DefaultFailureMessage, last.Message)
}

func TestEditorExecuteIsExclusive(t *testing.T) {
	e := NewEditor(testCatalog())
	e.SetInput("in.png", Size{Width: 10, Height: 10})
	e.AddNode("grayscale", Position{})

	slow := &fakeExecutor{
		resp:    Response{Success: true, Result: "r"},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	done := make(chan error, 1)
	go func() {
		_, err := e.Execute(context.Background(), slow)
		done <- err
	}()
	<-slow.started

	_, err := e.Execute(context.Background(), &fakeExecutor{})
	require.ErrorIs(t, err, ErrBusy)

	// Editing stays available while the request is in flight.
	e.AddNode("grayscale", Position{X: 10})
	assert.Len(t, e.State().Nodes, 2)

	close(slow.release)
	require.NoError(t, <-done)
	require.Len(t, slow.got, 1)
	assert.Len(t, slow.got[0].Nodes, 1)

	_, err = e.Execute(context.Background(), &fakeExecutor{resp: Response{Success: true}})
	require.NoError(t, err)
}

func TestEditorGestureExclusion(t *testing.T) {
	e := NewEditor(testCatalog())
	a := e.AddNode("grayscale", Position{})

	require.NoError(t, e.StartNodeDrag(a.ID, Position{}))
	require.ErrorIs(t, e.BeginConnection(PortRef{NodeID: a.ID, Kind: PortOutput}, Position{}), ErrGestureActive)
	e.EndNodeDrag()

	require.ErrorIs(t, e.BeginConnection(PortRef{NodeID: "missing", Kind: PortOutput}, Position{}), ErrUnknownNode)
	require.NoError(t, e.BeginConnection(PortRef{NodeID: a.ID, Kind: PortOutput}, Position{}))
	require.ErrorIs(t, e.StartNodeDrag(a.ID, Position{}), ErrGestureActive)

	st := e.State()
	require.NotNil(t, st.Connecting)
	require.NotNil(t, st.Preview)

	e.BackgroundClick()
	st = e.State()
	assert.Nil(t, st.Connecting)
	assert.Nil(t, st.Preview)
}

func TestEditorRemoveNodeEndsItsGesture(t *testing.T) {
	e := NewEditor(testCatalog())
	a := e.AddNode("grayscale", Position{})
	b := e.AddNode("grayscale", Position{X: 200})

	require.NoError(t, e.StartNodeDrag(a.ID, Position{}))
	require.True(t, e.RemoveNode(a.ID))
	_, ok := e.DragNode(Position{X: 10})
	assert.False(t, ok)
	require.NoError(t, e.BeginConnection(PortRef{NodeID: b.ID, Kind: PortOutput}, Position{}))
	e.CancelConnection()

	c := e.AddNode("grayscale", Position{X: 400})
	require.NoError(t, e.BeginConnection(PortRef{NodeID: c.ID, Kind: PortOutput}, Position{}))
	require.True(t, e.RemoveNode(c.ID))
	assert.Nil(t, e.State().Connecting)
	require.NoError(t, e.StartNodeDrag(b.ID, Position{}))
	e.EndNodeDrag()
}

func TestEditorRemoveOtherNodeKeepsGesture(t *testing.T) {
	e := NewEditor(testCatalog())
	a := e.AddNode("grayscale", Position{})
	b := e.AddNode("grayscale", Position{X: 200})

	require.NoError(t, e.BeginConnection(PortRef{NodeID: a.ID, Kind: PortOutput}, Position{}))
	require.True(t, e.RemoveNode(b.ID))
	assert.NotNil(t, e.State().Connecting)
	require.ErrorIs(t, e.StartNodeDrag(a.ID, Position{}), ErrGestureActive)
}

func TestEditorClear(t *testing.T) {
	e := NewEditor(testCatalog())
	a := e.AddNode("grayscale", Position{})
	b := e.AddNode("grayscale", Position{})
	_, err := e.Connect(a.ID, b.ID)
	require.NoError(t, err)
	e.Select(a.ID)
	require.NoError(t, e.BeginConnection(PortRef{NodeID: a.ID, Kind: PortOutput}, Position{}))

	e.Clear()
	st := e.State()
	assert.Empty(t, st.Nodes)
	assert.Empty(t, st.Edges)
	assert.Empty(t, st.Selected)
	assert.Nil(t, st.Connecting)
}

func TestEditorRegionParametersNeedRegionNode(t *testing.T) {
	e := NewEditor(testCatalog())
	g, err := e.Drop("grayscale", Position{})
	require.NoError(t, err)
	roi, err := e.Drop(RegionAlgorithm, Position{X: 200})
	require.NoError(t, err)

	err = e.ApplyRegionParameters(g.ID, PixelRect{X: 1, Y: 2, Width: 3, Height: 4})
	require.ErrorIs(t, err, ErrInvalidParameter)
	n, _ := e.Node(g.ID)
	_, ok := RegionFromParams(n.Data.Parameters)
	assert.False(t, ok)

	require.ErrorIs(t, e.ApplyRegionParameters("missing", PixelRect{Width: 1, Height: 1}), ErrUnknownNode)

	require.NoError(t, e.ApplyRegionParameters(roi.ID, PixelRect{X: 1, Y: 2, Width: 3, Height: 4}))
	n, _ = e.Node(roi.ID)
	r, ok := RegionFromParams(n.Data.Parameters)
	require.True(t, ok)
	assert.Equal(t, PixelRect{X: 1, Y: 2, Width: 3, Height: 4}, r)
}

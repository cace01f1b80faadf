package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// InputImage is the image a workflow runs on: an opaque reference (data URL
// or URL) and its native size, zero until known.
type InputImage struct {
	Ref    string `json:"ref,omitempty"`
	Native Size   `json:"native"`
}

// Editor is the single owner of one workflow's editing state: graph,
// selection, the active gesture, the input image and the last result.
// Every method serializes through one mutex. Execution is additionally
// limited to one outstanding request.
type Editor struct {
	mu      sync.Mutex
	catalog *Catalog
	graph   *Graph
	conn    ConnectionSession
	drag    NodeDrag
	input   InputImage
	last    *Outcome
	running *semaphore.Weighted
	log     *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger used for ignored gesture outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		e.log = l
	}
}

// NewEditor returns an empty editor resolving algorithms against catalog.
func NewEditor(catalog *Catalog, opts ...Option) *Editor {
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	e := &Editor{
		catalog: catalog,
		graph:   NewGraph(),
		running: semaphore.NewWeighted(1),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State is a consistent snapshot of an editor for rendering.
type State struct {
	Nodes      []Node       `json:"nodes"`
	Edges      []Edge       `json:"edges"`
	Paths      []EdgePath   `json:"paths"`
	Selected   string       `json:"selected,omitempty"`
	Connecting *PortRef     `json:"connecting,omitempty"`
	Preview    *Path        `json:"preview,omitempty"`
	Input      InputImage   `json:"input"`
	LastResult *Outcome     `json:"lastResult,omitempty"`
	Lint       []Diagnostic `json:"lint"`
}

// State returns a snapshot of the editor.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	nodes, edges := e.graph.Nodes(), e.graph.Edges()
	st := State{
		Nodes:    nodes,
		Edges:    edges,
		Paths:    e.graph.EdgePaths(""),
		Selected: e.graph.Selected(),
		Input:    e.input,
		Lint:     Lint(nodes, edges),
	}
	if e.conn.Dragging() {
		origin := e.conn.Origin()
		st.Connecting = &origin
		if p, ok := e.conn.Preview(e.graph); ok {
			st.Preview = &p
		}
	}
	if e.last != nil {
		out := *e.last
		st.LastResult = &out
	}
	return st
}

// AddNode places a node of algorithmType at pos. The display name comes from
// the catalog when the algorithm is known. Always succeeds.
func (e *Editor) AddNode(algorithmType string, pos Position) Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	var opts []NodeOption
	if a, ok := e.catalog.Lookup(algorithmType); ok {
		opts = append(opts, WithDisplayName(a.Name))
	}
	return e.graph.AddNode(algorithmType, pos, opts...)
}

// Drop handles a catalog entry dropped on the canvas at point at. The node is
// centred on the drop point.
func (e *Editor) Drop(algorithmID string, at Position) (Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.catalog.Lookup(algorithmID)
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, algorithmID)
	}
	return e.graph.AddNode(a.ID, at.Sub(DropOffset), WithDisplayName(a.Name)), nil
}

// Node returns a copy of a node.
func (e *Editor) Node(id string) (Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Node(id)
}

// MoveNode repositions a node. Unknown ids are ignored.
func (e *Editor) MoveNode(id string, pos Position) ([]EdgePath, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	paths, ok := e.graph.MoveNode(id, pos)
	if !ok {
		e.log.Debug("move of unknown node ignored", "node_id", id)
	}
	return paths, ok
}

// RemoveNode deletes one node and its edges. A drag of the node or a
// connection started from one of its ports is dropped with it.
func (e *Editor) RemoveNode(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.graph.RemoveNode(id) {
		return false
	}
	if e.drag.Dragging() && e.drag.nodeID == id {
		e.drag.End()
	}
	if e.conn.Dragging() && e.conn.Origin().NodeID == id {
		e.conn.Cancel()
	}
	return true
}

// Clear removes every node and edge and resets any gesture in progress.
func (e *Editor) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph.RemoveAllNodes()
	e.conn.Cancel()
	e.drag.End()
}

// Select points the selection at id, or clears it for "".
func (e *Editor) Select(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graph.Select(id)
}

// SelectedNode resolves the current selection.
func (e *Editor) SelectedNode() (Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.SelectedNode()
}

// BackgroundClick cancels an in-progress connection and clears the selection.
func (e *Editor) BackgroundClick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conn.Cancel()
	e.graph.Select("")
}

// StartNodeDrag grabs a node by its header.
func (e *Editor) StartNodeDrag(id string, at Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn.Dragging() {
		return ErrGestureActive
	}
	return e.drag.Begin(e.graph, id, at)
}

// DragNode follows the pointer while a node is grabbed.
func (e *Editor) DragNode(at Position) ([]EdgePath, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drag.Move(e.graph, at)
}

// EndNodeDrag releases the grabbed node.
func (e *Editor) EndNodeDrag() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drag.End()
}

// BeginConnection starts a connect gesture on a port of an existing node.
func (e *Editor) BeginConnection(origin PortRef, at Position) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.drag.Dragging() {
		return ErrGestureActive
	}
	if _, ok := e.graph.Node(origin.NodeID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, origin.NodeID)
	}
	return e.conn.Begin(origin, at)
}

// MoveConnection updates the preview and returns it.
func (e *Editor) MoveConnection(at Position) (Path, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conn.Move(at)
	return e.conn.Preview(e.graph)
}

// ReleaseConnection resolves the gesture with the pointer over port (nil when
// not over a port). Graph rejections are logged and otherwise ignored.
func (e *Editor) ReleaseConnection(over *PortRef) (Resolution, Edge) {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, edge, err := e.conn.Release(e.graph, over)
	if err != nil {
		e.log.Debug("connection ignored", "error", err)
	}
	return res, edge
}

// CancelConnection discards an in-progress connect gesture.
func (e *Editor) CancelConnection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conn.Cancel()
}

// Connect adds an edge directly, returning the graph's rejection if any.
func (e *Editor) Connect(source, target string) (Edge, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.AddEdge(source, target)
}

// RemoveEdge deletes a single edge.
func (e *Editor) RemoveEdge(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.RemoveEdge(id)
}

// SchemaFor returns the parameter schema of a node's algorithm.
func (e *Editor) SchemaFor(nodeID string) (Schema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.graph.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	return e.schemaFor(n)
}

func (e *Editor) schemaFor(n Node) (Schema, error) {
	if n.Type == RegionAlgorithm {
		return RegionSchema{Default: DefaultRegion}, nil
	}
	a, ok := e.catalog.Lookup(n.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, n.Type)
	}
	return a.Schema()
}

// ApplyParameters coerces raw form inputs against the node's schema and
// replaces its whole parameter bag. On error nothing changes.
func (e *Editor) ApplyParameters(nodeID string, raw map[string]string) (Params, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.graph.Node(nodeID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	schema, err := e.schemaFor(n)
	if err != nil {
		return nil, err
	}
	p, err := schema.Coerce(raw)
	if err != nil {
		return nil, err
	}
	if err := e.graph.SetParameters(nodeID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyRegionParameters sets a region node's parameters to exactly r, which
// must already be a valid native-space rectangle.
func (e *Editor) ApplyRegionParameters(nodeID string, r PixelRect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.regionNode(nodeID); err != nil {
		return err
	}
	return e.graph.SetParameters(nodeID, RegionParams(r))
}

// RegionSelection returns a region node's current ROI in displayed space,
// starting from DefaultRegion when it has none yet.
func (e *Editor) RegionSelection(nodeID string, displayed Size) (Rect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, err := e.regionNode(nodeID)
	if err != nil {
		return Rect{}, err
	}
	r, ok := RegionFromParams(n.Data.Parameters)
	if !ok {
		r = DefaultRegion
	}
	return NativeToDisplay(r, e.input.Native, displayed)
}

// ApplyRegion maps a displayed-space selection into native space and commits
// it. ErrSizePending means the input image size is not known yet.
func (e *Editor) ApplyRegion(nodeID string, sel Rect, displayed Size) (PixelRect, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.regionNode(nodeID); err != nil {
		return PixelRect{}, err
	}
	r, err := DisplayToNative(sel, displayed, e.input.Native)
	if err != nil {
		return PixelRect{}, err
	}
	if err := e.graph.SetParameters(nodeID, RegionParams(r)); err != nil {
		return PixelRect{}, err
	}
	return r, nil
}

func (e *Editor) regionNode(nodeID string) (Node, error) {
	n, ok := e.graph.Node(nodeID)
	if !ok {
		return Node{}, fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	if n.Type != RegionAlgorithm {
		return Node{}, fmt.Errorf("%w: node %s is %s, not %s", ErrInvalidParameter, nodeID, n.Type, RegionAlgorithm)
	}
	return n, nil
}

// SetInput records the input image reference and its native size.
func (e *Editor) SetInput(ref string, native Size) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.input = InputImage{Ref: ref, Native: native}
}

// Input returns the current input image.
func (e *Editor) Input() InputImage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.input
}

// Lint returns advisory diagnostics for the current graph.
func (e *Editor) Lint() []Diagnostic {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Lint(e.graph.Nodes(), e.graph.Edges())
}

// Request builds the execution request from the current state.
func (e *Editor) Request() (Request, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Build(e.graph, e.input.Ref)
}

// Execute builds a request and submits it through ex. Only one execution may
// be outstanding; a second call returns ErrBusy at once. The editor stays
// usable while the call is in flight; the request is a snapshot. Transport
// errors are returned as is and leave the graph untouched.
func (e *Editor) Execute(ctx context.Context, ex Executor) (Outcome, error) {
	if !e.running.TryAcquire(1) {
		return Outcome{}, ErrBusy
	}
	defer e.running.Release(1)

	req, err := e.Request()
	if err != nil {
		return Outcome{}, err
	}
	resp, err := ex.Execute(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	out := Interpret(resp)

	e.mu.Lock()
	e.last = &out
	e.mu.Unlock()
	if !out.Success {
		e.log.Info("execution failed", "message", out.Message)
	}
	return out, nil
}

// LastResult returns the outcome of the most recent completed execution.
func (e *Editor) LastResult() (Outcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return Outcome{}, false
	}
	return *e.last, true
}

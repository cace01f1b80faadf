package pipeline

import "fmt"

// PortKind is the direction of a node port.
type PortKind string

const (
	PortInput  PortKind = InputHandle
	PortOutput PortKind = OutputHandle
)

// ParsePortKind validates a port kind received from a client.
func ParsePortKind(s string) (PortKind, error) {
	switch k := PortKind(s); k {
	case PortInput, PortOutput:
		return k, nil
	default:
		return "", fmt.Errorf("pipeline: unknown port kind %q", s)
	}
}

// PortRef names one port of one node.
type PortRef struct {
	NodeID string   `json:"node"`
	Kind   PortKind `json:"port"`
}

// Resolution is how a connection gesture ended.
type Resolution string

const (
	// Committed: a new edge was added.
	Committed Resolution = "committed"
	// Rejected: the port pairing was valid but the graph refused the edge
	// (duplicate pair, or an endpoint vanished meanwhile).
	Rejected Resolution = "rejected"
	// Cancelled: released anywhere but a valid target port.
	Cancelled Resolution = "cancelled"
)

// ConnectionSession tracks one drag-to-connect gesture:
// Idle -> Dragging -> Idle via Release (commit or cancel) or Cancel.
// While dragging only the cursor changes; the graph is touched once, on commit.
type ConnectionSession struct {
	dragging bool
	origin   PortRef
	cursor   Position
}

// Dragging reports whether a gesture is in progress.
func (s *ConnectionSession) Dragging() bool {
	return s.dragging
}

// Origin returns the port the gesture started on.
func (s *ConnectionSession) Origin() PortRef {
	return s.origin
}

// Begin starts a gesture on a port.
func (s *ConnectionSession) Begin(origin PortRef, at Position) error {
	if s.dragging {
		return ErrGestureActive
	}
	s.dragging = true
	s.origin = origin
	s.cursor = at
	return nil
}

// Move updates the cursor. It is a no-op when idle.
func (s *ConnectionSession) Move(at Position) {
	if s.dragging {
		s.cursor = at
	}
}

// Preview returns the provisional connector from the origin port to the
// cursor. ok is false when idle or the origin node no longer exists.
func (s *ConnectionSession) Preview(g *Graph) (p Path, ok bool) {
	if !s.dragging {
		return Path{}, false
	}
	n, ok := g.Node(s.origin.NodeID)
	if !ok {
		return Path{}, false
	}
	from := OutputPort(n)
	if s.origin.Kind == PortInput {
		from = InputPort(n)
	}
	return Connector(from, s.cursor), true
}

// Release ends the gesture with the pointer over port (nil for "not over a
// port"). Only output -> input between distinct nodes commits. The session
// is Idle afterwards whatever the outcome.
func (s *ConnectionSession) Release(g *Graph, over *PortRef) (Resolution, Edge, error) {
	if !s.dragging {
		return Cancelled, Edge{}, nil
	}
	origin := s.origin
	s.reset()

	if over == nil || origin.Kind != PortOutput || over.Kind != PortInput || over.NodeID == origin.NodeID {
		return Cancelled, Edge{}, nil
	}
	e, err := g.AddEdge(origin.NodeID, over.NodeID)
	if err != nil {
		return Rejected, Edge{}, err
	}
	return Committed, e, nil
}

// Cancel discards the gesture and its preview.
func (s *ConnectionSession) Cancel() {
	s.reset()
}

func (s *ConnectionSession) reset() {
	*s = ConnectionSession{}
}

// NodeDrag tracks moving a node by its header. Positions follow the pointer
// delta from the press point, so the grab offset is preserved.
type NodeDrag struct {
	dragging bool
	nodeID   string
	press    Position
	initial  Position
}

// Dragging reports whether a node is being moved.
func (d *NodeDrag) Dragging() bool {
	return d.dragging
}

// Begin grabs nodeID at pointer position at.
func (d *NodeDrag) Begin(g *Graph, nodeID string, at Position) error {
	if d.dragging {
		return ErrGestureActive
	}
	n, ok := g.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	*d = NodeDrag{dragging: true, nodeID: nodeID, press: at, initial: n.Position}
	return nil
}

// Move repositions the grabbed node and returns its dependent connectors.
func (d *NodeDrag) Move(g *Graph, at Position) ([]EdgePath, bool) {
	if !d.dragging {
		return nil, false
	}
	return g.MoveNode(d.nodeID, d.initial.Add(at.Sub(d.press)))
}

// End releases the node.
func (d *NodeDrag) End() {
	*d = NodeDrag{}
}

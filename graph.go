package pipeline

import (
	"fmt"

	"github.com/google/uuid"
)

// Graph owns the nodes, edges and selection pointer of one workflow.
// It is not safe for concurrent use; Editor serializes access to it.
type Graph struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	selected string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// NodeOption customizes a node at creation.
type NodeOption func(*Node)

// WithDisplayName overrides the node's display name.
func WithDisplayName(name string) NodeOption {
	return func(n *Node) {
		if name != "" {
			n.Data.Name = name
		}
	}
}

// AddNode places a new node with a fresh id and empty parameters.
// The display name defaults to algorithmType.
func (g *Graph) AddNode(algorithmType string, pos Position, opts ...NodeOption) Node {
	n := &Node{
		ID:       uuid.NewString(),
		Type:     algorithmType,
		Position: pos,
		Data:     NodeData{Name: algorithmType, Parameters: Params{}},
	}
	for _, opt := range opts {
		opt(n)
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return clone(n)
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return clone(n), true
}

// Nodes returns copies of all nodes in placement order.
// Returns an empty slice (not nil) if there are none.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, clone(g.nodes[id]))
	}
	return out
}

// Edges returns all edges in creation order.
// Returns an empty slice (not nil) if there are none.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// MoveNode sets the node's position and returns the recomputed connectors of
// every edge touching it. Unknown ids are a no-op reported by ok=false.
func (g *Graph) MoveNode(id string, pos Position) (paths []EdgePath, ok bool) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	n.Position = pos
	return g.EdgePaths(id), true
}

// RemoveNode deletes a node and every edge referencing it.
// Clears the selection when it pointed at the node. No-op if absent.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	delete(g.nodes, id)
	for i, oid := range g.order {
		if oid == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	if g.selected == id {
		g.selected = ""
	}
	return true
}

// RemoveAllNodes clears nodes, edges and the selection in one step.
func (g *Graph) RemoveAllNodes() {
	g.nodes = make(map[string]*Node)
	g.order = nil
	g.edges = nil
	g.selected = ""
}

// AddEdge connects source's output port to target's input port.
// Rejections leave the graph unchanged: a self-loop or a duplicate
// (source, target) pair returns ErrInvalidEdge, a missing endpoint
// ErrUnknownNode. Several sources may feed the same target.
func (g *Graph) AddEdge(source, target string) (Edge, error) {
	if source == target {
		return Edge{}, fmt.Errorf("%w: self-loop on %s", ErrInvalidEdge, source)
	}
	if _, ok := g.nodes[source]; !ok {
		return Edge{}, fmt.Errorf("%w: source %s", ErrUnknownNode, source)
	}
	if _, ok := g.nodes[target]; !ok {
		return Edge{}, fmt.Errorf("%w: target %s", ErrUnknownNode, target)
	}
	for _, e := range g.edges {
		if e.Source == source && e.Target == target {
			return Edge{}, fmt.Errorf("%w: %s -> %s already connected", ErrInvalidEdge, source, target)
		}
	}
	e := Edge{
		ID:           uuid.NewString(),
		Source:       source,
		Target:       target,
		SourceHandle: OutputHandle,
		TargetHandle: InputHandle,
	}
	g.edges = append(g.edges, e)
	return e, nil
}

// RemoveEdge deletes an edge by id. No-op if absent.
func (g *Graph) RemoveEdge(id string) bool {
	for i, e := range g.edges {
		if e.ID == id {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return true
		}
	}
	return false
}

// SetParameters replaces the node's entire parameter bag.
func (g *Graph) SetParameters(id string, p Params) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.Data.Parameters = p.Clone()
	return nil
}

// Rename overrides the node's display name.
func (g *Graph) Rename(id, name string) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	n.Data.Name = name
	return nil
}

// Select sets the selection pointer; "" clears it. The id is not validated.
func (g *Graph) Select(id string) {
	g.selected = id
}

// Selected returns the selection pointer, possibly stale.
func (g *Graph) Selected() string {
	return g.selected
}

// SelectedNode resolves the selection. ok is false when nothing is selected
// or the selected id no longer exists.
func (g *Graph) SelectedNode() (Node, bool) {
	if g.selected == "" {
		return Node{}, false
	}
	return g.Node(g.selected)
}

// EdgePath is the rendered connector of one edge.
type EdgePath struct {
	EdgeID string `json:"edge"`
	Path   Path   `json:"path"`
}

// EdgePaths computes connectors for the edges touching nodeID, or for every
// edge when nodeID is "". Geometry is derived from node positions on demand.
func (g *Graph) EdgePaths(nodeID string) []EdgePath {
	out := []EdgePath{}
	for _, e := range g.edges {
		if nodeID != "" && e.Source != nodeID && e.Target != nodeID {
			continue
		}
		src, dst := g.nodes[e.Source], g.nodes[e.Target]
		out = append(out, EdgePath{
			EdgeID: e.ID,
			Path:   Connector(OutputPort(*src), InputPort(*dst)),
		})
	}
	return out
}

func clone(n *Node) Node {
	c := *n
	c.Data.Parameters = n.Data.Parameters.Clone()
	return c
}

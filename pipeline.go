package pipeline

import "maps"

// RegionAlgorithm is the catalog id of the region-extraction algorithm. Nodes of
// this type carry the fixed {x, y, width, height} parameter schema.
const RegionAlgorithm = "roi_extraction"

// Position is a point in canvas coordinate space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d.
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns the vector from q to p.
func (p Position) Sub(q Position) Position {
	return Position{X: p.X - q.X, Y: p.Y - q.Y}
}

// Params is a node's parameter bag. Numbers are float64 (ROI fields are int),
// everything else is a string.
type Params map[string]any

// Clone returns a shallow copy; nil stays an empty map so requests always
// serialize parameters as an object.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Node is a placed instance of an algorithm.
// The JSON shape {id, type, x, y, data: {name, parameters}} is what the
// processing backend reads.
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Position
	Data NodeData `json:"data"`
}

// NodeData holds the mutable, user-facing part of a node.
type NodeData struct {
	Name       string `json:"name"`
	Parameters Params `json:"parameters"`
}

// Port handles carried on every edge. Each node has exactly one of each.
const (
	OutputHandle = "output"
	InputHandle  = "input"
)

// Edge is a directed connection from Source's output port to Target's input port.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
}

// Algorithm is one catalog entry as served by GET /api/algorithms.
type Algorithm struct {
	ID          string              `json:"id" yaml:"id"`
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Inputs      []string            `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs     []string            `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Parameters  map[string]ParamDef `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ParamDef is the wire form of a single parameter declaration.
// Type is one of "number", "text", "select" or "checkbox".
type ParamDef struct {
	Label   string   `json:"label,omitempty" yaml:"label,omitempty"`
	Type    string   `json:"type" yaml:"type"`
	Default any      `json:"default,omitempty" yaml:"default,omitempty"`
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step    *float64 `json:"step,omitempty" yaml:"step,omitempty"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
}

package pipeline

import "fmt"

// Diagnostic is an advisory finding about the graph's topology. None of them
// block submission; whether the backend accepts such graphs is its contract.
type Diagnostic struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	NodeIDs []string `json:"nodes,omitempty"`
}

const (
	DiagCycle    = "cycle"
	DiagFanIn    = "fan_in"
	DiagIsolated = "isolated"
)

// Lint reports cycles, nodes fed by more than one edge, and nodes with no
// edges at all in a graph of two or more nodes.
func Lint(nodes []Node, edges []Edge) []Diagnostic {
	diags := []Diagnostic{}

	if id, ok := findCycle(nodes, edges); ok {
		diags = append(diags, Diagnostic{
			Code:    DiagCycle,
			Message: fmt.Sprintf("cycle through node %s; the backend will skip nodes on it", id),
			NodeIDs: []string{id},
		})
	}

	inDegree := make(map[string]int, len(nodes))
	touched := make(map[string]bool, len(nodes))
	for _, e := range edges {
		inDegree[e.Target]++
		touched[e.Source] = true
		touched[e.Target] = true
	}
	for _, n := range nodes {
		if d := inDegree[n.ID]; d > 1 {
			diags = append(diags, Diagnostic{
				Code:    DiagFanIn,
				Message: fmt.Sprintf("node %s has %d incoming edges; only one input port value is used", n.ID, d),
				NodeIDs: []string{n.ID},
			})
		}
	}
	if len(nodes) > 1 {
		var isolated []string
		for _, n := range nodes {
			if !touched[n.ID] {
				isolated = append(isolated, n.ID)
			}
		}
		if len(isolated) > 0 {
			diags = append(diags, Diagnostic{
				Code:    DiagIsolated,
				Message: fmt.Sprintf("%d node(s) are not connected and run on the original image", len(isolated)),
				NodeIDs: isolated,
			})
		}
	}
	return diags
}

// ExecutionOrder is the Kahn topological order the backend runs nodes in,
// seeded in placement order. Nodes on or downstream of a cycle are absent.
func ExecutionOrder(nodes []Node, edges []Edge) []string {
	adj := make(map[string][]string, len(nodes))
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n.ID] = 0
	}
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
		inDegree[e.Target]++
	}

	var queue []string
	for _, n := range nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, next := range adj[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return order
}

// findCycle runs a coloured DFS and returns a node on the first cycle found.
func findCycle(nodes []Node, edges []Edge) (string, bool) {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int, len(nodes))
	var hit string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				hit = next
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for _, n := range nodes {
		if state[n.ID] == unvisited && dfs(n.ID) {
			return hit, true
		}
	}
	return "", false
}

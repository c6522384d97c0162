package models

// Complexity is a coarse effort estimate for a single task node.
type Complexity string

const (
	// ComplexityLow indicates a quick, mechanical objective.
	ComplexityLow Complexity = "LOW"
	// ComplexityMedium indicates a typical objective.
	ComplexityMedium Complexity = "MEDIUM"
	// ComplexityHigh indicates an involved, error-prone objective.
	ComplexityHigh Complexity = "HIGH"
)

// TaskNode is one atomic objective inside a task graph.
type TaskNode struct {
	// ID is the node identifier, unique within its graph.
	ID string `json:"id"`
	// Objective is the human-readable atomic goal.
	Objective string `json:"objective"`
	// Dependencies lists node IDs that must finish before this node.
	Dependencies []string `json:"dependencies"`
	// Parallelizable indicates the node may run alongside its siblings.
	Parallelizable bool `json:"parallelizable"`
	// MissingInputs lists flagged gaps that do not block construction.
	MissingInputs []string `json:"missing_inputs"`
	// EstimatedComplexity is the coarse effort estimate.
	EstimatedComplexity Complexity `json:"estimated_complexity"`
}

// TaskGraph is a dependency DAG of atomic objectives derived from an intent.
// The builder only adds forward edges from already-known nodes, so a
// constructed graph is acyclic by construction.
type TaskGraph struct {
	// Nodes is the ordered node sequence.
	Nodes []TaskNode `json:"nodes"`
	// EntryPoints lists node IDs with no dependencies.
	EntryPoints []string `json:"entry_points"`
	// CriticalPath is the longest dependency-respecting chain of node IDs
	// from an entry point to a sink.
	CriticalPath []string `json:"critical_path"`
	// TotalNodes is len(Nodes), kept explicit for serialized consumers.
	TotalNodes int `json:"total_nodes"`
}

// Node returns the node with the given ID, or false if absent.
func (g TaskGraph) Node(id string) (TaskNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return TaskNode{}, false
}

// Dependents returns the IDs of nodes whose dependencies include id,
// in node order.
func (g TaskGraph) Dependents(id string) []string {
	var out []string
	for _, n := range g.Nodes {
		for _, dep := range n.Dependencies {
			if dep == id {
				out = append(out, n.ID)
				break
			}
		}
	}
	return out
}

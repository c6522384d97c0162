package taskgraph

import "github.com/kestrelhq/kestrel/pkg/models"

// CriticalPath returns the longest dependency-respecting chain of node IDs
// from an entry point to a sink. Ties keep the first-found path. It walks
// depth-first from every entry point, extending along dependents.
//
// The walk does not memoize shared suffixes; at the graph sizes the builder
// produces (≤ a dozen nodes) re-walking is cheaper than the bookkeeping.
func CriticalPath(nodes []models.TaskNode) []string {
	if len(nodes) == 0 {
		return nil
	}

	dependents := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			dependents[dep] = append(dependents[dep], n.ID)
		}
	}

	var longest []string
	var dfs func(id string, path []string)
	dfs = func(id string, path []string) {
		current := make([]string, 0, len(path)+1)
		current = append(current, path...)
		current = append(current, id)

		next := dependents[id]
		if len(next) == 0 {
			if len(current) > len(longest) {
				longest = current
			}
			return
		}
		for _, child := range next {
			dfs(child, current)
		}
	}

	for _, n := range nodes {
		if len(n.Dependencies) == 0 {
			dfs(n.ID, nil)
		}
	}

	// A graph whose every node has dependencies has no entry point to walk
	// from; fall back to the node order so the path is never empty.
	if len(longest) == 0 {
		ids := make([]string, len(nodes))
		for i, n := range nodes {
			ids[i] = n.ID
		}
		return ids
	}
	return longest
}

package dag

import (
	"fmt"
	"sort"
)

// TopoSort returns every node ID in dependency order: a node always appears
// after all of its dependencies. Ties are broken alphabetically so the
// ordering is deterministic. An error is returned if the graph contains a
// cycle.
func (g *Graph) TopoSort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Kahn's algorithm over a ready min-heap (here: a re-sorted slice, the
	// graphs involved are small).
	inDegree := make(map[string]int, len(g.nodes))
	for id, n := range g.nodes {
		inDegree[id] = len(n.deps)
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for depID := range g.nodes[id].dependents {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				unlocked = append(unlocked, depID)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("cannot order graph: %d of %d nodes are on a cycle", len(g.nodes)-len(order), len(g.nodes))
	}
	return order, nil
}

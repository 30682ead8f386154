package dag

import (
	"errors"
	"fmt"
)

// ErrCycle indicates the graph contains a circular dependency and no
// deterministic execution order exists.
var ErrCycle = errors.New("cycle detected")

// DetectCycle checks the graph for circular dependencies with a depth-first
// search. It returns a non-nil error naming a node on the first cycle found.
func (g *Graph) DetectCycle() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(v *vertex) error
	visit = func(v *vertex) error {
		visiting[v.id] = true
		for _, dep := range v.deps {
			if visiting[dep.id] {
				return fmt.Errorf("%w: involving node %q", ErrCycle, dep.id)
			}
			if !visited[dep.id] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, v.id)
		visited[v.id] = true
		return nil
	}

	for _, v := range g.nodes {
		if !visited[v.id] {
			if err := visit(v); err != nil {
				return err
			}
		}
	}
	return nil
}

package dag

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is a set of nodes and directed dependency links. All operations are
// concurrency-safe.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*vertex
}

// vertex is un-exported to enforce interaction through string IDs rather than
// direct struct manipulation.
type vertex struct {
	id         string
	deps       map[string]*vertex
	dependents map[string]*vertex
}

// New returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*vertex)}
}

// Add inserts a node with the given ID. Adding an existing ID is a no-op.
func (g *Graph) Add(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &vertex{
		id:         id,
		deps:       make(map[string]*vertex),
		dependents: make(map[string]*vertex),
	}
}

// Link records that toID depends on fromID. A self-referential link is
// reported as a cycle, matching how the scheduler treats it. An error is
// returned if either node is missing.
func (g *Graph) Link(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, fromID, toID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	from, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("link source not found: %s", fromID)
	}
	to, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("link target not found: %s", toID)
	}
	to.deps[fromID] = from
	from.dependents[toID] = to
	return nil
}

// Has reports whether the node exists in the graph.
func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// IDs returns all node IDs, sorted.
func (g *Graph) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Dependencies returns the IDs a node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(v.deps), nil
}

// Dependents returns the IDs that depend on a node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(v.dependents), nil
}

// DownstreamOf returns the transitive dependent closure of a node, including
// the node itself.
func (g *Graph) DownstreamOf(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	start, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	seen := map[string]bool{}
	var walk func(v *vertex)
	walk = func(v *vertex) {
		if seen[v.id] {
			return
		}
		seen[v.id] = true
		for _, d := range v.dependents {
			walk(d)
		}
	}
	walk(start)
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func sortedKeys(m map[string]*vertex) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

package flow

import (
	"encoding/json"
	"fmt"
	"sort"
)

// transientDataKeys are runtime-only node data fields that must not survive
// into a persisted snapshot. They are produced by the canvas during a run
// (status badges, cached outputs) or hold blobs that persist elsewhere.
var transientDataKeys = map[string]struct{}{
	"executionStatus": {},
	"executionError":  {},
	"cachedOutput":    {},
	"runtimeImage":    {},
	"runtimeAudio":    {},
}

// Snapshot is a complete, canonical, serializable state of a flow graph.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NewSnapshot builds a canonical snapshot from raw canvas state: nodes and
// edges are cloned, transient data keys stripped, and both sets sorted by ID
// so insertion order carries no meaning.
func NewSnapshot(nodes []Node, edges []Edge) Snapshot {
	s := Snapshot{
		Nodes: make([]Node, 0, len(nodes)),
		Edges: make([]Edge, 0, len(edges)),
	}
	for _, n := range nodes {
		c := n.Clone()
		for k := range transientDataKeys {
			delete(c.Data, k)
		}
		if len(c.Data) == 0 {
			c.Data = nil
		}
		s.Nodes = append(s.Nodes, c)
	}
	s.Edges = append(s.Edges, edges...)
	s.normalize()
	return s
}

// normalize sorts nodes and edges by ID in place.
func (s *Snapshot) normalize() {
	sort.Slice(s.Nodes, func(i, j int) bool { return s.Nodes[i].ID < s.Nodes[j].ID })
	sort.Slice(s.Edges, func(i, j int) bool { return s.Edges[i].ID < s.Edges[j].ID })
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Nodes: make([]Node, 0, len(s.Nodes)),
		Edges: make([]Edge, len(s.Edges)),
	}
	for _, n := range s.Nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	copy(out.Edges, s.Edges)
	return out
}

// Node returns the node with the given ID.
func (s Snapshot) Node(id string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Edge returns the edge with the given ID.
func (s Snapshot) Edge(id string) (Edge, bool) {
	for _, e := range s.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// EdgesInto returns all edges whose target is the given node, in snapshot
// (canonical) order.
func (s Snapshot) EdgesInto(nodeID string) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.Target == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFrom returns all edges whose source is the given node.
func (s Snapshot) EdgesFrom(nodeID string) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// IncidentEdges returns all edges touching the given node from either end.
func (s Snapshot) IncidentEdges(nodeID string) []Edge {
	var out []Edge
	for _, e := range s.Edges {
		if e.Source == nodeID || e.Target == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the structural invariants every snapshot must hold: unique
// node IDs, unique edge IDs, and no edge referencing a missing node.
func (s Snapshot) Validate() error {
	nodeIDs := make(map[string]struct{}, len(s.Nodes))
	for _, n := range s.Nodes {
		if _, dup := nodeIDs[n.ID]; dup {
			return fmt.Errorf("%w: node %q", ErrDuplicateID, n.ID)
		}
		nodeIDs[n.ID] = struct{}{}
	}
	edgeIDs := make(map[string]struct{}, len(s.Edges))
	for _, e := range s.Edges {
		if _, dup := edgeIDs[e.ID]; dup {
			return fmt.Errorf("%w: edge %q", ErrDuplicateID, e.ID)
		}
		edgeIDs[e.ID] = struct{}{}
		if _, ok := nodeIDs[e.Source]; !ok {
			return fmt.Errorf("%w: edge %q references missing source %q", ErrDanglingEdge, e.ID, e.Source)
		}
		if _, ok := nodeIDs[e.Target]; !ok {
			return fmt.Errorf("%w: edge %q references missing target %q", ErrDanglingEdge, e.ID, e.Target)
		}
	}
	return nil
}

// MarshalCanonical serializes the snapshot after normalizing it, producing
// byte-identical output for structurally equal snapshots.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	c := s.Clone()
	c.normalize()
	return json.Marshal(c)
}

// ParseSnapshot decodes a snapshot from JSON and validates its invariants.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("parsing snapshot: %w", err)
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

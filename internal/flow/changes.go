package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when a change would introduce a node or edge
	// ID that already exists in the snapshot.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrDanglingEdge is returned when an edge references a node that does
	// not exist at the time the edge is considered.
	ErrDanglingEdge = errors.New("dangling edge reference")
	// ErrMissingTarget is returned when a removal targets a node or edge that
	// does not exist.
	ErrMissingTarget = errors.New("removal target not found")
	// ErrIncidentEdges is returned when a node is removed while edges still
	// reference it.
	ErrIncidentEdges = errors.New("node still has incident edges")
)

// ChangeOp identifies one kind of graph mutation.
type ChangeOp string

const (
	OpAddNode    ChangeOp = "add-node"
	OpRemoveNode ChangeOp = "remove-node"
	OpAddEdge    ChangeOp = "add-edge"
	OpRemoveEdge ChangeOp = "remove-edge"
)

// Change is a single proposed mutation. Exactly one payload field is set,
// matching Op: Node for add-node, NodeID for remove-node, Edge for add-edge,
// EdgeID for remove-edge.
type Change struct {
	Op     ChangeOp `json:"op"`
	Node   *Node    `json:"node,omitempty"`
	NodeID string   `json:"nodeId,omitempty"`
	Edge   *Edge    `json:"edge,omitempty"`
	EdgeID string   `json:"edgeId,omitempty"`
}

// Changes is an ordered batch of mutations. Order matters: a node added
// earlier in the batch may be referenced by a later edge addition.
type Changes []Change

// Applied records the exact structural effect of an applied change batch, in
// the form needed to reverse it.
type Applied struct {
	AddedNodeIDs []string `json:"addedNodeIds,omitempty"`
	AddedEdgeIDs []string `json:"addedEdgeIds,omitempty"`
	RemovedNodes []Node   `json:"removedNodes,omitempty"`
	RemovedEdges []Edge   `json:"removedEdges,omitempty"`
}

// ApplyChanges folds an ordered change batch into a snapshot. It is pure: the
// input snapshot is never mutated. Actions apply strictly in list order, so an
// add-node earlier in the batch makes a later add-edge to it valid. Any action
// that references a missing node or edge, introduces a duplicate ID, or would
// leave a dangling edge rejects the entire batch.
func ApplyChanges(s Snapshot, changes Changes) (Snapshot, *Applied, error) {
	out := s.Clone()
	applied := &Applied{}

	for i, c := range changes {
		switch c.Op {
		case OpAddNode:
			if c.Node == nil {
				return Snapshot{}, nil, fmt.Errorf("change %d: add-node without node", i)
			}
			if _, exists := out.Node(c.Node.ID); exists {
				return Snapshot{}, nil, fmt.Errorf("change %d: %w: node %q", i, ErrDuplicateID, c.Node.ID)
			}
			out.Nodes = append(out.Nodes, c.Node.Clone())
			applied.AddedNodeIDs = append(applied.AddedNodeIDs, c.Node.ID)

		case OpRemoveNode:
			n, exists := out.Node(c.NodeID)
			if !exists {
				return Snapshot{}, nil, fmt.Errorf("change %d: %w: node %q", i, ErrMissingTarget, c.NodeID)
			}
			if incident := out.IncidentEdges(c.NodeID); len(incident) > 0 {
				return Snapshot{}, nil, fmt.Errorf("change %d: %w: node %q has %d", i, ErrIncidentEdges, c.NodeID, len(incident))
			}
			out.Nodes = removeNode(out.Nodes, c.NodeID)
			applied.RemovedNodes = append(applied.RemovedNodes, n)

		case OpAddEdge:
			if c.Edge == nil {
				return Snapshot{}, nil, fmt.Errorf("change %d: add-edge without edge", i)
			}
			if _, exists := out.Edge(c.Edge.ID); exists {
				return Snapshot{}, nil, fmt.Errorf("change %d: %w: edge %q", i, ErrDuplicateID, c.Edge.ID)
			}
			if _, ok := out.Node(c.Edge.Source); !ok {
				return Snapshot{}, nil, fmt.Errorf("change %d: %w: source %q", i, ErrDanglingEdge, c.Edge.Source)
			}
			if _, ok := out.Node(c.Edge.Target); !ok {
				return Snapshot{}, nil, fmt.Errorf("change %d: %w: target %q", i, ErrDanglingEdge, c.Edge.Target)
			}
			out.Edges = append(out.Edges, *c.Edge)
			applied.AddedEdgeIDs = append(applied.AddedEdgeIDs, c.Edge.ID)

		case OpRemoveEdge:
			e, exists := out.Edge(c.EdgeID)
			if !exists {
				return Snapshot{}, nil, fmt.Errorf("change %d: %w: edge %q", i, ErrMissingTarget, c.EdgeID)
			}
			out.Edges = removeEdge(out.Edges, c.EdgeID)
			applied.RemovedEdges = append(applied.RemovedEdges, e)

		default:
			return Snapshot{}, nil, fmt.Errorf("change %d: unknown op %q", i, c.Op)
		}
	}

	out.normalize()
	return out, applied, nil
}

// Undo reverses a previously applied change batch exactly: nodes and edges
// that were added are removed, and removed ones are restored verbatim with
// their original IDs. Applying a batch and undoing it reproduces the original
// snapshot structurally.
func Undo(s Snapshot, applied *Applied) (Snapshot, error) {
	if applied == nil {
		return Snapshot{}, errors.New("undo: nil applied record")
	}
	out := s.Clone()

	for _, id := range applied.AddedEdgeIDs {
		if _, exists := out.Edge(id); !exists {
			return Snapshot{}, fmt.Errorf("undo: %w: edge %q", ErrMissingTarget, id)
		}
		out.Edges = removeEdge(out.Edges, id)
	}
	for _, id := range applied.AddedNodeIDs {
		if _, exists := out.Node(id); !exists {
			return Snapshot{}, fmt.Errorf("undo: %w: node %q", ErrMissingTarget, id)
		}
		if incident := out.IncidentEdges(id); len(incident) > 0 {
			return Snapshot{}, fmt.Errorf("undo: %w: node %q", ErrIncidentEdges, id)
		}
		out.Nodes = removeNode(out.Nodes, id)
	}
	for _, n := range applied.RemovedNodes {
		if _, exists := out.Node(n.ID); exists {
			return Snapshot{}, fmt.Errorf("undo: %w: node %q", ErrDuplicateID, n.ID)
		}
		out.Nodes = append(out.Nodes, n.Clone())
	}
	for _, e := range applied.RemovedEdges {
		if _, exists := out.Edge(e.ID); exists {
			return Snapshot{}, fmt.Errorf("undo: %w: edge %q", ErrDuplicateID, e.ID)
		}
		out.Edges = append(out.Edges, e)
	}

	out.normalize()
	if err := out.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("undo: %w", err)
	}
	return out, nil
}

func removeNode(nodes []Node, id string) []Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

func removeEdge(edges []Edge, id string) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

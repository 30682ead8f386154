package autopilot

import (
	"fmt"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Verdict is the overall result of validating a change batch.
type Verdict string

const (
	VerdictPassed Verdict = "passed"
	VerdictFailed Verdict = "failed"
)

// DiagnosticKind identifies one class of validation failure.
type DiagnosticKind string

const (
	DiagDanglingNodeRef         DiagnosticKind = "dangling-node-ref"
	DiagDuplicateNodeID         DiagnosticKind = "duplicate-node-id"
	DiagDuplicateEdge           DiagnosticKind = "duplicate-edge"
	DiagTypeMismatch            DiagnosticKind = "type-mismatch"
	DiagUnknownPort             DiagnosticKind = "unknown-port"
	DiagMissingNode             DiagnosticKind = "missing-node"
	DiagMissingEdge             DiagnosticKind = "missing-edge"
	DiagDanglingEdgeAfterRemove DiagnosticKind = "dangling-edge-after-remove"
	DiagUnknownNodeType         DiagnosticKind = "unknown-node-type"
	DiagMalformedChange         DiagnosticKind = "malformed-change"
)

// Diagnostic is one structured validation finding.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	TargetID string         `json:"targetId,omitempty"`
	Message  string         `json:"message"`
	// Warning findings are reported but do not fail the verdict.
	Warning bool `json:"warning,omitempty"`
}

// Evaluation is the outcome of validating a change batch against a snapshot.
type Evaluation struct {
	Verdict     Verdict      `json:"verdict"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Failed reports whether the evaluation rejected the batch.
func (e Evaluation) Failed() bool {
	return e.Verdict == VerdictFailed
}

// Proposal is the JSON-stable shape an external agent submits: the request it
// was given, the snapshot it saw, and the changes it proposes.
type Proposal struct {
	UserRequest string        `json:"userRequest"`
	Snapshot    flow.Snapshot `json:"flowSnapshot"`
	Changes     flow.Changes  `json:"changes"`
}

// Validator checks proposed change batches for structural soundness. The
// registry supplies port schemas for type checking; a nil registry skips
// port-level checks.
type Validator struct {
	registry *registry.Registry
	// strict escalates unknown-port findings from warnings to failures.
	strict bool
}

// Option configures a Validator.
type Option func(*Validator)

// Strict makes unknown-port references fail validation instead of warning.
func Strict() Option {
	return func(v *Validator) { v.strict = true }
}

// NewValidator creates a Validator backed by the given registry.
func NewValidator(reg *registry.Registry, opts ...Option) *Validator {
	v := &Validator{registry: reg}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// edgeKey identifies a connection for duplicate detection.
type edgeKey struct {
	source, sourcePort, target, targetPort string
}

// Evaluate validates an ordered change batch against a snapshot. Actions are
// simulated strictly in list order, so a node added earlier in the batch
// legitimizes a later edge to it. All findings are collected; the batch is
// never partially accepted.
func (v *Validator) Evaluate(snap flow.Snapshot, changes flow.Changes) Evaluation {
	var diags []Diagnostic

	// Working view of the graph as the batch applies.
	nodes := make(map[string]flow.Node, len(snap.Nodes))
	for _, n := range snap.Nodes {
		nodes[n.ID] = n
	}
	edges := make(map[string]flow.Edge, len(snap.Edges))
	connections := make(map[edgeKey]string, len(snap.Edges))
	for _, e := range snap.Edges {
		edges[e.ID] = e
		connections[key(e)] = e.ID
	}

	for i, c := range changes {
		switch c.Op {
		case flow.OpAddNode:
			diags = append(diags, v.checkAddNode(i, c, nodes)...)
		case flow.OpRemoveNode:
			diags = append(diags, v.checkRemoveNode(i, c, nodes, edges)...)
		case flow.OpAddEdge:
			diags = append(diags, v.checkAddEdge(i, c, nodes, edges, connections)...)
		case flow.OpRemoveEdge:
			if _, ok := edges[c.EdgeID]; !ok {
				diags = append(diags, Diagnostic{
					Kind:     DiagMissingEdge,
					TargetID: c.EdgeID,
					Message:  fmt.Sprintf("action %d removes edge %q which does not exist", i, c.EdgeID),
				})
				continue
			}
			e := edges[c.EdgeID]
			delete(connections, key(e))
			delete(edges, c.EdgeID)
		default:
			diags = append(diags, Diagnostic{
				Kind:    DiagMalformedChange,
				Message: fmt.Sprintf("action %d has unknown op %q", i, c.Op),
			})
		}
	}

	verdict := VerdictPassed
	for _, d := range diags {
		if !d.Warning {
			verdict = VerdictFailed
			break
		}
	}
	return Evaluation{Verdict: verdict, Diagnostics: diags}
}

func (v *Validator) checkAddNode(i int, c flow.Change, nodes map[string]flow.Node) []Diagnostic {
	if c.Node == nil {
		return []Diagnostic{{
			Kind:    DiagMalformedChange,
			Message: fmt.Sprintf("action %d is add-node without a node payload", i),
		}}
	}
	var diags []Diagnostic
	if _, exists := nodes[c.Node.ID]; exists {
		diags = append(diags, Diagnostic{
			Kind:     DiagDuplicateNodeID,
			TargetID: c.Node.ID,
			Message:  fmt.Sprintf("action %d adds node %q which already exists", i, c.Node.ID),
		})
		return diags
	}
	if v.registry != nil && c.Node.Type != flow.NodeComment && !v.registry.Has(c.Node.Type) {
		diags = append(diags, Diagnostic{
			Kind:     DiagUnknownNodeType,
			TargetID: c.Node.ID,
			Message:  fmt.Sprintf("action %d adds node %q with unregistered type %q", i, c.Node.ID, c.Node.Type),
		})
	}
	nodes[c.Node.ID] = *c.Node
	return diags
}

func (v *Validator) checkRemoveNode(i int, c flow.Change, nodes map[string]flow.Node, edges map[string]flow.Edge) []Diagnostic {
	if _, exists := nodes[c.NodeID]; !exists {
		return []Diagnostic{{
			Kind:     DiagMissingNode,
			TargetID: c.NodeID,
			Message:  fmt.Sprintf("action %d removes node %q which does not exist", i, c.NodeID),
		}}
	}
	// Removing a node requires its incident edges to be removed earlier in
	// the same batch; anything still attached would dangle.
	var diags []Diagnostic
	for id, e := range edges {
		if e.Source == c.NodeID || e.Target == c.NodeID {
			diags = append(diags, Diagnostic{
				Kind:     DiagDanglingEdgeAfterRemove,
				TargetID: id,
				Message: fmt.Sprintf("action %d removes node %q but edge %q (%s -> %s) still references it",
					i, c.NodeID, id, e.Source, e.Target),
			})
		}
	}
	if len(diags) == 0 {
		delete(nodes, c.NodeID)
	}
	return diags
}

func (v *Validator) checkAddEdge(i int, c flow.Change, nodes map[string]flow.Node, edges map[string]flow.Edge, connections map[edgeKey]string) []Diagnostic {
	if c.Edge == nil {
		return []Diagnostic{{
			Kind:    DiagMalformedChange,
			Message: fmt.Sprintf("action %d is add-edge without an edge payload", i),
		}}
	}
	e := *c.Edge
	var diags []Diagnostic

	srcNode, srcOK := nodes[e.Source]
	if !srcOK {
		diags = append(diags, Diagnostic{
			Kind:     DiagDanglingNodeRef,
			TargetID: e.ID,
			Message:  fmt.Sprintf("action %d adds edge %q whose source node %q does not exist", i, e.ID, e.Source),
		})
	}
	dstNode, dstOK := nodes[e.Target]
	if !dstOK {
		diags = append(diags, Diagnostic{
			Kind:     DiagDanglingNodeRef,
			TargetID: e.ID,
			Message:  fmt.Sprintf("action %d adds edge %q whose target node %q does not exist", i, e.ID, e.Target),
		})
	}
	if dup, exists := connections[key(e)]; exists {
		diags = append(diags, Diagnostic{
			Kind:     DiagDuplicateEdge,
			TargetID: e.ID,
			Message: fmt.Sprintf("action %d adds edge %q duplicating existing connection %q (%s:%s -> %s:%s)",
				i, e.ID, dup, e.Source, e.SourcePort, e.Target, e.TargetPort),
		})
	}
	if _, exists := edges[e.ID]; exists {
		diags = append(diags, Diagnostic{
			Kind:     DiagDuplicateEdge,
			TargetID: e.ID,
			Message:  fmt.Sprintf("action %d reuses edge ID %q", i, e.ID),
		})
	}

	if srcOK && dstOK {
		diags = append(diags, v.checkPorts(i, e, srcNode, dstNode)...)
	}

	hasFailure := false
	for _, d := range diags {
		if !d.Warning {
			hasFailure = true
			break
		}
	}
	if !hasFailure {
		edges[e.ID] = e
		connections[key(e)] = e.ID
	}
	return diags
}

// checkPorts validates the edge against the declared port schemas of both
// endpoint types: the ports must exist and the declared data types must be
// compatible. Mismatches are reported, never silently coerced.
func (v *Validator) checkPorts(i int, e flow.Edge, src, dst flow.Node) []Diagnostic {
	if v.registry == nil {
		return nil
	}
	var diags []Diagnostic

	var srcType, dstType flow.PortType
	if def, ok := v.registry.Get(src.Type); ok {
		if p, ok := def.OutputPort(e.SourcePort); ok {
			srcType = p.Type
		} else {
			diags = append(diags, Diagnostic{
				Kind:     DiagUnknownPort,
				TargetID: e.ID,
				Warning:  !v.strict,
				Message: fmt.Sprintf("action %d: edge %q references output port %s not declared by type %q",
					i, e.ID, portLabel(e.SourcePort), src.Type),
			})
		}
	}
	if def, ok := v.registry.Get(dst.Type); ok {
		if p, ok := def.InputPort(e.TargetPort); ok {
			dstType = p.Type
		} else {
			diags = append(diags, Diagnostic{
				Kind:     DiagUnknownPort,
				TargetID: e.ID,
				Warning:  !v.strict,
				Message: fmt.Sprintf("action %d: edge %q references input port %s not declared by type %q",
					i, e.ID, portLabel(e.TargetPort), dst.Type),
			})
		}
	}

	if srcType != "" && dstType != "" && !compatible(srcType, dstType) {
		diags = append(diags, Diagnostic{
			Kind:     DiagTypeMismatch,
			TargetID: e.ID,
			Message: fmt.Sprintf("action %d: edge %q connects %s output to %s input",
				i, e.ID, srcType, dstType),
		})
	}
	if e.DataType != "" && srcType != "" && e.DataType != srcType && !compatible(srcType, e.DataType) {
		diags = append(diags, Diagnostic{
			Kind:     DiagTypeMismatch,
			TargetID: e.ID,
			Message: fmt.Sprintf("action %d: edge %q declares data type %s but its source port carries %s",
				i, e.ID, e.DataType, srcType),
		})
	}
	return diags
}

// compatible reports whether a value of type from may flow into a port of
// type to: exact match, or an explicitly allowed coercion. Pulse never
// coerces.
func compatible(from, to flow.PortType) bool {
	if from == to {
		return true
	}
	// The only permitted coercion: a plain string may feed a response port.
	return from == flow.PortString && to == flow.PortResponse
}

func key(e flow.Edge) edgeKey {
	return edgeKey{source: e.Source, sourcePort: e.SourcePort, target: e.Target, targetPort: e.TargetPort}
}

func portLabel(port string) string {
	if port == flow.DefaultPort {
		return "(default)"
	}
	return fmt.Sprintf("%q", port)
}

package scheduler

import (
	"github.com/flowgrid/flowgrid/internal/flow"
)

// ResolveInput is the single input-merging policy for a port: connected
// edges win over the node's own stored data, and among multiple edge values
// the first non-empty one (in edge-insertion order) is taken. When no edge
// supplies a value, the node's stored data backs the port. It returns nil
// when the input is absent.
//
// This rule is load-bearing for multi-edge inputs and must not be reimplemented
// ad hoc inside executors.
func ResolveInput(edgeValues []any, nodeValue any) any {
	for _, v := range edgeValues {
		if !isEmpty(v) {
			return v
		}
	}
	if !isEmpty(nodeValue) {
		return nodeValue
	}
	return nil
}

// resolveInputs builds the executor's port-name -> value map. Only outputs of
// succeeded upstream nodes participate; anything else is absent.
func (r *run) resolveInputs(ns *nodeState) map[string]any {
	candidates := make(map[string][]any)
	for _, e := range r.snap.EdgesInto(ns.node.ID) {
		if e.IsPulse() {
			continue
		}
		src, ok := r.nodes[e.Source]
		if !ok || src.stateCode() != codeSucceeded {
			continue
		}
		candidates[e.TargetPort] = append(candidates[e.TargetPort], src.outputValue())
	}

	inputs := make(map[string]any)
	for port, values := range candidates {
		if v := ResolveInput(values, portDataValue(ns.node, port)); v != nil {
			inputs[port] = v
		}
	}
	// Declared ports with no incoming edge fall back to node data alone.
	for _, p := range ns.def.Inputs {
		if _, done := inputs[p.Name]; done {
			continue
		}
		if v := portDataValue(ns.node, p.Name); !isEmpty(v) {
			inputs[p.Name] = v
		}
	}
	return inputs
}

// portDataValue looks up the node data field backing a port. The default
// port reads the conventional "value" key.
func portDataValue(n flow.Node, port string) any {
	if n.Data == nil {
		return nil
	}
	if port == flow.DefaultPort {
		return n.Data[flow.DefaultPortDataKey]
	}
	return n.Data[port]
}

// isEmpty reports whether a resolved value counts as "no input" for the
// first-non-empty rule.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

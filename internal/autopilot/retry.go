package autopilot

import (
	"fmt"
	"strings"
)

// BuildRetryContext formats a failed evaluation into guidance an agent can
// use to produce a corrected change batch. This is purely a summarization of
// diagnostics already produced; it performs no additional validation.
func BuildRetryContext(p Proposal, eval Evaluation) string {
	if !eval.Failed() {
		return ""
	}

	var b strings.Builder
	b.WriteString("The proposed flow changes were rejected. Fix the problems below and submit a corrected batch.\n")
	if p.UserRequest != "" {
		fmt.Fprintf(&b, "\nOriginal request: %s\n", p.UserRequest)
	}

	b.WriteString("\nProblems:\n")
	for _, d := range eval.Diagnostics {
		if d.Warning {
			fmt.Fprintf(&b, "- (warning) [%s] %s\n", d.Kind, d.Message)
			continue
		}
		fmt.Fprintf(&b, "- [%s] %s\n", d.Kind, d.Message)
	}

	b.WriteString("\nRejected actions:\n")
	for i, c := range p.Changes {
		fmt.Fprintf(&b, "%d. %s", i, c.Op)
		switch {
		case c.Node != nil:
			fmt.Fprintf(&b, " node %q (type %s)", c.Node.ID, c.Node.Type)
		case c.NodeID != "":
			fmt.Fprintf(&b, " node %q", c.NodeID)
		case c.Edge != nil:
			fmt.Fprintf(&b, " edge %q (%s -> %s)", c.Edge.ID, c.Edge.Source, c.Edge.Target)
		case c.EdgeID != "":
			fmt.Fprintf(&b, " edge %q", c.EdgeID)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nRules: every edge endpoint must exist (or be added earlier in the same batch); ")
	b.WriteString("node IDs must be unique; removing a node requires removing its incident edges first; ")
	b.WriteString("port data types must match, except string outputs feeding response inputs.\n")
	return b.String()
}

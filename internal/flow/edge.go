package flow

// Edge is a directed connection from a source node's output port to a target
// node's input port. An empty port name refers to the node's single default
// port. Many-to-one and one-to-many wiring is allowed; how multiple inputs
// combine is an executor-level policy, not a structural property.
type Edge struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	SourcePort string `json:"sourcePort,omitempty"`
	Target     string `json:"target"`
	TargetPort string `json:"targetPort,omitempty"`
	// DataType is the declared payload type, used for canvas coloring and
	// validator type checking. Empty means undeclared.
	DataType PortType `json:"dataType,omitempty"`
}

// IsPulse reports whether the edge carries a control pulse rather than data.
func (e Edge) IsPulse() bool {
	return e.DataType == PortPulse
}

package switch_gate

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunSwitch is the handler for the 'switch' node. It passes its data input
// through and emits a control pulse reflecting the node's enabled flag.
// Downstream pulse-gated nodes run only when the pulse is true.
func OnRunSwitch(ctx context.Context, ec *registry.Context) registry.Result {
	enabled := true
	if _, present := ec.Node.Data["enabled"]; present {
		enabled = ec.Node.DataBool("enabled")
	}
	return registry.Result{
		Output: ec.Input(flow.DefaultPort),
		Pulse:  &enabled,
	}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type:        flow.NodeSwitch,
		PulseOutput: true,
		Inputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString, Optional: true},
		},
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString},
			{Name: flow.PulsePort, Type: flow.PortPulse},
		},
		Run: OnRunSwitch,
	})
}

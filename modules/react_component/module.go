package react_component

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunReactComponent is the handler for the 'react-component' node. The
// component source renders in the browser; on the engine side the node passes
// its props input through, falling back to the code stored on the node.
func OnRunReactComponent(ctx context.Context, ec *registry.Context) registry.Result {
	if v := ec.Input(flow.DefaultPort); v != nil {
		return registry.Result{Output: v}
	}
	return registry.Result{Output: ec.Node.DataString("code")}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodeReactComponent,
		Inputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString, Optional: true},
		},
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString},
		},
		Run: OnRunReactComponent,
	})
}

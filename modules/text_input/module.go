package text_input

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunTextInput is the handler for the 'text-input' node. The node is a
// source: it emits the text stored on the node itself.
func OnRunTextInput(ctx context.Context, ec *registry.Context) registry.Result {
	return registry.Result{Output: ec.Node.DataString(flow.DefaultPortDataKey)}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodeTextInput,
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString},
		},
		Run: OnRunTextInput,
	})
}

package image_input

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunImageInput is the handler for the 'image-input' node. It emits the
// image reference stored on the node (an upload URL or data URI).
func OnRunImageInput(ctx context.Context, ec *registry.Context) registry.Result {
	return registry.Result{Output: ec.Node.DataString(flow.DefaultPortDataKey)}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodeImageInput,
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortImage},
		},
		Run: OnRunImageInput,
	})
}

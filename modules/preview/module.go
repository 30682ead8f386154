package preview

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunPreview is the handler for the 'preview-output' node. It passes its
// input through unchanged; the canvas renders whatever settles here. The
// input is required, so an upstream failure skips the preview instead of
// showing stale content.
func OnRunPreview(ctx context.Context, ec *registry.Context) registry.Result {
	return registry.Result{Output: ec.Input(flow.DefaultPort)}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodePreviewOutput,
		Inputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortResponse},
		},
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortResponse},
		},
		Run: OnRunPreview,
	})
}

package comment

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunComment is the handler for the 'comment' node. Comments are visual
// containers only; the scheduler never routes data or control through them,
// so this handler exists to keep the type registered and is inert.
func OnRunComment(ctx context.Context, ec *registry.Context) registry.Result {
	return registry.Result{}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodeComment,
		Run:  OnRunComment,
	})
}

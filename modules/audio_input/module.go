package audio_input

import (
	"context"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunAudioInput is the handler for the 'audio-input' node. It emits the
// audio reference stored on the node.
func OnRunAudioInput(ctx context.Context, ec *registry.Context) registry.Result {
	return registry.Result{Output: ec.Node.DataString(flow.DefaultPortDataKey)}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodeAudioInput,
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortAudio},
		},
		Run: OnRunAudioInput,
	})
}

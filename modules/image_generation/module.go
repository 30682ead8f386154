package image_generation

import (
	"context"
	"errors"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/provider"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunImageGeneration is the handler for the 'image-generation' node. It
// turns a text prompt into an image reference via the provider.
func OnRunImageGeneration(ctx context.Context, ec *registry.Context) registry.Result {
	if ec.Providers == nil {
		return registry.Result{Err: errors.New("no provider configured")}
	}
	prompt := ec.InputString(flow.DefaultPort)
	if prompt == "" {
		return registry.Result{Err: errors.New("empty prompt")}
	}

	resp, err := ec.Providers.Generate(ctx, provider.Request{
		Provider: ec.Node.DataString("provider"),
		Model:    ec.Node.DataString("model"),
		Prompt:   prompt,
		Payload:  map[string]any{"modality": "image"},
	})
	if err != nil {
		return registry.Result{Err: err}
	}
	if img, ok := resp.Data["image"].(string); ok && img != "" {
		return registry.Result{Output: img}
	}
	return registry.Result{Output: resp.Text}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodeImageGeneration,
		Inputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString},
		},
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortImage},
		},
		Run: OnRunImageGeneration,
	})
}

package ai_logic

import (
	"context"
	"errors"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/provider"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunAILogic is the handler for the 'ai-logic' node. It applies the
// node's stored instructions to whatever arrives on the default port, using
// the instructions as the system prompt.
func OnRunAILogic(ctx context.Context, ec *registry.Context) registry.Result {
	if ec.Providers == nil {
		return registry.Result{Err: errors.New("no provider configured")}
	}
	input := ec.InputString(flow.DefaultPort)
	instructions := ec.Node.DataString("instructions")
	if instructions == "" {
		return registry.Result{Err: errors.New("ai-logic node has no instructions")}
	}

	resp, err := ec.Providers.Generate(ctx, provider.Request{
		Provider: ec.Node.DataString("provider"),
		Model:    ec.Node.DataString("model"),
		Prompt:   input,
		System:   instructions,
	})
	if err != nil {
		return registry.Result{Err: err}
	}
	return registry.Result{Output: resp.Text}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodeAILogic,
		Inputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString},
		},
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortResponse},
		},
		Run: OnRunAILogic,
	})
}

package text_generation

import (
	"context"
	"errors"

	"github.com/flowgrid/flowgrid/internal/ctxlog"
	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/provider"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunTextGeneration is the handler for the 'text-generation' node. The
// prompt arrives on the default port; an optional system prompt on the
// 'system' port overrides the one stored on the node.
func OnRunTextGeneration(ctx context.Context, ec *registry.Context) registry.Result {
	logger := ctxlog.FromContext(ctx).With("node", ec.Node.ID, "type", ec.Node.Type)

	if ec.Providers == nil {
		return registry.Result{Err: errors.New("no provider configured")}
	}
	prompt := ec.InputString(flow.DefaultPort)
	if prompt == "" {
		return registry.Result{Err: errors.New("empty prompt")}
	}
	system := ec.InputString("system")
	if system == "" {
		system = ec.Node.DataString("systemPrompt")
	}

	req := provider.Request{
		Provider: ec.Node.DataString("provider"),
		Model:    ec.Node.DataString("model"),
		Prompt:   prompt,
		System:   system,
	}
	logger.Debug("Calling text provider.", "provider", req.Provider, "model", req.Model)
	resp, err := ec.Providers.Generate(ctx, req)
	if err != nil {
		return registry.Result{Err: err}
	}
	return registry.Result{Output: resp.Text}
}

// Register registers the executor with the engine. Downstream tracking is
// declared so the canvas re-evaluates dependents while tokens stream in.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type:            flow.NodeTextGeneration,
		TrackDownstream: true,
		Inputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString},
			{Name: "system", Type: flow.PortString, Optional: true},
		},
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortResponse},
		},
		Run: OnRunTextGeneration,
	})
}

package transcription

import (
	"context"
	"errors"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/provider"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnRunTranscription is the handler for the 'audio-transcription' node.
func OnRunTranscription(ctx context.Context, ec *registry.Context) registry.Result {
	if ec.Providers == nil {
		return registry.Result{Err: errors.New("no provider configured")}
	}
	audio := ec.Input(flow.DefaultPort)
	if audio == nil {
		return registry.Result{Err: errors.New("no audio input")}
	}

	resp, err := ec.Providers.Transcribe(ctx, provider.Request{
		Provider: ec.Node.DataString("provider"),
		Model:    ec.Node.DataString("model"),
		Payload:  map[string]any{"audio": audio},
	})
	if err != nil {
		return registry.Result{Err: err}
	}
	return registry.Result{Output: resp.Text}
}

// Register registers the executor with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Definition{
		Type: flow.NodeAudioTranscription,
		Inputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortAudio},
		},
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString},
		},
		Run: OnRunTranscription,
	})
}

package text_generation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/provider"
	"github.com/flowgrid/flowgrid/internal/registry"
)

func TestOnRunTextGeneration(t *testing.T) {
	node := flow.Node{
		ID:   "gen",
		Type: flow.NodeTextGeneration,
		Data: map[string]any{"provider": "test", "model": "small"},
	}

	t.Run("forwards prompt and node settings to the provider", func(t *testing.T) {
		var seen provider.Request
		client := &provider.StaticClient{
			GenerateFn: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
				seen = req
				return &provider.Response{Text: "a poem"}, nil
			},
		}

		res := OnRunTextGeneration(context.Background(), &registry.Context{
			Node:      node,
			Inputs:    map[string]any{flow.DefaultPort: "write a poem", "system": "be brief"},
			Providers: client,
		})

		require.NoError(t, res.Err)
		assert.Equal(t, "a poem", res.Output)
		assert.Equal(t, "test", seen.Provider)
		assert.Equal(t, "small", seen.Model)
		assert.Equal(t, "write a poem", seen.Prompt)
		assert.Equal(t, "be brief", seen.System)
	})

	t.Run("node system prompt backs an unconnected system port", func(t *testing.T) {
		var seen provider.Request
		client := &provider.StaticClient{
			GenerateFn: func(ctx context.Context, req provider.Request) (*provider.Response, error) {
				seen = req
				return &provider.Response{Text: "ok"}, nil
			},
		}
		n := node.Clone()
		n.Data["systemPrompt"] = "stored instructions"

		res := OnRunTextGeneration(context.Background(), &registry.Context{
			Node:      n,
			Inputs:    map[string]any{flow.DefaultPort: "hi"},
			Providers: client,
		})

		require.NoError(t, res.Err)
		assert.Equal(t, "stored instructions", seen.System)
	})

	t.Run("provider failure is a value, not a panic", func(t *testing.T) {
		client := &provider.StaticClient{Err: &provider.Error{
			Kind: provider.KindRateLimited, Provider: "test", Message: "slow down",
		}}

		res := OnRunTextGeneration(context.Background(), &registry.Context{
			Node:      node,
			Inputs:    map[string]any{flow.DefaultPort: "hi"},
			Providers: client,
		})

		require.Error(t, res.Err)
		assert.True(t, provider.IsKind(res.Err, provider.KindRateLimited))
	})

	t.Run("empty prompt fails", func(t *testing.T) {
		res := OnRunTextGeneration(context.Background(), &registry.Context{
			Node:      node,
			Inputs:    map[string]any{},
			Providers: &provider.StaticClient{},
		})
		assert.ErrorContains(t, res.Err, "empty prompt")
	})

	t.Run("missing provider fails", func(t *testing.T) {
		res := OnRunTextGeneration(context.Background(), &registry.Context{
			Node:   node,
			Inputs: map[string]any{flow.DefaultPort: "hi"},
		})
		assert.ErrorContains(t, res.Err, "no provider configured")
	})
}

func TestRegister(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)

	def, ok := r.Get(flow.NodeTextGeneration)
	require.True(t, ok)
	assert.True(t, def.TrackDownstream)

	p, ok := def.InputPort("system")
	require.True(t, ok)
	assert.True(t, p.Optional)
	assert.True(t, r.ShouldTrackDownstream(flow.NodeTextGeneration))
}

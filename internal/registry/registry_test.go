package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/internal/flow"
)

func noopRun(ctx context.Context, ec *Context) Result {
	return Result{}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	r := New()
	r.Register(&Definition{Type: flow.NodeTextInput, Run: noopRun})

	assert.PanicsWithValue(t,
		`registry: duplicate executor registration for type "text-input"`,
		func() {
			r.Register(&Definition{Type: flow.NodeTextInput, Run: noopRun})
		})
}

func TestRegister_InvalidDefinitionsPanic(t *testing.T) {
	r := New()

	assert.Panics(t, func() { r.Register(nil) })
	assert.Panics(t, func() { r.Register(&Definition{Run: noopRun}) })
	assert.Panics(t, func() { r.Register(&Definition{Type: flow.NodeSwitch}) })
}

func TestGet_NeverPanics(t *testing.T) {
	r := New()
	def, ok := r.Get("does-not-exist")
	assert.False(t, ok)
	assert.Nil(t, def)
}

func TestCapabilityQueries(t *testing.T) {
	r := New()
	r.Register(&Definition{Type: flow.NodeSwitch, PulseOutput: true, Run: noopRun})
	r.Register(&Definition{Type: flow.NodeTextGeneration, TrackDownstream: true, Run: noopRun})
	r.Register(&Definition{Type: flow.NodeTextInput, Run: noopRun})

	assert.True(t, r.HasPulseOutput(flow.NodeSwitch))
	assert.False(t, r.HasPulseOutput(flow.NodeTextInput))
	assert.True(t, r.ShouldTrackDownstream(flow.NodeTextGeneration))
	assert.False(t, r.ShouldTrackDownstream(flow.NodeTextInput))

	// Unknown types answer false, never panic.
	assert.False(t, r.HasPulseOutput("unknown"))
	assert.False(t, r.ShouldTrackDownstream("unknown"))
}

func TestTypes_Sorted(t *testing.T) {
	r := New()
	r.Register(&Definition{Type: flow.NodeTextInput, Run: noopRun})
	r.Register(&Definition{Type: flow.NodeAILogic, Run: noopRun})
	r.Register(&Definition{Type: flow.NodeSwitch, Run: noopRun})

	assert.Equal(t,
		[]flow.NodeType{flow.NodeAILogic, flow.NodeSwitch, flow.NodeTextInput},
		r.Types())
}

func TestClear(t *testing.T) {
	r := New()
	r.Register(&Definition{Type: flow.NodeTextInput, Run: noopRun})
	require.True(t, r.Has(flow.NodeTextInput))

	r.Clear()
	assert.False(t, r.Has(flow.NodeTextInput))

	// Re-registering after Clear works.
	r.Register(&Definition{Type: flow.NodeTextInput, Run: noopRun})
	assert.True(t, r.Has(flow.NodeTextInput))
}

func TestDefinition_PortLookup(t *testing.T) {
	def := &Definition{
		Type: flow.NodeTextGeneration,
		Inputs: []Port{
			{Name: flow.DefaultPort, Type: flow.PortString},
			{Name: "system", Type: flow.PortString, Optional: true},
		},
		Outputs: []Port{{Name: flow.DefaultPort, Type: flow.PortResponse}},
		Run:     noopRun,
	}

	p, ok := def.InputPort("system")
	require.True(t, ok)
	assert.True(t, p.Optional)

	_, ok = def.InputPort("missing")
	assert.False(t, ok)

	p, ok = def.OutputPort(flow.DefaultPort)
	require.True(t, ok)
	assert.Equal(t, flow.PortResponse, p.Type)
}

package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowgrid/flowgrid/internal/flow"
)

func TestResolveInput(t *testing.T) {
	t.Run("first non-empty edge value wins", func(t *testing.T) {
		got := ResolveInput([]any{"", nil, "second", "third"}, "node-data")
		assert.Equal(t, "second", got)
	})

	t.Run("edge values beat node data", func(t *testing.T) {
		got := ResolveInput([]any{"from-edge"}, "node-data")
		assert.Equal(t, "from-edge", got)
	})

	t.Run("node data backs an empty edge set", func(t *testing.T) {
		got := ResolveInput(nil, "node-data")
		assert.Equal(t, "node-data", got)

		got = ResolveInput([]any{"", nil}, "node-data")
		assert.Equal(t, "node-data", got)
	})

	t.Run("absent everywhere resolves to nil", func(t *testing.T) {
		assert.Nil(t, ResolveInput(nil, nil))
		assert.Nil(t, ResolveInput([]any{""}, ""))
	})

	t.Run("empty collections count as absent", func(t *testing.T) {
		got := ResolveInput([]any{[]any{}, map[string]any{}}, "fallback")
		assert.Equal(t, "fallback", got)
	})

	t.Run("false and zero are values, not absence", func(t *testing.T) {
		assert.Equal(t, false, ResolveInput([]any{false}, "fallback"))
		assert.Equal(t, 0, ResolveInput([]any{0}, "fallback"))
	})
}

func TestPortDataValue(t *testing.T) {
	n := flow.Node{Data: map[string]any{
		"value":  "default-backing",
		"system": "system-backing",
	}}

	assert.Equal(t, "default-backing", portDataValue(n, flow.DefaultPort))
	assert.Equal(t, "system-backing", portDataValue(n, "system"))
	assert.Nil(t, portDataValue(n, "missing"))
	assert.Nil(t, portDataValue(flow.Node{}, flow.DefaultPort))
}

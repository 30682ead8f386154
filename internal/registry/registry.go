package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/provider"
)

// Port declares one named input or output of a node type. An empty name is
// the node's single default port.
type Port struct {
	Name string
	Type flow.PortType
	// Optional marks an input whose absence (including upstream failure)
	// must not prevent the node from running.
	Optional bool
}

// Context bundles everything an executor may consume: the node being
// executed, its resolved inputs keyed by port name, and the injected provider
// capability. Cancellation travels through the ctx argument of ExecFunc.
type Context struct {
	Node      flow.Node
	Inputs    map[string]any
	Providers provider.Client
}

// Input returns the resolved value for a port, or nil when absent.
func (c *Context) Input(port string) any {
	return c.Inputs[port]
}

// InputString returns the resolved value for a port as a string, or "" when
// absent or not a string.
func (c *Context) InputString(port string) string {
	s, _ := c.Inputs[port].(string)
	return s
}

// Result is the outcome of one executor invocation. Expected runtime failures
// are reported through Err as values; executors only panic on contract
// violations.
type Result struct {
	Output any
	// Pulse is the value of the conventional pulse output port, set only by
	// executors whose definition declares PulseOutput.
	Pulse *bool
	Err   error
}

// ExecFunc computes a node's output from its execution context.
type ExecFunc func(ctx context.Context, ec *Context) Result

// Definition is the registered surface of one node type.
type Definition struct {
	Type flow.NodeType
	// PulseOutput declares that Run emits a control pulse on the "pulse"
	// output port in addition to any data output.
	PulseOutput bool
	// TrackDownstream declares that downstream nodes should be re-evaluated
	// incrementally while this node streams partial output.
	TrackDownstream bool
	Inputs          []Port
	Outputs         []Port
	Run             ExecFunc
}

// InputPort returns the declared input port with the given name.
func (d *Definition) InputPort(name string) (Port, bool) {
	for _, p := range d.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// OutputPort returns the declared output port with the given name.
func (d *Definition) OutputPort(name string) (Port, bool) {
	for _, p := range d.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Module is implemented by packages that contribute executors.
type Module interface {
	Register(r *Registry)
}

// Registry holds the executor definitions for one application instance.
// All methods are safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[flow.NodeType]*Definition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[flow.NodeType]*Definition)}
}

// Register adds a definition. Registering the same type tag twice, or a
// definition without a type or Run function, is a programming error and
// panics.
func (r *Registry) Register(def *Definition) {
	if def == nil || def.Type == "" {
		panic("registry: definition must have a type")
	}
	if def.Run == nil {
		panic(fmt.Sprintf("registry: definition for %q has no Run function", def.Type))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Type]; exists {
		panic(fmt.Sprintf("registry: duplicate executor registration for type %q", def.Type))
	}
	slog.Debug("Registering executor.", "type", def.Type)
	r.defs[def.Type] = def
}

// Get returns the definition for a type. Callers must check ok before
// invoking; Get never panics.
func (r *Registry) Get(t flow.NodeType) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[t]
	return def, ok
}

// Has reports whether a type is registered.
func (r *Registry) Has(t flow.NodeType) bool {
	_, ok := r.Get(t)
	return ok
}

// Types returns all registered type tags, sorted for stable output.
func (r *Registry) Types() []flow.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]flow.NodeType, 0, len(r.defs))
	for t := range r.defs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HasPulseOutput reports whether the type's executor declares a control-pulse
// output. Unknown types report false.
func (r *Registry) HasPulseOutput(t flow.NodeType) bool {
	def, ok := r.Get(t)
	return ok && def.PulseOutput
}

// ShouldTrackDownstream reports whether downstream nodes should be
// re-evaluated incrementally while this type streams partial output. Unknown
// types report false.
func (r *Registry) ShouldTrackDownstream(t flow.NodeType) bool {
	def, ok := r.Get(t)
	return ok && def.TrackDownstream
}

// Clear removes all registrations. It exists for test harnesses that need
// full teardown between isolated runs.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs = make(map[flow.NodeType]*Definition)
}

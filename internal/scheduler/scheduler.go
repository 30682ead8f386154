package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flowgrid/flowgrid/internal/ctxlog"
	"github.com/flowgrid/flowgrid/internal/dag"
	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/provider"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// ErrUnregisteredType is returned when the snapshot references a node type
// with no registered executor. This is fatal: the run aborts before any node
// executes.
var ErrUnregisteredType = errors.New("unregistered node type")

// Scheduler executes flow snapshots against a registry of executors. It owns
// only transient execution state; snapshots pass through it by value and are
// never mutated.
type Scheduler struct {
	registry  *registry.Registry
	providers provider.Client

	// maxConcurrent bounds simultaneous executor invocations; zero means
	// unbounded.
	maxConcurrent int
	events        chan<- Event

	// mu guards the cached outputs of the most recent run, consumed by
	// RunFrom for nodes outside the re-run subset.
	mu          sync.Mutex
	lastOutputs map[string]any
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithProviders injects the AI provider capability passed to executors.
func WithProviders(c provider.Client) Option {
	return func(s *Scheduler) { s.providers = c }
}

// WithMaxConcurrent bounds how many executors run simultaneously, typically
// to limit outbound provider calls.
func WithMaxConcurrent(n int) Option {
	return func(s *Scheduler) { s.maxConcurrent = n }
}

// WithEvents attaches a status stream. Sends are non-blocking: if the channel
// is full the event is dropped with a warning rather than stalling execution.
func WithEvents(ch chan<- Event) Option {
	return func(s *Scheduler) { s.events = ch }
}

// New creates a Scheduler.
func New(reg *registry.Registry, opts ...Option) *Scheduler {
	s := &Scheduler{registry: reg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the whole snapshot and blocks until every node settles or the
// context is cancelled.
func (s *Scheduler) Run(ctx context.Context, snap flow.Snapshot) (*RunResult, error) {
	return s.run(ctx, snap, "")
}

// RunFrom re-executes the given node and its downstream closure. Nodes
// outside the subset keep the outputs cached from the previous run and are
// not re-invoked.
func (s *Scheduler) RunFrom(ctx context.Context, snap flow.Snapshot, startID string) (*RunResult, error) {
	if startID == "" {
		return nil, errors.New("scheduler: RunFrom requires a start node")
	}
	return s.run(ctx, snap, startID)
}

// Reset discards all cached outputs from previous runs. It touches only
// transient execution state, never the snapshot.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastOutputs = nil
}

func (s *Scheduler) run(ctx context.Context, snap flow.Snapshot, startID string) (*RunResult, error) {
	logger := ctxlog.FromContext(ctx)

	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	// Every scheduled type needs an executor before anything runs.
	for _, n := range snap.Nodes {
		if n.Type == flow.NodeComment {
			continue
		}
		if !s.registry.Has(n.Type) {
			return nil, fmt.Errorf("%w: %q (node %s)", ErrUnregisteredType, n.Type, n.ID)
		}
	}

	graph, err := buildGraph(snap)
	if err != nil {
		if errors.Is(err, dag.ErrCycle) {
			return cycleResult(snap, err), err
		}
		return nil, err
	}
	if err := graph.DetectCycle(); err != nil {
		logger.Error("Dependency cycle in data/pulse subgraph, aborting run.", "error", err)
		return cycleResult(snap, err), err
	}

	subset, err := s.subsetFor(graph, startID)
	if err != nil {
		return nil, err
	}

	r := newRun(s, snap, graph, subset)
	r.execute(ctx)

	result := r.result(ctx)
	s.mu.Lock()
	s.lastOutputs = result.Outputs
	s.mu.Unlock()
	return result, nil
}

// subsetFor resolves which nodes are re-executed: everything for a full run,
// or the downstream closure of startID.
func (s *Scheduler) subsetFor(graph *dag.Graph, startID string) (map[string]bool, error) {
	if startID == "" {
		subset := make(map[string]bool, graph.Len())
		for _, id := range graph.IDs() {
			subset[id] = true
		}
		return subset, nil
	}
	if !graph.Has(startID) {
		return nil, fmt.Errorf("scheduler: start node %q not in execution graph", startID)
	}
	ids, err := graph.DownstreamOf(startID)
	if err != nil {
		return nil, err
	}
	subset := make(map[string]bool, len(ids))
	for _, id := range ids {
		subset[id] = true
	}
	return subset, nil
}

// buildGraph derives the execution graph from a snapshot: data and pulse
// edges only, comment containment ignored.
func buildGraph(snap flow.Snapshot) (*dag.Graph, error) {
	g := dag.New()
	executable := make(map[string]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if n.Type == flow.NodeComment {
			continue
		}
		executable[n.ID] = true
		g.Add(n.ID)
	}
	for _, e := range snap.Edges {
		// Edges touching comment nodes are cosmetic containment.
		if !executable[e.Source] || !executable[e.Target] {
			continue
		}
		if err := g.Link(e.Source, e.Target); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// cycleResult reports every executable node as failed with a cycle
// diagnostic; no executor has run.
func cycleResult(snap flow.Snapshot, cause error) *RunResult {
	res := &RunResult{
		Outcome: OutcomeFailed,
		States:  make(map[string]Status),
		Errs:    make(map[string]error),
	}
	for _, n := range snap.Nodes {
		if n.Type == flow.NodeComment {
			continue
		}
		res.States[n.ID] = StatusFailed
		res.Errs[n.ID] = cause
	}
	return res
}

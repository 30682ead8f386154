package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/flowgrid/flowgrid/internal/ctxlog"
	"github.com/flowgrid/flowgrid/internal/dag"
	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

// nodeState is the transient per-run state of one executable node.
type nodeState struct {
	node flow.Node
	def  *registry.Definition

	state    atomic.Int32
	depCount atomic.Int32
	// settleOnce guarantees a node reaches exactly one terminal state even
	// when cancellation races its executor returning.
	settleOnce sync.Once

	mu     sync.Mutex
	output any
	pulse  *bool
	err    error

	// presettled nodes carry a cached output from a previous run and are
	// outside the re-run subset.
	presettled bool
}

func (ns *nodeState) stateCode() statusCode {
	return statusCode(ns.state.Load())
}

func (ns *nodeState) status() Status {
	return statusNames[ns.stateCode()]
}

func (ns *nodeState) outputValue() any {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.output
}

func (ns *nodeState) pulseValue() bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.pulse != nil && *ns.pulse
}

// run is the state of a single execution.
type run struct {
	sched  *Scheduler
	snap   flow.Snapshot
	graph  *dag.Graph
	subset map[string]bool
	nodes  map[string]*nodeState

	wg        sync.WaitGroup
	sem       chan struct{}
	cancelled atomic.Bool
}

func newRun(s *Scheduler, snap flow.Snapshot, graph *dag.Graph, subset map[string]bool) *run {
	r := &run{
		sched:  s,
		snap:   snap,
		graph:  graph,
		subset: subset,
		nodes:  make(map[string]*nodeState, graph.Len()),
	}
	if s.maxConcurrent > 0 {
		r.sem = make(chan struct{}, s.maxConcurrent)
	}

	s.mu.Lock()
	cached := s.lastOutputs
	s.mu.Unlock()

	for _, id := range graph.IDs() {
		n, _ := snap.Node(id)
		def, _ := s.registry.Get(n.Type)
		ns := &nodeState{node: n, def: def}
		if !subset[id] {
			// Outside the re-run subset: keep the prior cached output and
			// treat the node as already settled.
			ns.presettled = true
			ns.state.Store(int32(codeSucceeded))
			if cached != nil {
				ns.output = cached[id]
			}
		}
		r.nodes[id] = ns
	}

	// A node's dependency count only covers upstream nodes that will
	// actually run; presettled nodes are terminal from the start.
	for id := range subset {
		deps, _ := graph.Dependencies(id)
		var count int32
		for _, dep := range deps {
			if subset[dep] {
				count++
			}
		}
		r.nodes[id].depCount.Store(count)
	}
	return r
}

// execute launches all eligible nodes concurrently and unblocks dependents as
// upstream nodes settle. It returns once every subset node is terminal.
func (r *run) execute(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)

	ready := make(chan *nodeState, len(r.nodes))
	r.wg.Add(len(r.subset))

	rootCount := 0
	for id := range r.subset {
		ns := r.nodes[id]
		if ns.depCount.Load() == 0 {
			r.markQueued(ctx, ns)
			ready <- ns
			rootCount++
		}
	}
	logger.Debug("Run starting.", "nodes", len(r.subset), "roots", rootCount)

	go func() {
		r.wg.Wait()
		close(ready)
	}()

	for ns := range ready {
		go r.process(ctx, ns, ready)
	}
	logger.Debug("Run finished, all nodes settled.")
}

// process drives a single dependency-satisfied node to a terminal state.
func (r *run) process(ctx context.Context, ns *nodeState, ready chan *nodeState) {
	logger := ctxlog.FromContext(ctx).With("nodeID", ns.node.ID)

	if ctx.Err() != nil {
		r.cancelled.Store(true)
		r.settle(ctx, ns, ready, codeCancelled, nil, nil, ctx.Err())
		return
	}

	if reason := r.skipReason(ns); reason != nil {
		logger.Warn("Skipping node.", "reason", reason)
		r.settle(ctx, ns, ready, codeSkipped, nil, nil, reason)
		return
	}

	inputs := r.resolveInputs(ns)

	if r.sem != nil {
		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			r.cancelled.Store(true)
			r.settle(ctx, ns, ready, codeCancelled, nil, nil, ctx.Err())
			return
		}
	}

	ns.state.Store(int32(codeRunning))
	r.emit(ctx, Event{NodeID: ns.node.ID, Status: StatusRunning})
	logger.Debug("Node running.")

	res := ns.def.Run(ctx, &registry.Context{
		Node:      ns.node,
		Inputs:    inputs,
		Providers: r.sched.providers,
	})

	if res.Err != nil {
		// An executor that stopped because the run was cancelled settles as
		// cancelled, not failed; the error is still recorded for diagnostics.
		if ctx.Err() != nil && (errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)) {
			r.cancelled.Store(true)
			r.settle(ctx, ns, ready, codeCancelled, nil, nil, res.Err)
			return
		}
		logger.Error("Node execution failed.", "error", res.Err)
		r.settle(ctx, ns, ready, codeFailed, nil, nil, res.Err)
		return
	}

	logger.Debug("Node execution succeeded.")
	r.settle(ctx, ns, ready, codeSucceeded, res.Output, res.Pulse, nil)
}

// settle records a node's single terminal state, emits its event, and
// decrements dependents, pushing any that became eligible.
func (r *run) settle(ctx context.Context, ns *nodeState, ready chan *nodeState, code statusCode, output any, pulse *bool, err error) {
	ns.settleOnce.Do(func() {
		ns.mu.Lock()
		ns.output = output
		ns.pulse = pulse
		ns.err = err
		ns.mu.Unlock()
		ns.state.Store(int32(code))

		ev := Event{NodeID: ns.node.ID, Status: statusNames[code]}
		if code == codeSucceeded {
			ev.Output = output
		} else if err != nil {
			ev.Err = err.Error()
		}
		r.emit(ctx, ev)

		dependents, depErr := r.graph.Dependents(ns.node.ID)
		if depErr == nil {
			for _, id := range dependents {
				if !r.subset[id] {
					continue
				}
				dep := r.nodes[id]
				if dep.depCount.Add(-1) == 0 {
					r.markQueued(ctx, dep)
					ready <- dep
				}
			}
		}
		r.wg.Done()
	})
}

func (r *run) markQueued(ctx context.Context, ns *nodeState) {
	ns.state.Store(int32(codeQueued))
	r.emit(ctx, Event{NodeID: ns.node.ID, Status: StatusQueued})
}

// emit sends an event without blocking execution: a full stream drops the
// event with a warning.
func (r *run) emit(ctx context.Context, ev Event) {
	if r.sched.events == nil {
		return
	}
	select {
	case r.sched.events <- ev:
	default:
		ctxlog.FromContext(ctx).Warn("Event stream full, dropping status update.",
			"nodeID", ev.NodeID, "status", ev.Status)
	}
}

// skipReason decides, with all upstream nodes terminal, whether the node must
// be skipped instead of executed. It returns nil when the node should run.
func (r *run) skipReason(ns *nodeState) error {
	var dataEdges, pulseEdges []flow.Edge
	for _, e := range r.snap.EdgesInto(ns.node.ID) {
		if _, ok := r.nodes[e.Source]; !ok {
			continue
		}
		if e.IsPulse() {
			pulseEdges = append(pulseEdges, e)
		} else {
			dataEdges = append(dataEdges, e)
		}
	}

	// A pulse-only target fires on pulse delivery, not data availability.
	if len(dataEdges) == 0 && len(pulseEdges) > 0 {
		for _, e := range pulseEdges {
			src := r.nodes[e.Source]
			if src.stateCode() == codeSucceeded && src.pulseValue() {
				return nil
			}
		}
		return errors.New("no pulse received from upstream")
	}

	// Required inputs supplied exclusively by failed upstream nodes
	// propagate the failure forward; optional inputs are treated as absent.
	byPort := make(map[string][]flow.Edge)
	for _, e := range dataEdges {
		byPort[e.TargetPort] = append(byPort[e.TargetPort], e)
	}
	for port, edges := range byPort {
		if !r.isRequiredPort(ns.def, port) {
			continue
		}
		satisfiable := false
		for _, e := range edges {
			if r.nodes[e.Source].stateCode() == codeSucceeded {
				satisfiable = true
				break
			}
		}
		if satisfiable {
			continue
		}
		// The node's own data can still back the port.
		if !isEmpty(portDataValue(ns.node, port)) {
			continue
		}
		return fmt.Errorf("required input %s unavailable: upstream did not succeed", portLabel(port))
	}
	return nil
}

// isRequiredPort treats undeclared ports as optional; only a declared,
// non-optional input port blocks execution.
func (r *run) isRequiredPort(def *registry.Definition, port string) bool {
	p, ok := def.InputPort(port)
	return ok && !p.Optional
}

// result snapshots the terminal state of the whole run.
func (r *run) result(ctx context.Context) *RunResult {
	res := &RunResult{
		States:  make(map[string]Status, len(r.nodes)),
		Outputs: make(map[string]any),
		Errs:    make(map[string]error),
	}
	anyFailed := false
	anyCancelled := false
	for id, ns := range r.nodes {
		st := ns.status()
		res.States[id] = st
		switch st {
		case StatusSucceeded:
			if out := ns.outputValue(); out != nil {
				res.Outputs[id] = out
			}
		case StatusFailed, StatusSkipped:
			anyFailed = true
		case StatusCancelled:
			anyCancelled = true
		}
		ns.mu.Lock()
		if ns.err != nil {
			res.Errs[id] = ns.err
		}
		ns.mu.Unlock()
	}

	switch {
	case anyCancelled || r.cancelled.Load() || ctx.Err() != nil:
		res.Outcome = OutcomeCancelled
	case anyFailed:
		res.Outcome = OutcomeCompletedWithFailures
	default:
		res.Outcome = OutcomeSucceeded
	}
	return res
}

func portLabel(port string) string {
	if port == flow.DefaultPort {
		return "(default)"
	}
	return fmt.Sprintf("%q", port)
}

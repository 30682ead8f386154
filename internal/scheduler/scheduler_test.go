package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgrid/flowgrid/internal/dag"
	"github.com/flowgrid/flowgrid/internal/flow"
	"github.com/flowgrid/flowgrid/internal/registry"
)

const (
	typeSource flow.NodeType = "test-source"
	typeUpper  flow.NodeType = "test-upper"
	typeFail   flow.NodeType = "test-fail"
	typeGate   flow.NodeType = "test-gate"
	typeBell   flow.NodeType = "test-bell"
)

// testRegistry builds a registry of small deterministic executors used across
// the scheduler tests.
func testRegistry() *registry.Registry {
	r := registry.New()
	r.Register(&registry.Definition{
		Type:    typeSource,
		Outputs: []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString}},
		Run: func(ctx context.Context, ec *registry.Context) registry.Result {
			return registry.Result{Output: ec.Node.DataString(flow.DefaultPortDataKey)}
		},
	})
	r.Register(&registry.Definition{
		Type:    typeUpper,
		Inputs:  []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString}},
		Outputs: []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString}},
		Run: func(ctx context.Context, ec *registry.Context) registry.Result {
			return registry.Result{Output: strings.ToUpper(ec.InputString(flow.DefaultPort))}
		},
	})
	r.Register(&registry.Definition{
		Type:    typeFail,
		Outputs: []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString}},
		Run: func(ctx context.Context, ec *registry.Context) registry.Result {
			return registry.Result{Err: errors.New("boom")}
		},
	})
	r.Register(&registry.Definition{
		Type:        typeGate,
		PulseOutput: true,
		Outputs: []registry.Port{
			{Name: flow.DefaultPort, Type: flow.PortString},
			{Name: flow.PulsePort, Type: flow.PortPulse},
		},
		Run: func(ctx context.Context, ec *registry.Context) registry.Result {
			enabled := ec.Node.DataBool("enabled")
			return registry.Result{Pulse: &enabled}
		},
	})
	r.Register(&registry.Definition{
		Type:    typeBell,
		Outputs: []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString}},
		Run: func(ctx context.Context, ec *registry.Context) registry.Result {
			return registry.Result{Output: "ding"}
		},
	})
	return r
}

func TestRun_LinearPipeline(t *testing.T) {
	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "in", Type: typeSource, Data: map[string]any{"value": "hello"}},
			{ID: "up", Type: typeUpper},
		},
		[]flow.Edge{{ID: "e1", Source: "in", Target: "up"}},
	)

	s := New(testRegistry())
	result, err := s.Run(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.Equal(t, StatusSucceeded, result.States["in"])
	assert.Equal(t, StatusSucceeded, result.States["up"])
	assert.Equal(t, "HELLO", result.Outputs["up"])
}

func TestRun_FailurePropagation(t *testing.T) {
	// in -> up1 succeeds; bad -> up2 must skip because its only required
	// input comes from a failed node. The branches are independent.
	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "in", Type: typeSource, Data: map[string]any{"value": "ok"}},
			{ID: "up1", Type: typeUpper},
			{ID: "bad", Type: typeFail},
			{ID: "up2", Type: typeUpper},
		},
		[]flow.Edge{
			{ID: "e1", Source: "in", Target: "up1"},
			{ID: "e2", Source: "bad", Target: "up2"},
		},
	)

	s := New(testRegistry())
	result, err := s.Run(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompletedWithFailures, result.Outcome)
	assert.Equal(t, StatusSucceeded, result.States["up1"], "independent branch must still run")
	assert.Equal(t, StatusFailed, result.States["bad"])
	assert.Equal(t, StatusSkipped, result.States["up2"])
	assert.Equal(t, "OK", result.Outputs["up1"])
	assert.Contains(t, result.Errors()["bad"], "boom")
	assert.Contains(t, result.Errors()["up2"], "required input")
}

func TestRun_OptionalInputFromFailedUpstream(t *testing.T) {
	r := testRegistry()
	r.Register(&registry.Definition{
		Type:    "test-lenient",
		Inputs:  []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString, Optional: true}},
		Outputs: []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString}},
		Run: func(ctx context.Context, ec *registry.Context) registry.Result {
			if ec.Input(flow.DefaultPort) == nil {
				return registry.Result{Output: "absent"}
			}
			return registry.Result{Output: ec.InputString(flow.DefaultPort)}
		},
	})

	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "bad", Type: typeFail},
			{ID: "soft", Type: "test-lenient"},
		},
		[]flow.Edge{{ID: "e1", Source: "bad", Target: "soft"}},
	)

	s := New(r)
	result, err := s.Run(context.Background(), snap)
	require.NoError(t, err)

	// The optional input is absent, not a reason to skip. No stale value is
	// substituted.
	assert.Equal(t, StatusSucceeded, result.States["soft"])
	assert.Equal(t, "absent", result.Outputs["soft"])
}

func TestRun_CycleFailsEverything(t *testing.T) {
	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "a", Type: typeUpper},
			{ID: "b", Type: typeUpper},
			{ID: "in", Type: typeSource, Data: map[string]any{"value": "x"}},
		},
		[]flow.Edge{
			{ID: "e1", Source: "a", Target: "b"},
			{ID: "e2", Source: "b", Target: "a"},
		},
	)

	s := New(testRegistry())
	result, err := s.Run(context.Background(), snap)
	require.ErrorIs(t, err, dag.ErrCycle)
	require.NotNil(t, result)

	// No executor ran; every executable node reports failed with the cycle
	// as its cause, including nodes outside the cycle.
	assert.Equal(t, OutcomeFailed, result.Outcome)
	for _, id := range []string{"a", "b", "in"} {
		assert.Equal(t, StatusFailed, result.States[id])
		assert.ErrorIs(t, result.Errs[id], dag.ErrCycle)
	}
	assert.Empty(t, result.Outputs)
}

func TestRun_SelfEdgeIsACycle(t *testing.T) {
	snap := flow.NewSnapshot(
		[]flow.Node{{ID: "a", Type: typeBell}},
		[]flow.Edge{{ID: "e1", Source: "a", Target: "a"}},
	)

	s := New(testRegistry())
	result, err := s.Run(context.Background(), snap)
	require.ErrorIs(t, err, dag.ErrCycle)
	require.NotNil(t, result)
	assert.Equal(t, StatusFailed, result.States["a"])
}

func TestRun_UnregisteredTypeIsFatal(t *testing.T) {
	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "in", Type: typeSource, Data: map[string]any{"value": "x"}},
			{ID: "mystery", Type: "never-registered"},
		},
		nil,
	)

	s := New(testRegistry())
	result, err := s.Run(context.Background(), snap)
	require.ErrorIs(t, err, ErrUnregisteredType)
	assert.Nil(t, result, "no node may execute when any type is unregistered")
}

func TestRun_CommentNodesAreInert(t *testing.T) {
	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "note", Type: flow.NodeComment},
			{ID: "in", Type: typeSource, Data: map[string]any{"value": "x"}, ParentID: "note"},
			{ID: "up", Type: typeUpper},
		},
		[]flow.Edge{
			{ID: "e1", Source: "in", Target: "up"},
			// Containment edge; must not create a dependency.
			{ID: "e2", Source: "note", Target: "up"},
		},
	)

	// The comment type has no executor and must not need one.
	s := New(testRegistry())
	result, err := s.Run(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.NotContains(t, result.States, "note")
	assert.Equal(t, "X", result.Outputs["up"])
}

func TestRun_PulseGating(t *testing.T) {
	build := func(enabled bool) flow.Snapshot {
		return flow.NewSnapshot(
			[]flow.Node{
				{ID: "gate", Type: typeGate, Data: map[string]any{"enabled": enabled}},
				{ID: "bell", Type: typeBell},
			},
			[]flow.Edge{
				{ID: "e1", Source: "gate", SourcePort: flow.PulsePort, Target: "bell", DataType: flow.PortPulse},
			},
		)
	}

	t.Run("pulse true fires the target", func(t *testing.T) {
		s := New(testRegistry())
		result, err := s.Run(context.Background(), build(true))
		require.NoError(t, err)
		assert.Equal(t, StatusSucceeded, result.States["bell"])
		assert.Equal(t, "ding", result.Outputs["bell"])
	})

	t.Run("pulse false skips the target", func(t *testing.T) {
		s := New(testRegistry())
		result, err := s.Run(context.Background(), build(false))
		require.NoError(t, err)
		assert.Equal(t, StatusSucceeded, result.States["gate"])
		assert.Equal(t, StatusSkipped, result.States["bell"])
		assert.Equal(t, OutcomeCompletedWithFailures, result.Outcome)
		assert.Contains(t, result.Errors()["bell"], "no pulse received")
	})
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := testRegistry()
	r.Register(&registry.Definition{
		Type: "test-block",
		Outputs: []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString}},
		Run: func(ctx context.Context, ec *registry.Context) registry.Result {
			cancel()
			<-ctx.Done()
			return registry.Result{Err: ctx.Err()}
		},
	})

	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "block", Type: "test-block"},
			{ID: "after", Type: typeBell},
		},
		[]flow.Edge{{ID: "e1", Source: "block", Target: "after"}},
	)

	s := New(r)
	result, err := s.Run(ctx, snap)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCancelled, result.Outcome)
	assert.Equal(t, StatusCancelled, result.States["block"], "ctx-aborted executor settles cancelled, not failed")
	assert.Equal(t, StatusCancelled, result.States["after"])
}

func TestRunFrom_ReusesUpstreamOutputs(t *testing.T) {
	var sourceRuns atomic.Int32
	r := testRegistry()
	r.Register(&registry.Definition{
		Type:    "test-counting-source",
		Outputs: []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString}},
		Run: func(ctx context.Context, ec *registry.Context) registry.Result {
			sourceRuns.Add(1)
			return registry.Result{Output: "hello"}
		},
	})

	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "src", Type: "test-counting-source"},
			{ID: "up", Type: typeUpper},
		},
		[]flow.Edge{{ID: "e1", Source: "src", Target: "up"}},
	)

	s := New(r)
	_, err := s.Run(context.Background(), snap)
	require.NoError(t, err)
	require.Equal(t, int32(1), sourceRuns.Load())

	result, err := s.RunFrom(context.Background(), snap, "up")
	require.NoError(t, err)

	assert.Equal(t, int32(1), sourceRuns.Load(), "nodes outside the subset must not re-run")
	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	assert.Equal(t, "HELLO", result.Outputs["up"], "cached upstream output feeds the re-run")
}

func TestRunFrom_UnknownStartNode(t *testing.T) {
	snap := flow.NewSnapshot(
		[]flow.Node{{ID: "in", Type: typeSource}},
		nil,
	)

	s := New(testRegistry())
	_, err := s.RunFrom(context.Background(), snap, "ghost")
	assert.ErrorContains(t, err, "not in execution graph")

	_, err = s.RunFrom(context.Background(), snap, "")
	assert.ErrorContains(t, err, "requires a start node")
}

func TestRun_EventOrderPerNode(t *testing.T) {
	events := make(chan Event, 64)
	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "in", Type: typeSource, Data: map[string]any{"value": "x"}},
			{ID: "up", Type: typeUpper},
		},
		[]flow.Edge{{ID: "e1", Source: "in", Target: "up"}},
	)

	s := New(testRegistry(), WithEvents(events))
	_, err := s.Run(context.Background(), snap)
	require.NoError(t, err)
	close(events)

	var upStatuses []Status
	for ev := range events {
		if ev.NodeID == "up" {
			upStatuses = append(upStatuses, ev.Status)
		}
	}
	assert.Equal(t, []Status{StatusQueued, StatusRunning, StatusSucceeded}, upStatuses)
}

func TestRun_MaxConcurrentIsHonored(t *testing.T) {
	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	r := registry.New()
	r.Register(&registry.Definition{
		Type:    "test-slow",
		Outputs: []registry.Port{{Name: flow.DefaultPort, Type: flow.PortString}},
		Run: func(ctx context.Context, ec *registry.Context) registry.Result {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			return registry.Result{Output: "done"}
		},
	})

	nodes := make([]flow.Node, 0, 4)
	for _, id := range []string{"a", "b", "c", "d"} {
		nodes = append(nodes, flow.Node{ID: id, Type: "test-slow"})
	}
	snap := flow.NewSnapshot(nodes, nil)

	s := New(r, WithMaxConcurrent(1))
	result, err := s.Run(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, result.Outcome)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, peak)
}

func TestReset_DropsCachedOutputs(t *testing.T) {
	snap := flow.NewSnapshot(
		[]flow.Node{
			{ID: "in", Type: typeSource, Data: map[string]any{"value": "x"}},
			{ID: "up", Type: typeUpper},
		},
		[]flow.Edge{{ID: "e1", Source: "in", Target: "up"}},
	)

	s := New(testRegistry())
	_, err := s.Run(context.Background(), snap)
	require.NoError(t, err)

	s.Reset()

	// After a reset, a partial re-run has no cache: the presettled upstream
	// carries a nil output, so the dependent sees an empty input.
	result, err := s.RunFrom(context.Background(), snap, "up")
	require.NoError(t, err)
	assert.Equal(t, "", result.Outputs["up"])
}

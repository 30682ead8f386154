// Package scheduler executes a flow snapshot.
//
// A run builds the dependency graph from the snapshot's data and pulse edges,
// verifies it is executable (every type registered, no cycles, no dangling
// references), then launches every dependency-satisfied node concurrently and
// unblocks dependents as their upstream nodes settle. Each node walks the
// state machine idle -> queued -> running -> succeeded/failed/skipped/
// cancelled, and every transition past queued is emitted on the run's event
// stream in per-node order.
//
// Node-local failures never abort sibling branches: a failed node causes its
// required-input dependents to be skipped while independent work continues,
// and the run reports completed-with-failures. Structural problems abort the
// run before any executor is invoked. Cancellation is cooperative through the
// run context and is a distinct terminal outcome, not a failure.
//
// The snapshot passed to a run is treated as immutable; all transient state
// (statuses, outputs) lives in the per-run result, never in the snapshot.
package scheduler

// Package flow defines the serializable data model of a flow: nodes, edges,
// snapshots, and ordered change batches.
//
// A Snapshot is the durable, order-independent representation of the canvas
// graph. It is what the UI persists, what external agents receive when they
// propose changes, and what the scheduler consumes for a run. Snapshots are
// canonical: nodes and edges are sorted by ID and transient runtime-only data
// keys are stripped, so two snapshots describing the same graph compare equal
// regardless of how the canvas happened to order its arrays.
//
// Changes model the add/remove node/edge mutations proposed by the editor or
// by an autopilot agent. ApplyChanges folds a batch into a snapshot
// atomically, and Undo reverses a previously applied batch exactly.
package flow

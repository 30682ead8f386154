// Package autopilot gatekeeps agent-proposed graph mutations.
//
// An external agent receives a flow snapshot and a user request and answers
// with an ordered change batch. Before anything touches the live snapshot,
// Evaluate checks the batch for structural soundness: dangling references,
// duplicate IDs, port type mismatches, and nodes removed while their edges
// survive. Validation is deterministic and involves no AI; it returns a
// verdict with structured diagnostics and never panics across the boundary.
//
// On failure, BuildRetryContext turns the diagnostics and the offending
// actions into guidance text the agent can use for a corrected attempt.
package autopilot

// Package registry is the central mapping between node type tags and the Go
// executors that implement them.
//
// Modules register a Definition per node type during startup; the scheduler
// and the autopilot validator then query the registry by tag. The scheduler
// never inspects concrete executor types; it is polymorphic purely over the
// declared capability flags (pulse output, downstream tracking) and the
// declared port schema.
//
// Duplicate registration is a programming error and panics. Clear exists so
// test harnesses can tear down process-wide registrations between runs.
package registry

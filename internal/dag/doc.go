// Package dag holds the execution-relevant dependency graph derived from a
// flow snapshot. Only data and pulse edges become graph links; containment
// and other cosmetic references never enter the graph, so a cycle here is
// always a genuine scheduling error.
package dag

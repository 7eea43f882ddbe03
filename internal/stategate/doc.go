// Package stategate answers whether a pipeline transition is currently
// permitted.
//
// Every function is a pure predicate over entity snapshots: no I/O, no side
// effects, no errors. Denials carry a human-readable reason the API layer
// surfaces directly. The three-way feedback gates (yes / no /
// no_notes_needed) share one explicit transition table instead of scattered
// enum comparisons.
package stategate

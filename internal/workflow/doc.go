// Package workflow sequences the book production pipeline.
//
// Each operation advances one externally triggered step: it consults the
// stage gates, and only if permitted invokes generation, persists results,
// updates the context chain, and reports the next legal action. Gate
// denials are not errors; they come back as *GateDenialError with the
// gate's reason. Hard failures move the book to the error status and fire
// an error notification.
//
// One workflow advances at a time per book; the persisted cursor's
// optimistic version check rejects racing writers.
package workflow

// Package ledger records the lifecycle of governed actions.
//
// A trace starts running and ends exactly once in success, error or
// cancelled. Model calls, agent calls and audit events are appended as
// immutable rows keyed by trace id; appends for the same trace may arrive
// concurrently and in any order. Structured payloads are carried as Value
// and returned byte-identical.
//
// Model call prompt and response text is truncated to a fixed number of
// code points before it is stored. Truncation is counted, never an error.
package ledger

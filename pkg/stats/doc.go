// Package stats provides the read-only ledger overview: trace, model call
// and agent call counts for a tenant over a time window, in total and per
// use case.
package stats

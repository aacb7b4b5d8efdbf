// Package handlers implements the HTTP API routes on top of the policy
// engine, the policy importer, the trace lifecycle manager and the stats
// aggregator.
//
// # Routes
//
//	POST /v1/decisions                               decide for an intended action
//	PUT  /v1/tenants/{tenantId}/policies             replace a tenant's policy set
//	GET  /v1/tenants/{tenantId}/policies             list a tenant's policies in evaluation order
//	POST /v1/traces                                  start a trace
//	GET  /v1/traces/{traceId}                        trace with its events
//	POST /v1/traces/{traceId}/model-calls            append a model call
//	POST /v1/traces/{traceId}/agent-calls            append an agent call
//	POST /v1/traces/{traceId}/audit-events           append an audit event
//	POST /v1/traces/{traceId}/end                    end a running trace
//	GET  /v1/stats/overview                          usage overview for a tenant
//
// Handlers only decode, call into the domain and encode. Errors are mapped
// to status codes by api.WriteError.
package handlers

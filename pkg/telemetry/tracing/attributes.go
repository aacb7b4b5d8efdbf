package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "arbiter.*" namespace. Database spans use
// the OpenTelemetry db.* conventions.
const (
	AttrTenantID  = "arbiter.tenant_id"
	AttrRequestID = "arbiter.request_id"

	AttrPolicyID     = "arbiter.policy.id"
	AttrPolicyEffect = "arbiter.policy.effect"
	AttrPolicyPath   = "arbiter.policy.path"

	AttrTraceID     = "arbiter.trace.id"
	AttrTraceStatus = "arbiter.trace.status"
	AttrEventKind   = "arbiter.event.kind"

	AttrDBSystem    = "db.system"
	AttrDBOperation = "db.operation"

	AttrErrorKind    = "arbiter.error.kind"
	AttrErrorMessage = "error.message"
)

// StoreAttributes returns the attributes of a store call span.
func StoreAttributes(backend, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrDBSystem, backend),
		attribute.String(AttrDBOperation, operation),
	}
}

// SetDecisionAttributes annotates a span with a decision outcome.
func SetDecisionAttributes(span trace.Span, tenantID, policyID, effect, path string) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrTenantID, tenantID),
		attribute.String(AttrPolicyEffect, effect),
		attribute.String(AttrPolicyPath, path),
	}
	if policyID != "" {
		attrs = append(attrs, attribute.String(AttrPolicyID, policyID))
	}
	span.SetAttributes(attrs...)
}

// SetErrorKind sets the error taxonomy kind on the span.
func SetErrorKind(span trace.Span, kind string) {
	if kind == "" {
		return
	}
	span.SetAttributes(attribute.String(AttrErrorKind, kind))
}

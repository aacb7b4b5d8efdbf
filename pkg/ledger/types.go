package ledger

import (
	"encoding/json"
	"sort"
	"time"
)

// Status is a trace lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is one of the end states.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusCancelled:
		return true
	}
	return false
}

// TraceMeta describes the governed action a trace records. Every field
// except Extra is required.
type TraceMeta struct {
	TenantID        string `json:"tenantId"`
	IntentName      string `json:"intentName"`
	UseCaseID       string `json:"useCaseId"`
	RiskLevel       string `json:"riskLevel"`
	DataSensitivity string `json:"dataSensitivity"`
	Environment     string `json:"environment"`
	Extra           Value  `json:"extra,omitzero"`
}

// Trace is one governed action and its lifecycle window. EndedAt is nil
// exactly while Status is running.
type Trace struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenantId"`
	IntentName      string     `json:"intentName"`
	UseCaseID       string     `json:"useCaseId"`
	RiskLevel       string     `json:"riskLevel"`
	DataSensitivity string     `json:"dataSensitivity"`
	Environment     string     `json:"environment"`
	Extra           Value      `json:"extra,omitzero"`
	CreatedAt       time.Time  `json:"createdAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	Status          Status     `json:"status"`
	ResultSummary   string     `json:"resultSummary,omitempty"`
}

// EventKind identifies the ledger table an event belongs to.
type EventKind string

const (
	KindModelCall  EventKind = "model_call"
	KindAgentCall  EventKind = "agent_call"
	KindAuditEvent EventKind = "audit_event"
)

// EventMeta is the identity shared by all ledger events.
type EventMeta struct {
	ID        string    `json:"id"`
	TraceID   string    `json:"traceId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is an immutable ledger row attached to a trace.
type Event interface {
	Kind() EventKind
	Meta() EventMeta
}

// ModelCallLog is the caller-supplied part of a model call event.
type ModelCallLog struct {
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model"`
	Prompt       string `json:"prompt,omitempty"`
	Response     string `json:"response,omitempty"`
	InputTokens  *int64 `json:"inputTokens,omitempty"`
	OutputTokens *int64 `json:"outputTokens,omitempty"`
	LatencyMs    *int64 `json:"latencyMs,omitempty"`
	Metadata     Value  `json:"metadata,omitzero"`
}

// ModelCallEvent records one model invocation.
type ModelCallEvent struct {
	EventMeta
	ModelCallLog
}

func (*ModelCallEvent) Kind() EventKind   { return KindModelCall }
func (e *ModelCallEvent) Meta() EventMeta { return e.EventMeta }

// AgentCallLog is the caller-supplied part of an agent call event.
type AgentCallLog struct {
	AgentID   string `json:"agentId"`
	Action    string `json:"action,omitempty"`
	Request   Value  `json:"request,omitzero"`
	Response  Value  `json:"response,omitzero"`
	Status    string `json:"status,omitempty"`
	LatencyMs *int64 `json:"latencyMs,omitempty"`
}

// AgentCallEvent records one call to an agent.
type AgentCallEvent struct {
	EventMeta
	AgentCallLog
}

func (*AgentCallEvent) Kind() EventKind   { return KindAgentCall }
func (e *AgentCallEvent) Meta() EventMeta { return e.EventMeta }

// AuditEventLog is the caller-supplied part of an audit event.
type AuditEventLog struct {
	EventType string `json:"eventType"`
	Actor     string `json:"actor,omitempty"`
	Payload   Value  `json:"payload,omitzero"`
}

// AuditEvent records a free-form audit fact.
type AuditEvent struct {
	EventMeta
	AuditEventLog
}

func (*AuditEvent) Kind() EventKind   { return KindAuditEvent }
func (e *AuditEvent) Meta() EventMeta { return e.EventMeta }

// TraceRecord is a trace with its events ordered by creation time, then id.
type TraceRecord struct {
	Trace  Trace
	Events []Event
}

type eventEnvelope struct {
	Kind  EventKind `json:"kind"`
	Event Event     `json:"event"`
}

// MarshalJSON renders events tagged with their kind.
func (r TraceRecord) MarshalJSON() ([]byte, error) {
	events := make([]eventEnvelope, len(r.Events))
	for i, e := range r.Events {
		events[i] = eventEnvelope{Kind: e.Kind(), Event: e}
	}
	return json.Marshal(struct {
		Trace  Trace           `json:"trace"`
		Events []eventEnvelope `json:"events"`
	}{Trace: r.Trace, Events: events})
}

// SortEvents orders events by creation time, then id.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Meta(), events[j].Meta()
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

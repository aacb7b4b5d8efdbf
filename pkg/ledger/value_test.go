package ledger

import (
	"encoding/json"
	"testing"
)

func TestRawValue(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		zero    bool
		wantErr bool
	}{
		{name: "object compacted", in: "{ \"a\" : [1, 2] }", want: `{"a":[1,2]}`},
		{name: "string", in: `"plain"`, want: `"plain"`},
		{name: "number", in: `42.5`, want: `42.5`},
		{name: "null is absent", in: `null`, zero: true},
		{name: "empty is absent", in: ``, zero: true},
		{name: "invalid", in: `{"a":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := RawValue([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("RawValue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if v.IsZero() != tt.zero {
				t.Errorf("IsZero() = %v, want %v", v.IsZero(), tt.zero)
			}
			if !tt.zero && v.String() != tt.want {
				t.Errorf("String() = %s, want %s", v.String(), tt.want)
			}
		})
	}
}

func TestValue_OmittedWhenAbsent(t *testing.T) {
	b, err := json.Marshal(AuditEventLog{EventType: "login"})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"eventType":"login"}` {
		t.Errorf("marshal = %s", b)
	}

	var log AuditEventLog
	if err := json.Unmarshal([]byte(`{"eventType":"x","payload":{"k": "v"}}`), &log); err != nil {
		t.Fatal(err)
	}
	if log.Payload.String() != `{"k":"v"}` {
		t.Errorf("payload = %s", log.Payload.String())
	}
}

func TestTraceRecord_MarshalJSON(t *testing.T) {
	record := TraceRecord{
		Trace:  Trace{ID: "tr-1", Status: StatusRunning},
		Events: []Event{&AuditEvent{EventMeta: EventMeta{ID: "e1", TraceID: "tr-1"}, AuditEventLog: AuditEventLog{EventType: "note"}}},
	}
	b, err := json.Marshal(record)
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		Events []struct {
			Kind  string         `json:"kind"`
			Event map[string]any `json:"event"`
		} `json:"events"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out.Events[0].Kind != "audit_event" || out.Events[0].Event["eventType"] != "note" {
		t.Errorf("events = %+v", out.Events)
	}
}

package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
	"mercator-hq/arbiter/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		DurationBuckets: []float64{0.001, 0.01, 0.1, 1},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)
	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
}

func TestCollector_RecordDecision(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordDecision("require_approval", "matched", time.Millisecond)
	collector.RecordDecision("allow", "default", time.Millisecond)
	collector.RecordDecision("allow", "fallback", 2*time.Millisecond)
	collector.RecordDecision("allow", "fallback", 2*time.Millisecond)

	dm := collector.decisionMetrics
	if got := testutil.ToFloat64(dm.decisionsTotal.WithLabelValues("allow", "fallback")); got != 2 {
		t.Errorf("fallback decisions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(dm.decisionsTotal.WithLabelValues("allow", "default")); got != 1 {
		t.Errorf("default decisions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(dm.decisionsTotal.WithLabelValues("require_approval", "matched")); got != 1 {
		t.Errorf("matched decisions = %v, want 1", got)
	}
}

func TestCollector_RecordPolicyImport(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordPolicyImport("success", 3)
	collector.RecordPolicyImport("error", 0)

	dm := collector.decisionMetrics
	if got := testutil.ToFloat64(dm.importsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("successful imports = %v, want 1", got)
	}
	if got := testutil.ToFloat64(dm.importedRules); got != 3 {
		t.Errorf("imported rules = %v, want 3", got)
	}
}

func TestCollector_LedgerMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordTraceStarted()
	collector.RecordTraceStarted()
	collector.RecordTraceEnded("success")
	collector.RecordLedgerEvent("model_call", "ok")
	collector.RecordLedgerEvent("model_call", "error")
	collector.RecordTruncation("prompt")
	collector.RecordSweep(4, nil)
	collector.RecordSweep(0, errors.New("store down"))

	lm := collector.ledgerMetrics
	if got := testutil.ToFloat64(lm.tracesStarted); got != 2 {
		t.Errorf("traces started = %v, want 2", got)
	}
	if got := testutil.ToFloat64(lm.tracesEnded.WithLabelValues("success")); got != 1 {
		t.Errorf("traces ended = %v, want 1", got)
	}
	if got := testutil.ToFloat64(lm.events.WithLabelValues("model_call", "error")); got != 1 {
		t.Errorf("failed model call appends = %v, want 1", got)
	}
	if got := testutil.ToFloat64(lm.truncations.WithLabelValues("prompt")); got != 1 {
		t.Errorf("prompt truncations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(lm.sweptTraces); got != 4 {
		t.Errorf("swept traces = %v, want 4", got)
	}
	if got := testutil.ToFloat64(lm.sweeps.WithLabelValues("error")); got != 1 {
		t.Errorf("failed sweeps = %v, want 1", got)
	}
}

func TestCollector_ObserveStoreOperation(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.ObserveStoreOperation("sqlite", "insert_trace", time.Millisecond, nil)
	timeout := apperrors.NewStoreError("sqlite", "aggregate", context.DeadlineExceeded)
	collector.ObserveStoreOperation("sqlite", "aggregate", time.Second, timeout)
	// Non-store errors (not found) are expected outcomes and not counted.
	collector.ObserveStoreOperation("sqlite", "get_trace", time.Millisecond, apperrors.NewNotFoundError("trace", "x"))

	sm := collector.storeMetrics
	if got := testutil.ToFloat64(sm.errorsTotal.WithLabelValues("sqlite", "aggregate", "true")); got != 1 {
		t.Errorf("retryable aggregate errors = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(sm.errorsTotal); got != 1 {
		t.Errorf("error series = %d, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordDecision("allow", "default", time.Millisecond)
	if got := testutil.CollectAndCount(collector.decisionMetrics.decisionsTotal); got != 0 {
		t.Errorf("expected no series when disabled, got %d", got)
	}

	var nilCollector *Collector
	nilCollector.RecordDecision("allow", "default", time.Millisecond)
	nilCollector.RecordHTTPRequest("GET", "/v1/stats/overview", 200, time.Millisecond)
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordHTTPRequest("POST", "/v1/decisions", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `test_http_requests_total{method="POST",route="/v1/decisions",status="200"} 1`) {
		t.Errorf("expected request counter in exposition, got:\n%s", body)
	}
}

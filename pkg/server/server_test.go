package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/arbiter/pkg/api/handlers"
	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/ledger"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/security/auth"
	"mercator-hq/arbiter/pkg/stats"
	"mercator-hq/arbiter/pkg/store/memory"
	"mercator-hq/arbiter/pkg/telemetry/health"
	"mercator-hq/arbiter/pkg/telemetry/logging"
	"mercator-hq/arbiter/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	cfg := config.MinimalConfig()
	st := memory.New()
	logger := logging.Discard()

	checker := health.New(time.Second)
	checker.RegisterCheck("store", health.PingCheck(st))

	api := handlers.New(
		policy.NewEngine(st, logger),
		policy.NewImporter(st, logger),
		ledger.NewManager(st, logger),
		stats.NewAggregator(st, logger),
		logger,
	)

	srv := New(cfg.Server, cfg.Telemetry, Options{
		API:     api,
		Health:  checker,
		Metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry()),
		Build:   BuildInfo{Version: "1.2.3", Commit: "abc1234"},
		Logger:  logger,
	})
	return srv, st
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, r))
	return w
}

func TestHandler_Routes(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"liveness", http.MethodGet, "/health/live", "", http.StatusOK},
		{"readiness", http.MethodGet, "/health/ready", "", http.StatusOK},
		{"version", http.MethodGet, "/version", "", http.StatusOK},
		{"decision", http.MethodPost, "/v1/decisions", `{"tenantId":"acme"}`, http.StatusOK},
		{"unknown route", http.MethodGet, "/v2/nothing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}
		})
	}
}

func TestHandler_Version(t *testing.T) {
	srv, _ := newTestServer(t)

	w := serve(srv.Handler(), http.MethodGet, "/version", "")
	var info health.VersionInfo
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Version != "1.2.3" || info.Commit != "abc1234" {
		t.Errorf("version info = %+v", info)
	}
}

func TestHandler_ReadinessFailsWhenStoreIsClosed(t *testing.T) {
	srv, st := newTestServer(t)
	st.Close()

	w := serve(srv.Handler(), http.MethodGet, "/health/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"degraded"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestHandler_MetricsRecordsRoutePattern(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	serve(h, http.MethodGet, "/v1/traces/does-not-exist", "")

	w := serve(h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	want := `route="/v1/traces/{traceId}",status="404"`
	if !strings.Contains(w.Body.String(), want) {
		t.Errorf("metrics missing %s", want)
	}
}

func TestHandler_MetricsDisabled(t *testing.T) {
	cfg := config.MinimalConfig()
	cfg.Telemetry.Metrics.Enabled = false
	srv := New(cfg.Server, cfg.Telemetry, Options{Logger: logging.Discard()})

	if w := serve(srv.Handler(), http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestServe_GracefulShutdown(t *testing.T) {
	srv, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health/live"
	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("liveness status = %d", resp.StatusCode)
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false while serving")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestHandler_AuthProtectsAPIOnly(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.config.Auth = config.AuthConfig{
		Enabled: true,
		Header:  "X-API-Key",
		Keys:    []config.APIKeyConfig{{Name: "ops", Key: "sk-ops"}},
	}
	srv.opts.Auth = auth.NewValidator(srv.config.Auth.Keys)
	h := srv.Handler()

	if w := serve(h, http.MethodGet, "/v1/stats/overview?tenantId=acme", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated API call = %d, want 401", w.Code)
	}
	if w := serve(h, http.MethodGet, "/health/live", ""); w.Code != http.StatusOK {
		t.Errorf("liveness = %d, want 200 without a key", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/stats/overview?tenantId=acme", nil)
	req.Header.Set("X-API-Key", "sk-ops")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated API call = %d, want 200: %s", w.Code, w.Body.String())
	}
}

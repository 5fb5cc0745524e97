package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	promclient "github.com/prometheus/client_golang/prometheus"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
	active   int
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }
func (f fakeSource) ActiveSessionCount() int                    { return f.active }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{},
			Histograms: map[goSession.MetricID][]uint64{},
		},
		active: 4,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterHistogramAndGauge(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSessionEvicted: 7,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
		active:  11,
	})

	out := exp.Render()
	for _, want := range []string{
		"gosession_session_evicted_total 7",
		"gosession_session_created_total 0",
		"gosession_validate_latency_seconds_bucket{le=\"0.005\"} 1",
		"gosession_validate_latency_seconds_bucket{le=\"+Inf\"} 36",
		"gosession_validate_latency_seconds_count 36",
		"gosession_audit_dropped_total 2",
		"# TYPE gosession_active_sessions gauge",
		"gosession_active_sessions 11",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if out != exp.Render() {
		t.Fatal("expected deterministic output")
	}
}

func TestRenderFromEngine(t *testing.T) {
	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessPrivateKey = []byte("prom-access-key-0123456789abcdefgh")
	cfg.JWT.RefreshPrivateKey = []byte("prom-refresh-key-0123456789abcdefg")
	cfg.Reaper.Interval = 0
	cfg.Metrics.Enabled = true

	engine, err := goSession.New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	if _, err := engine.CreateSession(context.Background(), goSession.AuthenticationResult{PrincipalID: "p1", Role: "member"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	out := NewPrometheusExporter(engine).Render()
	if !strings.Contains(out, "gosession_session_created_total 1") || !strings.Contains(out, "gosession_active_sessions 1") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{goSession.MetricSessionCreated: 1},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCollectorRegistersIntoApplicationRegistry(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{goSession.MetricRefreshSuccess: 3},
			Histograms: map[goSession.MetricID][]uint64{},
		},
		active: 2,
	})

	reg := promclient.NewRegistry()
	if err := reg.Register(exp); err != nil {
		t.Fatalf("register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				values[mf.GetName()] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	if values["gosession_refresh_success_total"] != 3 {
		t.Fatalf("expected refresh success 3, got %v", values["gosession_refresh_success_total"])
	}
	if values["gosession_active_sessions"] != 2 {
		t.Fatalf("expected active sessions 2, got %v", values["gosession_active_sessions"])
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSessionCreated:     1000,
				goSession.MetricValidateSuccess:    90000,
				goSession.MetricValidateFailure:    40,
				goSession.MetricRefreshSuccess:     800,
				goSession.MetricRefreshFailure:     10,
				goSession.MetricSessionInvalidated: 20,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		active: 500,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}

package goSession

import (
	"context"
	"testing"
)

func TestMetricsDisabledByDefault(t *testing.T) {
	clock := newTestClock()
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	engine, err := New().WithConfig(cfg).WithClock(clock.Now).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	mustCreate(t, engine, member("p1"))
	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricSessionCreated] != 0 {
		t.Fatalf("expected disabled metrics to stay at zero, got %d", snap.Counters[MetricSessionCreated])
	}
}

func TestMetricsValidateCountersAndLatency(t *testing.T) {
	clock := newTestClock()
	engine, err := New().
		WithConfig(testConfig()).
		WithClock(clock.Now).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer engine.Close()

	pair := mustCreate(t, engine, member("p1"))
	mustValidate(t, engine, pair.AccessToken)
	engine.ValidateAccessToken(context.Background(), "nope")

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricValidateSuccess] != 1 || snap.Counters[MetricValidateFailure] != 1 {
		t.Fatalf("unexpected validate counters: %+v", snap.Counters)
	}
	var observed uint64
	for _, n := range snap.Histograms[MetricValidateLatency] {
		observed += n
	}
	if observed != 2 {
		t.Fatalf("expected 2 latency observations, got %d", observed)
	}
}

func TestMetricsSnapshotOnNilEngine(t *testing.T) {
	var engine *Engine
	snap := engine.MetricsSnapshot()
	if snap.Counters == nil || snap.Histograms == nil {
		t.Fatal("expected non-nil maps")
	}
}

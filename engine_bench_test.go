package goSession

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newBenchmarkEngine(b *testing.B) *Engine {
	b.Helper()

	cfg := testConfig()
	cfg.Session.IdleTimeout = 24 * time.Hour
	engine, err := New().WithConfig(cfg).Build()
	if err != nil {
		b.Fatalf("build failed: %v", err)
	}
	b.Cleanup(engine.Close)
	return engine
}

func BenchmarkValidate(b *testing.B) {
	engine := newBenchmarkEngine(b)
	pair, err := engine.CreateSession(context.Background(), member("alice"))
	if err != nil {
		b.Fatalf("create failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := engine.ValidateAccessToken(context.Background(), pair.AccessToken); !ok {
			b.Fatal("validate failed")
		}
	}
}

func BenchmarkRefresh(b *testing.B) {
	engine := newBenchmarkEngine(b)
	pair, err := engine.CreateSession(context.Background(), member("alice"))
	if err != nil {
		b.Fatalf("create failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.RefreshAccessToken(context.Background(), pair.RefreshToken); err != nil {
			b.Fatalf("refresh failed: %v", err)
		}
	}
}

func BenchmarkCreateSession(b *testing.B) {
	engine := newBenchmarkEngine(b)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.CreateSession(context.Background(), member(fmt.Sprintf("p-%d", i%1024))); err != nil {
			b.Fatalf("create failed: %v", err)
		}
	}
}

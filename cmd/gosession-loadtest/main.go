package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/mfa"
)

type principalState struct {
	id    string
	mu    sync.Mutex
	pairs []*goSession.TokenPair
}

func main() {
	var (
		principals  = flag.Int("principals", 2000, "number of distinct principals")
		creates     = flag.Int("creates", 20000, "session creations in the create phase")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (validate + refresh)")
		ceiling     = flag.Int("max-sessions", 3, "per-principal session ceiling")
		redisAddr   = flag.String("redis-addr", "", "redis address for the MFA gate; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *principals <= 0 || *creates <= 0 || *concurrency <= 0 || *ops <= 0 || *ceiling <= 0 {
		fmt.Fprintln(os.Stderr, "principals, creates, concurrency, ops and max-sessions must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	states := make([]*principalState, *principals)
	for i := range states {
		id := fmt.Sprintf("principal-%d", i)
		states[i] = &principalState{id: id}
		enabled := "false"
		if i%10 == 0 {
			enabled = "true"
		}
		if err := client.HSet(ctx, "user:"+id, "mfa_enabled", enabled).Err(); err != nil {
			fmt.Fprintf(os.Stderr, "seed mfa flag failed: %v\n", err)
			os.Exit(1)
		}
	}

	cached, err := mfa.NewCached(
		mfa.NewCoalescing(mfa.NewRedisGate(client), time.Second),
		mfa.CacheConfig{TTL: time.Minute},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mfa cache: %v\n", err)
		os.Exit(1)
	}
	defer cached.Close()

	cfg := goSession.DefaultConfig()
	cfg.JWT.AccessPrivateKey = []byte("loadtest-access-secret-0123456789abcdef")
	cfg.JWT.RefreshPrivateKey = []byte("loadtest-refresh-secret-0123456789abcde")
	cfg.Session.MaxConcurrentPerPrincipal = *ceiling
	cfg.Reaper.Interval = 0
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goSession.New().
		WithConfig(cfg).
		WithMFAPolicy(cached).
		WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	createStats := runCreatePhase(ctx, engine, states, *creates, *concurrency)
	validateStats := runPhase(states, *ops, *concurrency, 7919, func(pair *goSession.TokenPair) bool {
		_, ok := engine.ValidateAccessToken(ctx, pair.AccessToken)
		return ok
	})
	refreshStats := runPhase(states, *ops, *concurrency, 6151, func(pair *goSession.TokenPair) bool {
		_, err := engine.RefreshAccessToken(ctx, pair.RefreshToken)
		return err == nil
	})

	fmt.Println("---- results ----")
	printStats("create", createStats)
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)

	violations := 0
	for _, st := range states {
		if n := engine.PrincipalSessionCount(st.id); n > *ceiling {
			violations++
		}
	}
	snap := engine.MetricsSnapshot()
	fmt.Printf("active=%d evicted=%d ceiling_violations=%d\n",
		engine.ActiveSessionCount(),
		snap.Counters[goSession.MetricSessionEvicted],
		violations,
	)
	if violations > 0 {
		os.Exit(1)
	}
}

func runCreatePhase(ctx context.Context, engine *goSession.Engine, states []*principalState, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				st := states[i%len(states)]
				auth := goSession.AuthenticationResult{
					PrincipalID:        st.id,
					Role:               "member",
					Permissions:        []string{"doc.read"},
					MFAVerifiedAtLogin: true,
				}
				t0 := time.Now()
				pair, err := engine.CreateSession(ctx, auth)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					st.mu.Lock()
					st.pairs = append(st.pairs, pair)
					st.mu.Unlock()
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runPhase applies op to a random recent token pair. Evicted pairs count as
// failures, which is expected once principals are over the ceiling.
func runPhase(states []*principalState, ops, concurrency int, seed int64, op func(*goSession.TokenPair) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				st := states[r.Intn(len(states))]
				st.mu.Lock()
				var pair *goSession.TokenPair
				if n := len(st.pairs); n > 0 {
					pair = st.pairs[n-1-r.Intn(min(n, 3))]
				}
				st.mu.Unlock()
				if pair == nil {
					continue
				}

				t0 := time.Now()
				ok := op(pair)
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

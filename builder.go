package goSession

import (
	"errors"
	"log/slog"
	"os"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// Builder assembles an Engine. Configure it once during initialization and
// call Build; a Builder cannot be reused.
type Builder struct {
	config Config

	mfaGate   MFAPolicyGate
	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The Builder keeps a copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithMFAPolicy sets the gate consulted on session creation and refresh.
// Without one, every principal is treated as having MFA disabled.
func (b *Builder) WithMFAPolicy(gate MFAPolicyGate) *Builder {
	b.mfaGate = gate
	return b
}

// WithAuditSink sets the sink that receives audit events when Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine's operational logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source for session bookkeeping and token
// timestamps. Intended for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the engine's counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires every component and starts the
// reaper when Reaper.Interval is positive.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	logger = logger.With("component", "gosession")

	// -------- TOKEN CODEC --------
	method := jwt.SigningMethod(cfg.JWT.SigningMethod)
	codec, err := jwt.NewCodec(
		jwt.Config{
			TTL:           cfg.JWT.AccessTTL,
			SigningMethod: method,
			PrivateKey:    cloneBytes(cfg.JWT.AccessPrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.AccessPublicKey),
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			Now:           clock,
		},
		jwt.Config{
			TTL:           cfg.JWT.RefreshTTL,
			SigningMethod: method,
			PrivateKey:    cloneBytes(cfg.JWT.RefreshPrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.RefreshPublicKey),
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			Now:           clock,
		},
	)
	if err != nil {
		return nil, err
	}

	gate := b.mfaGate
	if gate == nil {
		gate = disabledMFAGate{}
	}

	engine := &Engine{
		config: cfg,
		clock:  clock,
		logger: logger,
		store:  session.NewStore(),
		codec:  codec,
		gate:   gate,
		refreshLimiter: rate.New(rate.Config{
			Every: cfg.Security.RefreshRateLimit,
			Burst: cfg.Security.RefreshBurst,
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
	}

	// -------- REAPER --------
	if cfg.Reaper.Interval > 0 {
		engine.reaper = startReaper(engine, cfg.Reaper.Interval)
	}

	b.built = true

	logger.Info("session engine ready",
		"signing_method", cfg.JWT.SigningMethod,
		"access_ttl", cfg.JWT.AccessTTL,
		"refresh_ttl", cfg.JWT.RefreshTTL,
		"idle_timeout", cfg.Session.IdleTimeout,
		"max_sessions", cfg.Session.MaxConcurrentPerPrincipal,
	)

	return engine, nil
}

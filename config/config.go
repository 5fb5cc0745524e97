// Package config loads goSession settings from the environment and an
// optional env-format file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	goSession "github.com/MrEthical07/goSession"
)

// Settings mirrors the externally recognized option names. Durations use
// the units their names carry.
type Settings struct {
	AccessTokenTTLMinutes             int    `mapstructure:"ACCESS_TOKEN_TTL_MINUTES"`
	RefreshTokenTTLDays               int    `mapstructure:"REFRESH_TOKEN_TTL_DAYS"`
	MaxConcurrentSessionsPerPrincipal int    `mapstructure:"MAX_CONCURRENT_SESSIONS_PER_PRINCIPAL"`
	SessionIdleTimeoutMinutes         int    `mapstructure:"SESSION_IDLE_TIMEOUT_MINUTES"`
	ReaperIntervalMinutes             int    `mapstructure:"REAPER_INTERVAL_MINUTES"`
	MFAPrivilegedRoles                string `mapstructure:"MFA_PRIVILEGED_ROLES"`
	MFALookupTimeout                  string `mapstructure:"MFA_LOOKUP_TIMEOUT"`
	MFAFailOpen                       bool   `mapstructure:"MFA_FAIL_OPEN"`
	MFAVerificationMaxAgeMinutes      int    `mapstructure:"MFA_VERIFICATION_MAX_AGE_MINUTES"`

	// JWTSigningMethod is "hs256" or "ed25519". For hs256 the secrets are
	// used as-is; for ed25519 they hold PEM-encoded private keys.
	JWTSigningMethod   string `mapstructure:"JWT_SIGNING_METHOD"`
	AccessTokenSecret  string `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	JWTIssuer          string `mapstructure:"JWT_ISSUER"`
	JWTAudience        string `mapstructure:"JWT_AUDIENCE"`
	RefreshRateLimit   string `mapstructure:"REFRESH_RATE_LIMIT"`
	RefreshBurst       int    `mapstructure:"REFRESH_BURST"`
	AuditEnabled       bool   `mapstructure:"AUDIT_ENABLED"`
	AuditBufferSize    int    `mapstructure:"AUDIT_BUFFER_SIZE"`
	MetricsEnabled     bool   `mapstructure:"METRICS_ENABLED"`
	LatencyHistograms  bool   `mapstructure:"METRICS_LATENCY_HISTOGRAMS"`
}

// Load reads path (when non-empty) as an env-format file, applies
// environment overrides and returns a validated engine configuration.
// A missing file is an error only when path was given explicitly.
func Load(path string) (goSession.Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return goSession.Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	v.AutomaticEnv()
	setDefaults(v)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return goSession.Config{}, err
	}

	cfg, err := s.EngineConfig()
	if err != nil {
		return goSession.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return goSession.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := goSession.DefaultConfig()

	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", int(d.JWT.AccessTTL/time.Minute))
	v.SetDefault("REFRESH_TOKEN_TTL_DAYS", int(d.JWT.RefreshTTL/(24*time.Hour)))
	v.SetDefault("MAX_CONCURRENT_SESSIONS_PER_PRINCIPAL", d.Session.MaxConcurrentPerPrincipal)
	v.SetDefault("SESSION_IDLE_TIMEOUT_MINUTES", int(d.Session.IdleTimeout/time.Minute))
	v.SetDefault("REAPER_INTERVAL_MINUTES", int(d.Reaper.Interval/time.Minute))
	v.SetDefault("MFA_PRIVILEGED_ROLES", strings.Join(d.MFA.PrivilegedRoles, ","))
	v.SetDefault("MFA_LOOKUP_TIMEOUT", d.MFA.LookupTimeout.String())
	v.SetDefault("MFA_FAIL_OPEN", d.MFA.FailOpen)
	v.SetDefault("MFA_VERIFICATION_MAX_AGE_MINUTES", 0)
	v.SetDefault("JWT_SIGNING_METHOD", d.JWT.SigningMethod)
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("JWT_ISSUER", d.JWT.Issuer)
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("REFRESH_RATE_LIMIT", "0s")
	v.SetDefault("REFRESH_BURST", d.Security.RefreshBurst)
	v.SetDefault("AUDIT_ENABLED", d.Audit.Enabled)
	v.SetDefault("AUDIT_BUFFER_SIZE", d.Audit.BufferSize)
	v.SetDefault("METRICS_ENABLED", d.Metrics.Enabled)
	v.SetDefault("METRICS_LATENCY_HISTOGRAMS", d.Metrics.EnableLatencyHistograms)
}

// EngineConfig converts s into an engine configuration without validating
// it.
func (s Settings) EngineConfig() (goSession.Config, error) {
	cfg := goSession.DefaultConfig()

	if s.AccessTokenTTLMinutes <= 0 {
		return cfg, errors.New("config: ACCESS_TOKEN_TTL_MINUTES must be > 0")
	}
	if s.RefreshTokenTTLDays <= 0 {
		return cfg, errors.New("config: REFRESH_TOKEN_TTL_DAYS must be > 0")
	}
	if s.SessionIdleTimeoutMinutes <= 0 {
		return cfg, errors.New("config: SESSION_IDLE_TIMEOUT_MINUTES must be > 0")
	}
	if s.ReaperIntervalMinutes < 0 {
		return cfg, errors.New("config: REAPER_INTERVAL_MINUTES must be >= 0")
	}

	lookupTimeout, err := time.ParseDuration(s.MFALookupTimeout)
	if err != nil {
		return cfg, fmt.Errorf("config: MFA_LOOKUP_TIMEOUT: %w", err)
	}
	refreshRate, err := time.ParseDuration(s.RefreshRateLimit)
	if err != nil {
		return cfg, fmt.Errorf("config: REFRESH_RATE_LIMIT: %w", err)
	}

	cfg.JWT.AccessTTL = time.Duration(s.AccessTokenTTLMinutes) * time.Minute
	cfg.JWT.RefreshTTL = time.Duration(s.RefreshTokenTTLDays) * 24 * time.Hour
	cfg.JWT.SigningMethod = strings.ToLower(strings.TrimSpace(s.JWTSigningMethod))
	cfg.JWT.AccessPrivateKey = []byte(s.AccessTokenSecret)
	cfg.JWT.RefreshPrivateKey = []byte(s.RefreshTokenSecret)
	cfg.JWT.Issuer = s.JWTIssuer
	cfg.JWT.Audience = s.JWTAudience

	cfg.Session.MaxConcurrentPerPrincipal = s.MaxConcurrentSessionsPerPrincipal
	cfg.Session.IdleTimeout = time.Duration(s.SessionIdleTimeoutMinutes) * time.Minute

	cfg.MFA.PrivilegedRoles = splitList(s.MFAPrivilegedRoles)
	cfg.MFA.LookupTimeout = lookupTimeout
	cfg.MFA.FailOpen = s.MFAFailOpen
	cfg.MFA.VerificationMaxAge = time.Duration(s.MFAVerificationMaxAgeMinutes) * time.Minute

	cfg.Reaper.Interval = time.Duration(s.ReaperIntervalMinutes) * time.Minute

	cfg.Security.RefreshRateLimit = refreshRate
	cfg.Security.RefreshBurst = s.RefreshBurst

	cfg.Audit.Enabled = s.AuditEnabled
	cfg.Audit.BufferSize = s.AuditBufferSize
	cfg.Metrics.Enabled = s.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = s.LatencyHistograms

	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

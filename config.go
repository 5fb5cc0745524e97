package goSession

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"slices"
	"time"
)

// Config holds every engine setting. Build it from DefaultConfig, adjust,
// and pass it to Builder.WithConfig; the engine keeps its own copy.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	MFA      MFAConfig
	Reaper   ReaperConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures both token kinds. Access and refresh tokens are
// signed with separate keys so that a leaked access key cannot forge refresh
// tokens.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	SigningMethod string // "hs256" (default) or "ed25519"

	// For hs256 only the private keys are used, as shared secrets.
	AccessPrivateKey  []byte
	AccessPublicKey   []byte
	RefreshPrivateKey []byte
	RefreshPublicKey  []byte

	Issuer   string
	Audience string
	Leeway   time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	// MaxConcurrentPerPrincipal caps live sessions per principal. Creating
	// one more evicts the least recently active. 0 disables the cap.
	MaxConcurrentPerPrincipal int
	// IdleTimeout is the longest allowed gap between validated requests.
	IdleTimeout time.Duration
}

/*
====================================
MFA CONFIG
====================================
*/

type MFAConfig struct {
	// PrivilegedRoles require MFA when RequireForRole is nil.
	PrivilegedRoles []string
	// RequireForRole overrides PrivilegedRoles when set.
	RequireForRole func(role string) bool
	// LookupTimeout bounds each MFAPolicyGate call.
	LookupTimeout time.Duration
	// FailOpen lets sessions for MFA-required roles proceed when the gate
	// errors. The default denies them with ErrMFAPolicyUnavailable.
	FailOpen bool
	// VerificationMaxAge, when positive, makes an MFA verification lapse
	// for refresh purposes after this long.
	VerificationMaxAge time.Duration
}

/*
====================================
REAPER CONFIG
====================================
*/

type ReaperConfig struct {
	// Interval between background sweeps. 0 disables the background worker;
	// Engine.Sweep still works on demand.
	Interval time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

type SecurityConfig struct {
	// RefreshRateLimit is the minimum average spacing between refresh calls
	// on one session. 0 disables throttling.
	RefreshRateLimit time.Duration
	// RefreshBurst is how many refreshes may happen back to back.
	RefreshBurst int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the recommended settings. Signing keys are left
// empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "gosession",
		},
		Session: SessionConfig{
			MaxConcurrentPerPrincipal: 3,
			IdleTimeout:               60 * time.Minute,
		},
		MFA: MFAConfig{
			PrivilegedRoles: []string{"admin"},
			LookupTimeout:   2 * time.Second,
			FailOpen:        false,
		},
		Reaper: ReaperConfig{
			Interval: 5 * time.Minute,
		},
		Security: SecurityConfig{
			RefreshRateLimit: 0,
			RefreshBurst:     5,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// RequireMFAForRole reports whether sessions for role need MFA.
func (c *Config) RequireMFAForRole(role string) bool {
	if c.MFA.RequireForRole != nil {
		return c.MFA.RequireForRole(role)
	}
	return slices.Contains(c.MFA.PrivilegedRoles, role)
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessPrivateKey = cloneBytes(cfg.JWT.AccessPrivateKey)
	out.JWT.AccessPublicKey = cloneBytes(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPrivateKey = cloneBytes(cfg.JWT.RefreshPrivateKey)
	out.JWT.RefreshPublicKey = cloneBytes(cfg.JWT.RefreshPublicKey)
	out.MFA.PrivilegedRoles = slices.Clone(cfg.MFA.PrivilegedRoles)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.AccessPrivateKey) < 32 {
			return errors.New("hs256 requires AccessPrivateKey of at least 32 bytes")
		}
		if len(c.JWT.RefreshPrivateKey) < 32 {
			return errors.New("hs256 requires RefreshPrivateKey of at least 32 bytes")
		}
		if bytes.Equal(c.JWT.AccessPrivateKey, c.JWT.RefreshPrivateKey) {
			return errors.New("JWT access and refresh keys must differ")
		}
	case "ed25519":
		if len(c.JWT.AccessPrivateKey) == 0 {
			return errors.New("ed25519 requires AccessPrivateKey")
		}
		if len(c.JWT.RefreshPrivateKey) == 0 {
			return errors.New("ed25519 requires RefreshPrivateKey")
		}
		if bytes.Equal(c.JWT.AccessPrivateKey, c.JWT.RefreshPrivateKey) {
			return errors.New("JWT access and refresh keys must differ")
		}
		if len(c.JWT.AccessPublicKey) == ed25519.PublicKeySize &&
			bytes.Equal(c.JWT.AccessPublicKey, c.JWT.RefreshPublicKey) {
			return errors.New("JWT access and refresh keys must differ")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Session
	if c.Session.MaxConcurrentPerPrincipal < 0 {
		return errors.New("Session MaxConcurrentPerPrincipal must be >= 0")
	}
	if c.Session.IdleTimeout <= 0 {
		return errors.New("Session IdleTimeout must be > 0")
	}

	// MFA
	if c.MFA.LookupTimeout <= 0 {
		return errors.New("MFA LookupTimeout must be > 0")
	}
	if c.MFA.VerificationMaxAge < 0 {
		return errors.New("MFA VerificationMaxAge must be >= 0")
	}

	// Reaper
	if c.Reaper.Interval < 0 {
		return errors.New("Reaper Interval must be >= 0")
	}

	// Security
	if c.Security.RefreshRateLimit < 0 {
		return errors.New("Security RefreshRateLimit must be >= 0")
	}
	if c.Security.RefreshRateLimit > 0 && c.Security.RefreshBurst < 1 {
		return errors.New("Security RefreshBurst must be >= 1 when RefreshRateLimit is set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

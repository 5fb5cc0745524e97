package goSession

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func admin(principalID string, verified bool) AuthenticationResult {
	return AuthenticationResult{
		PrincipalID:        principalID,
		Role:               "admin",
		Permissions:        []string{"*"},
		MFAVerifiedAtLogin: verified,
	}
}

var errGateDown = errors.New("policy store unreachable")

func failingGate() MFAPolicyGate {
	return MFAPolicyFunc(func(context.Context, string) (bool, error) {
		return false, errGateDown
	})
}

func TestCreateSessionRequiresMFAForPrivilegedRole(t *testing.T) {
	engine, _ := newTestEngine(t, nil, nil)

	if _, err := engine.CreateSession(context.Background(), admin("root", false)); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected ErrMFARequired, got %v", err)
	}
	if engine.ActiveSessionCount() != 0 {
		t.Fatal("expected no session after ErrMFARequired")
	}
	if n := engine.store.RefreshLen(); n != 0 {
		t.Fatalf("expected empty refresh ledger after ErrMFARequired, got %d", n)
	}
	if n, _ := engine.ListPrincipalSessions(context.Background(), "root"); len(n) != 0 {
		t.Fatal("expected no trace of the principal")
	}
	if got := engine.MetricsSnapshot().Counters[MetricMFARequired]; got != 1 {
		t.Fatalf("expected MFA required metric 1, got %d", got)
	}

	pair := mustCreate(t, engine, admin("root", true))
	user := mustValidate(t, engine, pair.AccessToken)
	if !user.MFAVerified {
		t.Fatal("expected MFA-verified session")
	}
}

func TestRequireForRoleOverridesPrivilegedRoles(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) {
		c.MFA.RequireForRole = func(role string) bool { return role == "member" }
	}, nil)

	if _, err := engine.CreateSession(context.Background(), member("p1")); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected ErrMFARequired for member, got %v", err)
	}
	mustCreate(t, engine, admin("root", false))
}

func TestMFALookupFailsClosedForPrivilegedRole(t *testing.T) {
	engine, _ := newTestEngine(t, nil, failingGate())

	if _, err := engine.CreateSession(context.Background(), admin("root", true)); !errors.Is(err, ErrMFAPolicyUnavailable) {
		t.Fatalf("expected ErrMFAPolicyUnavailable, got %v", err)
	}
	if engine.ActiveSessionCount() != 0 || engine.store.RefreshLen() != 0 {
		t.Fatal("expected no session or refresh record when policy lookup fails closed")
	}

	// Unprivileged roles do not depend on the gate.
	mustCreate(t, engine, member("p1"))
}

func TestMFALookupFailOpen(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) {
		c.MFA.FailOpen = true
	}, failingGate())

	pair := mustCreate(t, engine, admin("root", true))
	mustValidate(t, engine, pair.AccessToken)
	if got := engine.MetricsSnapshot().Counters[MetricMFAPolicyUnavailable]; got != 1 {
		t.Fatalf("expected one policy failure counted, got %d", got)
	}
}

func TestMFALookupIsBoundedByTimeout(t *testing.T) {
	slow := MFAPolicyFunc(func(ctx context.Context, _ string) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	engine, _ := newTestEngine(t, func(c *Config) {
		c.MFA.LookupTimeout = 20 * time.Millisecond
	}, slow)

	start := time.Now()
	_, err := engine.CreateSession(context.Background(), admin("root", true))
	if !errors.Is(err, ErrMFAPolicyUnavailable) {
		t.Fatalf("expected ErrMFAPolicyUnavailable, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("lookup was not bounded by the timeout")
	}
}

func TestMFAEnabledFlagIsRecorded(t *testing.T) {
	var enabled atomic.Bool
	enabled.Store(true)
	gate := MFAPolicyFunc(func(context.Context, string) (bool, error) {
		return enabled.Load(), nil
	})
	engine, _ := newTestEngine(t, nil, gate)

	pair := mustCreate(t, engine, member("p1"))
	infos, _ := engine.ListPrincipalSessions(context.Background(), "p1")
	if !infos[0].MFAEnabled {
		t.Fatal("expected MFAEnabled to be recorded at creation")
	}

	enabled.Store(false)
	if _, err := engine.RefreshAccessToken(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	infos, _ = engine.ListPrincipalSessions(context.Background(), "p1")
	if infos[0].MFAEnabled {
		t.Fatal("expected refresh to pick up the new MFA flag")
	}
}

func TestClearedMFABlocksRefreshUntilStepUp(t *testing.T) {
	engine, clock := newTestEngine(t, nil, nil)
	pair := mustCreate(t, engine, admin("root", true))
	user := mustValidate(t, engine, pair.AccessToken)

	if err := engine.ClearMFAVerification(context.Background(), user.SessionID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := engine.RefreshAccessToken(context.Background(), pair.RefreshToken); !errors.Is(err, ErrMFAVerificationExpired) {
		t.Fatalf("expected ErrMFAVerificationExpired, got %v", err)
	}
	if u := mustValidate(t, engine, pair.AccessToken); u.MFAVerified {
		t.Fatal("expected validation to reflect cleared MFA")
	}

	clock.Advance(time.Minute)
	if err := engine.ConfirmMFA(context.Background(), user.SessionID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	refreshed, err := engine.RefreshAccessToken(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh after step-up: %v", err)
	}
	if u := mustValidate(t, engine, refreshed.AccessToken); !u.MFAVerified {
		t.Fatal("expected MFA verified after step-up")
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricMFACleared] != 1 || snap.Counters[MetricMFAStepUp] != 1 {
		t.Fatalf("unexpected MFA counters: %+v", snap.Counters)
	}
}

func TestMFAVerificationMaxAge(t *testing.T) {
	engine, clock := newTestEngine(t, func(c *Config) {
		c.MFA.VerificationMaxAge = 30 * time.Minute
		c.Session.IdleTimeout = 24 * time.Hour
	}, nil)
	pair := mustCreate(t, engine, admin("root", true))

	clock.Advance(29 * time.Minute)
	if _, err := engine.RefreshAccessToken(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("refresh within max age: %v", err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := engine.RefreshAccessToken(context.Background(), pair.RefreshToken); !errors.Is(err, ErrMFAVerificationExpired) {
		t.Fatalf("expected ErrMFAVerificationExpired, got %v", err)
	}
}

func TestMFAOperationsOnUnknownSession(t *testing.T) {
	engine, _ := newTestEngine(t, nil, nil)

	if err := engine.ConfirmMFA(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := engine.ClearMFAVerification(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

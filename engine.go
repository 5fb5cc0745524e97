package goSession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/goSession/internal"
	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// Engine is the session authority. It owns the session registry and refresh
// ledger and is the only component allowed to mutate them.
//
// All methods are safe for concurrent use. Build one with New().Build() and
// release it with Close.
type Engine struct {
	config         Config
	clock          func() time.Time
	logger         *slog.Logger
	store          *session.Store
	codec          *jwt.Codec
	gate           MFAPolicyGate
	refreshLimiter *rate.Limiter
	audit          *internalaudit.Dispatcher
	metrics        *Metrics
	reaper         *reaper

	closed    atomic.Bool
	closeOnce sync.Once
}

// Close stops the reaper and flushes the audit dispatcher. Later calls on
// the engine return ErrEngineNotReady or false.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.reaper.close()
		e.audit.Close()
	})
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.codec != nil && !e.closed.Load()
}

func (e *Engine) now() time.Time {
	return e.clock()
}

// CreateSession registers a new session for a principal that the external
// login flow has authenticated, and returns its token pair.
//
// It fails with ErrMFARequired when the role needs MFA and the login did not
// verify it, and with ErrMFAPolicyUnavailable when the MFA lookup for such a
// role fails and the engine is fail-closed. Nothing is written on failure.
// When the principal is at the concurrency ceiling, the least recently
// active sessions are evicted in the same step that inserts the new one.
func (e *Engine) CreateSession(ctx context.Context, auth AuthenticationResult) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}

	principalID := normalizePrincipalID(auth.PrincipalID)
	role := strings.TrimSpace(auth.Role)
	if principalID == "" || role == "" {
		e.denyCreate(ctx, principalID, role, ErrInvalidAuthentication)
		return nil, ErrInvalidAuthentication
	}

	requireMFA := e.config.RequireMFAForRole(role)
	if requireMFA && !auth.MFAVerifiedAtLogin {
		e.metricInc(MetricMFARequired)
		e.denyCreate(ctx, principalID, role, ErrMFARequired)
		return nil, ErrMFARequired
	}

	mfaEnabled, err := e.lookupMFA(ctx, principalID, requireMFA)
	if err != nil {
		e.denyCreate(ctx, principalID, role, err)
		return nil, err
	}

	sessionID, err := internal.NewSessionID()
	if err != nil {
		return nil, e.createFailed(ctx, principalID, role, err)
	}
	perms := dedupe(auth.Permissions)

	access, accessExp, err := e.codec.IssueAccess(jwt.AccessInput{
		PrincipalID: principalID,
		Role:        role,
		Permissions: perms,
		SessionID:   sessionID,
		MFAVerified: auth.MFAVerifiedAtLogin,
	})
	if err != nil {
		return nil, e.createFailed(ctx, principalID, role, err)
	}
	refresh, refreshExp, err := e.codec.IssueRefresh(principalID, sessionID)
	if err != nil {
		return nil, e.createFailed(ctx, principalID, role, err)
	}

	now := e.now()
	sess := &session.Session{
		SessionID:    sessionID,
		PrincipalID:  principalID,
		Email:        auth.Email,
		Role:         role,
		Permissions:  perms,
		CreatedAt:    now,
		LastActivity: now,
		MFAEnabled:   mfaEnabled,
		MFAVerified:  auth.MFAVerifiedAtLogin,
	}
	if auth.MFAVerifiedAtLogin {
		sess.MFAVerifiedAt = now
	}
	rec := &session.RefreshRecord{
		Token:          refresh,
		SessionID:      sessionID,
		PrincipalID:    principalID,
		IssuedAt:       now,
		AbsoluteExpiry: refreshExp,
	}

	evicted, err := e.store.Insert(sess, rec, e.config.Session.MaxConcurrentPerPrincipal)
	if err != nil {
		return nil, e.createFailed(ctx, principalID, role, err)
	}
	for _, ev := range evicted {
		e.onSessionRemoved(ev.SessionID)
		e.metricInc(MetricSessionEvicted)
		e.emitAudit(ctx, AuditEventSessionEvicted, true, ev.PrincipalID, ev.SessionID, nil, func() map[string]string {
			return map[string]string{"reason": "concurrency_limit", "replaced_by": sessionID}
		})
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, AuditEventSessionCreated, true, principalID, sessionID, nil, func() map[string]string {
		return map[string]string{
			"role":         role,
			"mfa_enabled":  strconv.FormatBool(mfaEnabled),
			"mfa_verified": strconv.FormatBool(auth.MFAVerifiedAtLogin),
			"evicted":      strconv.Itoa(len(evicted)),
		}
	})

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp.UnixMilli(),
		TokenType:    TokenTypeBearer,
	}, nil
}

func (e *Engine) denyCreate(ctx context.Context, principalID, role string, err error) {
	e.metricInc(MetricSessionCreateDenied)
	e.emitAudit(ctx, AuditEventSessionCreateDenied, false, principalID, "", err, func() map[string]string {
		return map[string]string{"role": role}
	})
}

func (e *Engine) createFailed(ctx context.Context, principalID, role string, err error) error {
	e.logger.Error("session creation failed", "principal_id", principalID, "error", err)
	wrapped := fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	e.denyCreate(ctx, principalID, role, wrapped)
	return wrapped
}

// ValidateAccessToken resolves an access token to the live session behind
// it.
//
// A token is accepted only if its signature and expiry verify and its
// session is still registered and not idle past Session.IdleTimeout.
// Logout and eviction therefore take effect immediately even though the
// token itself has not expired. Every rejection looks the same to the
// caller. On success the session's last activity advances to now.
func (e *Engine) ValidateAccessToken(ctx context.Context, token string) (*SessionUser, bool) {
	if !e.ready() {
		return nil, false
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.codec.ParseAccess(token)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, false
	}

	sess, status := e.store.Touch(claims.SID, claims.Subject, e.now(), e.config.Session.IdleTimeout)
	switch status {
	case session.TouchNotFound:
		e.metricInc(MetricValidateFailure)
		return nil, false
	case session.TouchPrincipalMismatch:
		e.logger.Debug("access token principal does not match session", "session_id", claims.SID)
		e.metricInc(MetricValidateFailure)
		return nil, false
	case session.TouchIdleExpired:
		e.onSessionRemoved(sess.SessionID)
		e.metricInc(MetricSessionIdleExpired)
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, AuditEventSessionIdleExpired, true, sess.PrincipalID, sess.SessionID, nil, func() map[string]string {
			return map[string]string{"last_activity": sess.LastActivity.UTC().Format(time.RFC3339)}
		})
		return nil, false
	}

	e.metricInc(MetricValidateSuccess)
	return &SessionUser{
		PrincipalID: sess.PrincipalID,
		Email:       sess.Email,
		Role:        sess.Role,
		Permissions: sess.Permissions,
		SessionID:   sess.SessionID,
		MFAVerified: sess.MFAVerified,
	}, true
}

// RefreshAccessToken mints a new access token for the session bound to
// refreshToken. The refresh token itself is not rotated; the returned pair
// carries the same one until its absolute expiry.
//
// Any invalid, expired, revoked or orphaned refresh token yields
// ErrUnauthenticated. An expired one also ends its session. If the session's
// role requires MFA and its verification was cleared or has lapsed, the call
// fails with ErrMFAVerificationExpired. Refreshing does not count as
// activity for the idle timeout.
func (e *Engine) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	now := e.now()

	claims, err := e.codec.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, gjwt.ErrTokenExpired) {
			// The exp claim is the absolute expiry, so the ledger entry is
			// stale too. Drop it and its session.
			e.resolveStaleRefresh(ctx, refreshToken, now)
		}
		return nil, e.denyRefresh(ctx, "", "", ErrUnauthenticated)
	}

	rec, sess, status := e.store.ResolveRefresh(refreshToken, now)
	switch status {
	case session.RefreshNotFound:
		return nil, e.denyRefresh(ctx, claims.Subject, claims.SID, ErrUnauthenticated)
	case session.RefreshExpired:
		e.onRefreshExpired(ctx, rec, sess)
		return nil, e.denyRefresh(ctx, rec.PrincipalID, rec.SessionID, ErrUnauthenticated)
	case session.RefreshOrphaned:
		e.onRefreshOrphaned(ctx, rec)
		return nil, e.denyRefresh(ctx, rec.PrincipalID, rec.SessionID, ErrUnauthenticated)
	}

	if rec.SessionID != claims.SID || sess.PrincipalID != claims.Subject {
		return nil, e.denyRefresh(ctx, claims.Subject, claims.SID, ErrUnauthenticated)
	}

	if err := e.refreshLimiter.Check(sess.SessionID, now); err != nil {
		e.metricInc(MetricRefreshRateLimited)
		return nil, e.denyRefresh(ctx, sess.PrincipalID, sess.SessionID, ErrRefreshRateLimited)
	}

	requireMFA := e.config.RequireMFAForRole(sess.Role)
	mfaEnabled, err := e.lookupMFA(ctx, sess.PrincipalID, requireMFA)
	if err != nil {
		return nil, e.denyRefresh(ctx, sess.PrincipalID, sess.SessionID, err)
	}
	if mfaEnabled != sess.MFAEnabled {
		e.store.SetMFAEnabled(sess.SessionID, mfaEnabled)
	}
	if requireMFA && !e.mfaVerificationCurrent(sess, now) {
		e.metricInc(MetricMFAVerificationExpired)
		return nil, e.denyRefresh(ctx, sess.PrincipalID, sess.SessionID, ErrMFAVerificationExpired)
	}

	access, accessExp, err := e.codec.IssueAccess(jwt.AccessInput{
		PrincipalID: sess.PrincipalID,
		Role:        sess.Role,
		Permissions: sess.Permissions,
		SessionID:   sess.SessionID,
		MFAVerified: sess.MFAVerified,
	})
	if err != nil {
		e.logger.Error("access token minting failed on refresh", "session_id", sess.SessionID, "error", err)
		return nil, e.denyRefresh(ctx, sess.PrincipalID, sess.SessionID, ErrUnauthenticated)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEventRefreshSuccess, true, sess.PrincipalID, sess.SessionID, nil, nil)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    accessExp.UnixMilli(),
		TokenType:    TokenTypeBearer,
	}, nil
}

func (e *Engine) denyRefresh(ctx context.Context, principalID, sessionID string, err error) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, AuditEventRefreshDenied, false, principalID, sessionID, err, nil)
	return err
}

func (e *Engine) resolveStaleRefresh(ctx context.Context, refreshToken string, now time.Time) {
	rec, sess, status := e.store.ResolveRefresh(refreshToken, now)
	switch status {
	case session.RefreshExpired:
		e.onRefreshExpired(ctx, rec, sess)
	case session.RefreshOrphaned:
		e.onRefreshOrphaned(ctx, rec)
	}
}

func (e *Engine) onRefreshExpired(ctx context.Context, rec *session.RefreshRecord, sess *session.Session) {
	e.metricInc(MetricRefreshExpired)
	if sess == nil {
		return
	}
	e.onSessionRemoved(sess.SessionID)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, AuditEventSessionInvalidated, true, sess.PrincipalID, sess.SessionID, nil, func() map[string]string {
		return map[string]string{"reason": "refresh_expired"}
	})
}

func (e *Engine) onRefreshOrphaned(ctx context.Context, rec *session.RefreshRecord) {
	e.metricInc(MetricRefreshOrphanCleaned)
	e.logger.Warn("removed refresh record without a session", "session_id", rec.SessionID, "principal_id", rec.PrincipalID)
	e.emitAudit(ctx, AuditEventRefreshOrphanCleaned, true, rec.PrincipalID, rec.SessionID, nil, nil)
}

// InvalidateSession removes a session and every refresh record bound to it.
// Invalidating an unknown or already removed session is a no-op.
func (e *Engine) InvalidateSession(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	sessionID, ok := canonicalSessionID(sessionID)
	if !ok {
		return nil
	}
	sess, ok := e.store.Get(sessionID)
	if !ok || !e.store.Delete(sessionID) {
		return nil
	}
	e.onSessionRemoved(sessionID)
	e.metricInc(MetricSessionInvalidated)
	e.emitAudit(ctx, AuditEventSessionInvalidated, true, sess.PrincipalID, sessionID, nil, func() map[string]string {
		return map[string]string{"reason": "logout"}
	})
	return nil
}

// InvalidateAllSessionsForPrincipal logs a principal out everywhere and
// returns how many sessions were removed.
func (e *Engine) InvalidateAllSessionsForPrincipal(ctx context.Context, principalID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	principalID = normalizePrincipalID(principalID)
	if principalID == "" {
		return 0, nil
	}
	removed := e.store.DeleteAllForPrincipal(principalID)
	for _, id := range removed {
		e.onSessionRemoved(id)
	}

	e.metricInc(MetricLogoutAll)
	e.metricAdd(MetricSessionInvalidated, len(removed))
	e.emitAudit(ctx, AuditEventLogoutAll, true, principalID, "", nil, func() map[string]string {
		return map[string]string{"count": strconv.Itoa(len(removed))}
	})
	return len(removed), nil
}

// InvalidateByAccessToken ends the session named by an access token. Only
// the signature is checked, so a client holding an expired token can still
// log out. A forged token yields ErrUnauthenticated; a token whose session
// is already gone is a no-op.
func (e *Engine) InvalidateByAccessToken(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	claims, err := e.codec.ParseAccessSignature(token)
	if err != nil {
		return ErrUnauthenticated
	}
	sess, ok := e.store.Get(claims.SID)
	if !ok {
		return nil
	}
	if sess.PrincipalID != claims.Subject {
		return ErrUnauthenticated
	}
	return e.InvalidateSession(ctx, sess.SessionID)
}

func (e *Engine) onSessionRemoved(sessionID string) {
	e.refreshLimiter.Forget(sessionID)
}

func dedupe(perms []string) []string {
	if len(perms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// canonicalSessionID reports whether id can name a session at all and
// returns its lower-case form.
func canonicalSessionID(id string) (string, bool) {
	canonical, err := internal.ParseSessionID(strings.TrimSpace(id))
	return canonical, err == nil
}

// normalizePrincipalID is applied to every principal ID entering the engine
// so lookups match what CreateSession stored.
func normalizePrincipalID(id string) string {
	return strings.TrimSpace(id)
}

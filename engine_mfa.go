package goSession

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/session"
)

// lookupMFA asks the policy gate whether principalID has MFA enabled. A gate
// failure only matters when the role requires MFA: then it is fatal unless
// the engine is fail-open.
func (e *Engine) lookupMFA(ctx context.Context, principalID string, required bool) (bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, e.config.MFA.LookupTimeout)
	defer cancel()

	enabled, err := e.gate.IsMFAEnabled(lookupCtx, principalID)
	if err == nil {
		return enabled, nil
	}

	e.metricInc(MetricMFAPolicyUnavailable)
	if !required {
		e.logger.Debug("mfa policy lookup failed for unprivileged role", "principal_id", principalID, "error", err)
		return false, nil
	}
	if e.config.MFA.FailOpen {
		e.logger.Warn("mfa policy lookup failed, continuing fail-open", "principal_id", principalID, "error", err)
		return false, nil
	}
	e.logger.Warn("mfa policy lookup failed", "principal_id", principalID, "error", err)
	return false, ErrMFAPolicyUnavailable
}

func (e *Engine) mfaVerificationCurrent(sess *session.Session, now time.Time) bool {
	if !sess.MFAVerified {
		return false
	}
	maxAge := e.config.MFA.VerificationMaxAge
	if maxAge <= 0 {
		return true
	}
	return now.Sub(sess.MFAVerifiedAt) <= maxAge
}

// ConfirmMFA records a fresh step-up verification on a live session, for
// example after the principal re-enters a TOTP code.
func (e *Engine) ConfirmMFA(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	sessionID, ok := canonicalSessionID(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	sess, found := e.store.SetMFAVerified(sessionID, true, e.now())
	if !found {
		return ErrSessionNotFound
	}
	e.metricInc(MetricMFAStepUp)
	e.emitAudit(ctx, AuditEventMFAStepUp, true, sess.PrincipalID, sess.SessionID, nil, nil)
	return nil
}

// ClearMFAVerification revokes a session's MFA verification. Sessions whose
// role requires MFA can no longer refresh until ConfirmMFA is called.
func (e *Engine) ClearMFAVerification(ctx context.Context, sessionID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	sessionID, ok := canonicalSessionID(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	sess, found := e.store.SetMFAVerified(sessionID, false, time.Time{})
	if !found {
		return ErrSessionNotFound
	}
	e.metricInc(MetricMFACleared)
	e.emitAudit(ctx, AuditEventMFACleared, true, sess.PrincipalID, sess.SessionID, nil, nil)
	return nil
}

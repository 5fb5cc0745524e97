package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// ListPrincipalSessions returns the live sessions of a principal, least
// recently active first. The view carries no token material.
func (e *Engine) ListPrincipalSessions(ctx context.Context, principalID string) ([]SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	sessions := e.store.PrincipalSessions(normalizePrincipalID(principalID))
	out := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionInfo(sess))
	}
	return out, nil
}

// GetSessionInfo returns the introspection view of one session.
func (e *Engine) GetSessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	sessionID, ok := canonicalSessionID(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess, found := e.store.Get(sessionID)
	if !found {
		return nil, ErrSessionNotFound
	}
	info := toSessionInfo(sess)
	return &info, nil
}

// ActiveSessionCount returns the number of live sessions across all
// principals.
func (e *Engine) ActiveSessionCount() int {
	if !e.ready() {
		return 0
	}
	return e.store.Len()
}

// PrincipalSessionCount returns the number of live sessions for one
// principal.
func (e *Engine) PrincipalSessionCount(principalID string) int {
	if !e.ready() {
		return 0
	}
	return e.store.PrincipalCount(normalizePrincipalID(principalID))
}

func toSessionInfo(sess *session.Session) SessionInfo {
	return SessionInfo{
		SessionID:     sess.SessionID,
		Role:          sess.Role,
		CreatedAt:     sess.CreatedAt,
		LastActivity:  sess.LastActivity,
		MFAEnabled:    sess.MFAEnabled,
		MFAVerified:   sess.MFAVerified,
		MFAVerifiedAt: sess.MFAVerifiedAt,
	}
}

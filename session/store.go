package session

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrInvalidSession is returned when an insert is missing required fields.
	ErrInvalidSession = errors.New("invalid session")
	// ErrDuplicateSession is returned when an insert reuses a live session ID.
	ErrDuplicateSession = errors.New("duplicate session id")
	// ErrDuplicateRefresh is returned when an insert reuses a live refresh token.
	ErrDuplicateRefresh = errors.New("duplicate refresh token")
)

// TouchStatus is the outcome of [Store.Touch].
type TouchStatus uint8

const (
	// TouchOK means the session is live and its activity was advanced.
	TouchOK TouchStatus = iota
	// TouchNotFound means no session with that ID is registered.
	TouchNotFound
	// TouchIdleExpired means the idle gap exceeded the timeout and the
	// session was removed.
	TouchIdleExpired
	// TouchPrincipalMismatch means the session belongs to another principal.
	// Nothing was changed.
	TouchPrincipalMismatch
)

// RefreshStatus is the outcome of [Store.ResolveRefresh].
type RefreshStatus uint8

const (
	// RefreshOK means the record and its session are live.
	RefreshOK RefreshStatus = iota
	// RefreshNotFound means the token is not in the ledger.
	RefreshNotFound
	// RefreshExpired means the record was past its absolute expiry. The
	// record and its session were removed.
	RefreshExpired
	// RefreshOrphaned means the record pointed at a missing session. The
	// record was removed.
	RefreshOrphaned
)

// SweepResult reports what a [Store.Sweep] pass removed.
type SweepResult struct {
	// PurgedRefresh counts refresh records removed for absolute expiry.
	PurgedRefresh int
	// RefreshExpiredSessions are sessions removed because their refresh
	// record expired.
	RefreshExpiredSessions []*Session
	// IdleSessions are sessions removed for exceeding the idle timeout.
	IdleSessions []*Session
}

// Store is the in-memory session registry and refresh ledger.
//
// All state sits behind one mutex. Every removal path goes through
// removeLocked, which drops the session together with its refresh records.
type Store struct {
	mu sync.Mutex

	sessions    map[string]*Session
	byPrincipal map[string]map[string]struct{}

	refresh          map[string]*RefreshRecord
	refreshBySession map[string]map[string]struct{}

	seq uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		sessions:         make(map[string]*Session),
		byPrincipal:      make(map[string]map[string]struct{}),
		refresh:          make(map[string]*RefreshRecord),
		refreshBySession: make(map[string]map[string]struct{}),
	}
}

// Insert registers sess and its refresh record after enforcing the
// per-principal ceiling.
//
// When the principal already holds maxPerPrincipal or more sessions, the
// oldest by (LastActivity, Seq) are removed until one slot is free. The check,
// the eviction and the insert happen under a single lock, so concurrent
// inserts for the same principal can never leave the live count above the
// ceiling or evict the same session twice. maxPerPrincipal <= 0 disables the
// ceiling. The removed sessions are returned.
func (s *Store) Insert(sess *Session, rec *RefreshRecord, maxPerPrincipal int) ([]*Session, error) {
	if sess == nil || sess.SessionID == "" || sess.PrincipalID == "" {
		return nil, ErrInvalidSession
	}
	if rec != nil && (rec.Token == "" || rec.SessionID != sess.SessionID) {
		return nil, ErrInvalidSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.SessionID]; ok {
		return nil, ErrDuplicateSession
	}
	if rec != nil {
		if _, ok := s.refresh[rec.Token]; ok {
			return nil, ErrDuplicateRefresh
		}
	}

	var evicted []*Session
	if maxPerPrincipal > 0 {
		live := s.principalSessionsLocked(sess.PrincipalID)
		for excess := len(live) - maxPerPrincipal + 1; excess > 0; excess-- {
			victim := live[0]
			live = live[1:]
			s.removeLocked(victim.SessionID)
			evicted = append(evicted, victim.clone())
		}
	}

	s.seq++
	stored := sess.clone()
	stored.Seq = s.seq
	s.sessions[stored.SessionID] = stored

	ids := s.byPrincipal[stored.PrincipalID]
	if ids == nil {
		ids = make(map[string]struct{})
		s.byPrincipal[stored.PrincipalID] = ids
	}
	ids[stored.SessionID] = struct{}{}

	if rec != nil {
		r := *rec
		r.PrincipalID = stored.PrincipalID
		s.refresh[r.Token] = &r
		s.refreshBySession[r.SessionID] = map[string]struct{}{r.Token: {}}
	}

	sess.Seq = stored.Seq
	return evicted, nil
}

// Get returns a snapshot of the session, or false when absent.
func (s *Store) Get(sessionID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return sess.clone(), true
}

// Touch records activity on a session.
//
// If the gap between now and the last recorded activity is greater than idle
// (when idle > 0), the session is removed and TouchIdleExpired is returned
// with the final snapshot. Otherwise LastActivity becomes max(LastActivity,
// now) and the updated snapshot is returned. A non-empty principalID must
// own the session, otherwise TouchPrincipalMismatch is returned and the
// session is left untouched.
func (s *Store) Touch(sessionID, principalID string, now time.Time, idle time.Duration) (*Session, TouchStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, TouchNotFound
	}
	if principalID != "" && sess.PrincipalID != principalID {
		return nil, TouchPrincipalMismatch
	}
	if idle > 0 && now.Sub(sess.LastActivity) > idle {
		snap := sess.clone()
		s.removeLocked(sessionID)
		return snap, TouchIdleExpired
	}
	if now.After(sess.LastActivity) {
		sess.LastActivity = now
	}
	return sess.clone(), TouchOK
}

// ResolveRefresh looks up a refresh token in the ledger.
//
// Expired records take their session with them. Records whose session is
// missing are removed. In both cases the returned status tells the caller
// what was cleaned up. The session snapshot is nil unless status is RefreshOK
// or RefreshExpired with a live session at the time of the call.
func (s *Store) ResolveRefresh(token string, now time.Time) (*RefreshRecord, *Session, RefreshStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.refresh[token]
	if !ok {
		return nil, nil, RefreshNotFound
	}
	out := *rec

	sess, live := s.sessions[rec.SessionID]
	if rec.Expired(now) {
		var snap *Session
		if live {
			snap = sess.clone()
			s.removeLocked(rec.SessionID)
		} else {
			s.removeRefreshLocked(token)
		}
		return &out, snap, RefreshExpired
	}
	if !live {
		s.removeRefreshLocked(token)
		return &out, nil, RefreshOrphaned
	}
	return &out, sess.clone(), RefreshOK
}

// Delete removes a session and every refresh record bound to it. It reports
// whether the session existed; deleting an absent session is a no-op.
func (s *Store) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(sessionID)
}

// DeleteAllForPrincipal removes every session owned by principalID and
// returns the removed session IDs.
func (s *Store) DeleteAllForPrincipal(principalID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byPrincipal[principalID]
	if len(ids) == 0 {
		return nil
	}
	removed := make([]string, 0, len(ids))
	for id := range ids {
		removed = append(removed, id)
	}
	sort.Strings(removed)
	for _, id := range removed {
		s.removeLocked(id)
	}
	return removed
}

// PrincipalSessions returns snapshots of the principal's live sessions,
// oldest activity first. Equal activity is ordered by insertion.
func (s *Store) PrincipalSessions(principalID string) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.principalSessionsLocked(principalID)
	out := make([]*Session, len(live))
	for i, sess := range live {
		out[i] = sess.clone()
	}
	return out
}

// SetMFAVerified marks or clears MFA verification on a live session. The
// verification time is recorded when verified is true and zeroed otherwise.
func (s *Store) SetMFAVerified(sessionID string, verified bool, at time.Time) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	sess.MFAVerified = verified
	if verified {
		sess.MFAVerifiedAt = at
	} else {
		sess.MFAVerifiedAt = time.Time{}
	}
	return sess.clone(), true
}

// SetMFAEnabled updates the cached MFA-enabled flag of a live session.
func (s *Store) SetMFAEnabled(sessionID string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	sess.MFAEnabled = enabled
	return true
}

// Sweep removes refresh records past absolute expiry, together with their
// sessions, and every session idle for longer than idle (when idle > 0).
func (s *Store) Sweep(now time.Time, idle time.Duration) SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res SweepResult
	for token, rec := range s.refresh {
		if !rec.Expired(now) {
			continue
		}
		res.PurgedRefresh++
		if sess, ok := s.sessions[rec.SessionID]; ok {
			res.RefreshExpiredSessions = append(res.RefreshExpiredSessions, sess.clone())
			res.PurgedRefresh += len(s.refreshBySession[rec.SessionID]) - 1
			s.removeLocked(rec.SessionID)
			continue
		}
		s.removeRefreshLocked(token)
	}

	if idle <= 0 {
		return res
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.LastActivity) > idle {
			res.IdleSessions = append(res.IdleSessions, sess.clone())
			s.removeLocked(id)
		}
	}
	return res
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RefreshLen returns the number of refresh records in the ledger.
func (s *Store) RefreshLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refresh)
}

// PrincipalCount returns the number of live sessions owned by principalID.
func (s *Store) PrincipalCount(principalID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPrincipal[principalID])
}

func (s *Store) principalSessionsLocked(principalID string) []*Session {
	ids := s.byPrincipal[principalID]
	live := make([]*Session, 0, len(ids))
	for id := range ids {
		if sess, ok := s.sessions[id]; ok {
			live = append(live, sess)
		}
	}
	sort.Slice(live, func(i, j int) bool {
		a, b := live[i], live[j]
		if !a.LastActivity.Equal(b.LastActivity) {
			return a.LastActivity.Before(b.LastActivity)
		}
		return a.Seq < b.Seq
	})
	return live
}

func (s *Store) removeLocked(sessionID string) bool {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}
	delete(s.sessions, sessionID)

	if ids := s.byPrincipal[sess.PrincipalID]; ids != nil {
		delete(ids, sessionID)
		if len(ids) == 0 {
			delete(s.byPrincipal, sess.PrincipalID)
		}
	}

	for token := range s.refreshBySession[sessionID] {
		delete(s.refresh, token)
	}
	delete(s.refreshBySession, sessionID)
	return true
}

func (s *Store) removeRefreshLocked(token string) {
	rec, ok := s.refresh[token]
	if !ok {
		return
	}
	delete(s.refresh, token)
	if tokens := s.refreshBySession[rec.SessionID]; tokens != nil {
		delete(tokens, token)
		if len(tokens) == 0 {
			delete(s.refreshBySession, rec.SessionID)
		}
	}
}

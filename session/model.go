package session

import "time"

// Session is one live authenticated session.
//
// Values returned by [Store] are snapshots; mutating them does not change the
// registry.
type Session struct {
	SessionID   string
	PrincipalID string
	Email       string
	Role        string
	Permissions []string

	CreatedAt    time.Time
	LastActivity time.Time

	MFAEnabled    bool
	MFAVerified   bool
	MFAVerifiedAt time.Time

	// Seq is the insertion order assigned by the store. It breaks eviction
	// ties between sessions with identical LastActivity.
	Seq uint64
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Permissions != nil {
		c.Permissions = append([]string(nil), s.Permissions...)
	}
	return &c
}

// RefreshRecord binds an issued refresh token to its session.
type RefreshRecord struct {
	Token          string
	SessionID      string
	PrincipalID    string
	IssuedAt       time.Time
	AbsoluteExpiry time.Time
}

// Expired reports whether the record is past its absolute expiry at now.
func (r *RefreshRecord) Expired(now time.Time) bool {
	return !now.Before(r.AbsoluteExpiry)
}

package goSession

import (
	"context"
	"time"
)

// AuthenticationResult is what an external login flow hands over after it
// has verified the principal's credentials.
type AuthenticationResult struct {
	PrincipalID        string
	Email              string
	Role               string
	Permissions        []string
	MFAVerifiedAtLogin bool
}

// TokenPair is returned to the transport layer for delivery to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresAt is the access token expiry in Unix milliseconds.
	ExpiresAt int64  `json:"expiresAt"`
	TokenType string `json:"tokenType"`
}

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

// SessionUser is the authorization snapshot produced by a successful
// ValidateAccessToken. MFAVerified reflects the live session, not the claim
// embedded in the token.
type SessionUser struct {
	PrincipalID string
	Email       string
	Role        string
	Permissions []string
	SessionID   string
	MFAVerified bool
}

// HasPermission reports whether perm is in the user's permission set.
func (u *SessionUser) HasPermission(perm string) bool {
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// SessionInfo is the introspection view of a live session. It carries no
// token material.
type SessionInfo struct {
	SessionID     string
	Role          string
	CreatedAt     time.Time
	LastActivity  time.Time
	MFAEnabled    bool
	MFAVerified   bool
	MFAVerifiedAt time.Time
}

// MFAPolicyGate answers whether a principal has MFA enabled. Implementations
// live in the mfa package; any type with this method works.
type MFAPolicyGate interface {
	IsMFAEnabled(ctx context.Context, principalID string) (bool, error)
}

// MFAPolicyFunc adapts a function to MFAPolicyGate.
type MFAPolicyFunc func(ctx context.Context, principalID string) (bool, error)

func (f MFAPolicyFunc) IsMFAEnabled(ctx context.Context, principalID string) (bool, error) {
	return f(ctx, principalID)
}

type disabledMFAGate struct{}

func (disabledMFAGate) IsMFAEnabled(context.Context, string) (bool, error) { return false, nil }

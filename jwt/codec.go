package jwt

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	useAccess  = "access"
	useRefresh = "refresh"
)

var (
	// ErrSharedKey is returned by [NewCodec] when the access and refresh
	// managers would verify with the same key.
	ErrSharedKey = errors.New("access and refresh tokens must use distinct signing keys")
	// ErrWrongTokenUse is returned when a token of one kind is presented as
	// the other.
	ErrWrongTokenUse = errors.New("token type mismatch")
	// ErrMissingClaim is returned when a required claim is empty.
	ErrMissingClaim = errors.New("missing required claim")
)

// AccessClaims are the claims carried by an access token.
type AccessClaims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"perms,omitempty"`
	SID         string   `json:"sid"`
	MFAVerified bool     `json:"mfa"`
	Use         string   `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims carried by a refresh token.
type RefreshClaims struct {
	SID string `json:"sid"`
	Use string `json:"typ"`
	jwt.RegisteredClaims
}

// AccessInput is what gets embedded into a new access token.
type AccessInput struct {
	PrincipalID string
	Role        string
	Permissions []string
	SessionID   string
	MFAVerified bool
}

// Codec issues and verifies the two token kinds, each with its own key and
// lifetime.
type Codec struct {
	access  *Manager
	refresh *Manager
}

// NewCodec builds both managers and rejects configurations where a leaked
// access key would also verify refresh tokens.
func NewCodec(access, refresh Config) (*Codec, error) {
	am, err := NewManager(access)
	if err != nil {
		return nil, errors.New("access token: " + err.Error())
	}
	rm, err := NewManager(refresh)
	if err != nil {
		return nil, errors.New("refresh token: " + err.Error())
	}
	if subtle.ConstantTimeCompare(am.verifyKeyBytes(), rm.verifyKeyBytes()) == 1 {
		return nil, ErrSharedKey
	}
	return &Codec{access: am, refresh: rm}, nil
}

// AccessTTL returns the access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.access.TTL() }

// RefreshTTL returns the refresh token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refresh.TTL() }

// IssueAccess mints an access token and returns it with its expiry.
func (c *Codec) IssueAccess(in AccessInput) (string, time.Time, error) {
	if strings.TrimSpace(in.PrincipalID) == "" || in.SessionID == "" {
		return "", time.Time{}, ErrMissingClaim
	}
	claims := AccessClaims{
		Role:             in.Role,
		Permissions:      append([]string(nil), in.Permissions...),
		SID:              in.SessionID,
		MFAVerified:      in.MFAVerified,
		Use:              useAccess,
		RegisteredClaims: c.access.registered(in.PrincipalID, 0),
	}
	token, err := c.access.signClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// ParseAccess verifies signature, expiry and issuer/audience of an access
// token.
func (c *Codec) ParseAccess(token string) (*AccessClaims, error) {
	return c.parseAccess(token, false)
}

// ParseAccessSignature verifies only the signature of an access token. It
// accepts expired tokens and is meant for logout, where the caller already
// held a genuine token.
func (c *Codec) ParseAccessSignature(token string) (*AccessClaims, error) {
	return c.parseAccess(token, true)
}

func (c *Codec) parseAccess(token string, skipExpiry bool) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.access.parseClaims(token, claims, skipExpiry); err != nil {
		return nil, err
	}
	if claims.Use != useAccess {
		return nil, ErrWrongTokenUse
	}
	if claims.Subject == "" || claims.SID == "" {
		return nil, ErrMissingClaim
	}
	return claims, nil
}

// IssueRefresh mints a refresh token bound to sessionID. Its exp claim is
// the absolute expiry of the session's refresh capability.
func (c *Codec) IssueRefresh(principalID, sessionID string) (string, time.Time, error) {
	if strings.TrimSpace(principalID) == "" || sessionID == "" {
		return "", time.Time{}, ErrMissingClaim
	}
	claims := RefreshClaims{
		SID:              sessionID,
		Use:              useRefresh,
		RegisteredClaims: c.refresh.registered(principalID, 0),
	}
	token, err := c.refresh.signClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// ParseRefresh verifies a refresh token.
func (c *Codec) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.refresh.parseClaims(token, claims, false); err != nil {
		return nil, err
	}
	if claims.Use != useRefresh {
		return nil, ErrWrongTokenUse
	}
	if claims.Subject == "" || claims.SID == "" {
		return nil, ErrMissingClaim
	}
	return claims, nil
}

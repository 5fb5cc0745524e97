package goSession

import "errors"

var (
	// ErrMFARequired is returned by CreateSession when the role requires MFA
	// and the login flow did not verify it.
	ErrMFARequired = errors.New("mfa required")
	// ErrMFAVerificationExpired is returned by RefreshAccessToken when the
	// role requires MFA and the session's verification was cleared or lapsed.
	ErrMFAVerificationExpired = errors.New("mfa verification expired")
	// ErrMFAPolicyUnavailable is returned when the MFA policy lookup failed
	// for a role that requires MFA and the engine is configured fail-closed.
	ErrMFAPolicyUnavailable = errors.New("mfa policy unavailable")
	// ErrUnauthenticated is the single answer for any refresh token that is
	// malformed, forged, expired, revoked or orphaned.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrRefreshRateLimited is returned when a session refreshes faster than
	// Security.RefreshRateLimit allows.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrInvalidAuthentication is returned for an AuthenticationResult
	// without a principal or role.
	ErrInvalidAuthentication = errors.New("invalid authentication result")
	// ErrSessionCreationFailed wraps token minting or store failures.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionNotFound is returned by operations addressing a session that
	// is not live.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEngineNotReady is returned when a method is called on a nil or
	// closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

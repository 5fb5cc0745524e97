// Package goSession is an in-process session authority. It turns a
// principal that an external login flow has already authenticated into a
// tracked session with a short-lived access token and a longer-lived
// refresh token, and it decides on every request whether that session is
// still allowed.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface. It exposes [Engine], [Builder], [Config]
// and value types such as [TokenPair], [SessionUser] and [SessionInfo]. The
// session registry and refresh ledger live in the session package and are
// mutated only through the Engine. Token encoding lives in the jwt package;
// rate limiting, audit dispatch and counters live under internal/.
//
// # Revocation model
//
// Access tokens are signed, but a valid signature is not enough: every
// validation also requires the session to be registered and not idle. Logout,
// eviction and the reaper therefore take effect on the next request.
//
// Refresh tokens are not rotated. A refresh returns the same refresh token
// until its absolute expiry, after which the session ends.
//
// # MFA
//
// Roles selected by [MFAConfig] require MFA. The MFA-enabled flag of a
// principal comes from an [MFAPolicyGate]; the mfa package provides Redis,
// Postgres, coalescing and cached implementations.
package goSession

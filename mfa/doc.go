// Package mfa provides lookups that answer one question for the session
// authority: does this principal have MFA enabled?
//
// # Implementations
//
//   - [RedisGate] reads a flag from a Redis user-profile hash.
//   - [PostgresGate] reads a boolean column from a user-profile table.
//   - [Static] answers from an in-memory map (tests and examples).
//   - [Coalescing] collapses concurrent lookups for the same principal.
//   - [Cached] keeps recent answers in a bounded TTL cache.
//
// Every implementation satisfies [Gate], which has the same method set as
// goSession.MFAPolicyGate. Lookup failures are returned as errors wrapping
// [ErrLookupFailed]; a principal with no profile is reported as false, nil.
//
// # What this package must NOT do
//
//   - Import goSession (no upward imports).
//   - Decide whether a failure is fatal. Fail-open versus fail-closed is the
//     engine's policy.
package mfa

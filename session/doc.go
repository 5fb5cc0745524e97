// Package session provides the in-memory session registry and refresh ledger
// that back the session authority.
//
// # Ownership
//
// A single [Store] owns both the live session records and the refresh-token
// records that point at them. Both maps sit behind one mutex so that
// insertion, concurrency-ceiling eviction, cascaded invalidation and sweeping
// are linearizable with each other. A session removed through any path is
// removed together with every refresh record that references it.
//
// # Architecture boundaries
//
// This package does NOT mint or parse tokens, evaluate MFA policy, emit audit
// events, or read the clock. Callers pass the current time in explicitly.
//
// # What this package must NOT do
//
//   - Import goSession, jwt, or mfa (no upward imports).
//   - Return pointers into its internal maps. Every returned [Session] is a copy.
package session

// Package rate provides in-memory keyed token-bucket limiters built on
// golang.org/x/time/rate.
//
// The engine keys one bucket per session to throttle refresh calls. Buckets
// that have not been used for a while are dropped by [Limiter.Prune], which the
// reaper calls on every sweep.
//
// # What this package must NOT do
//
//   - Know what a key means (session, principal, IP).
//   - Be imported outside the goSession module.
package rate

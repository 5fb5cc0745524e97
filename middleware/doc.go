// Package middleware adapts goSession.Engine validation to net/http.
//
// # Guards
//
//   - [Guard] resolves the bearer token to a live session and stores the
//     resulting goSession.SessionUser in the request context.
//   - [RequireMFA] rejects sessions without current MFA verification.
//   - [RequirePermission] rejects sessions missing a permission.
//
// Every rejection before a session is found is a plain 401; the response
// never says whether the token was malformed, expired or revoked.
//
// This package translates HTTP semantics into Engine calls. It does not
// parse tokens or touch session state itself.
package middleware

// Package middleware adapts [boardAuth.Engine] authentication to net/http.
//
// # Guards
//
//   - [Guard] verifies the bearer access token and stores the principal.
//   - [RequireAuthority] narrows a guarded route to one authority.
//   - [ClientIP] records the caller address for throttling and audit.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to the Engine).
//   - Access Redis.
//   - Make authorization decisions beyond a single authority check.
package middleware

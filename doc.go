// Package boardAuth provides the token session lifecycle for a forum content
// service: login issues a paired access/refresh JWT, every request
// authenticates the access token, reissue rotates the refresh token, and
// logout revokes through a shared Redis cache.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// boardAuth is the public surface. It exposes [Engine], [Builder], [Config],
// the [Code] taxonomy and value types ([Principal], [TokenPair],
// [MetricsSnapshot]). Flow orchestration, throttling and audit dispatch live
// under internal/.
//
// # Cache layout
//
// The session cache holds two key families: session:<memberId> with the
// member's only valid refresh token, and revoked:<accessToken> with a marker
// that lives exactly as long as the token would have. The optional login
// throttle adds throttle:login:<email>.
//
// # What this package must NOT do
//
//   - Expose Redis clients or internal stores in its public API.
//   - Retry internally. Callers retry on EXPIRED (via reissue) and
//     CACHE_UNAVAILABLE.
//   - Import any sub-package that re-imports boardAuth.
//
// # Performance contract
//
// Authenticate is the hot path: one Redis EXISTS after signature checks.
// Login costs one SET, reissue a GET and a SET (or one script with
// Session.AtomicRotation), logout a DEL and a SET.
package boardAuth

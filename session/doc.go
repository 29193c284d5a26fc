// Package session is the Redis-backed session cache.
//
// # Key families
//
// Exactly two key families are written:
//
//   - session:<memberId> holds the member's single active refresh token and
//     expires with it.
//   - revoked:<accessToken> marks a logged-out access token and expires when
//     the token itself would have.
//
// Every call is bounded by the store's operation timeout. Connectivity and
// timeout failures are wrapped with [ErrCacheUnavailable].
//
// # What this package must NOT do
//
//   - Import boardAuth or jwt (no upward imports).
//   - Interpret token contents or make authentication decisions.
package session

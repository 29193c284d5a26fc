// Package rate provides the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys live
// under a configurable prefix (default "throttle"):
//   - <prefix>:login:<email>: failed logins per email
//   - <prefix>:ip:<addr>: failed logins per client IP (optional)
//
// After MaxLoginAttempts failures inside the window, CheckLogin refuses
// further attempts until the window expires.
//
// # What this package must NOT do
//
//   - Decide whether a login succeeded; callers report failures.
//   - Be imported outside the boardAuth module.
package rate

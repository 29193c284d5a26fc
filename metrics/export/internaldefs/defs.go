package internaldefs

import (
	boardAuth "github.com/MrEthical07/boardAuth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   boardAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   boardAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: boardAuth.MetricLoginSuccess, Name: "boardauth_login_success_total", Help: "Successful logins."},
	{ID: boardAuth.MetricLoginFailure, Name: "boardauth_login_failure_total", Help: "Failed logins."},
	{ID: boardAuth.MetricLoginRateLimited, Name: "boardauth_login_rate_limited_total", Help: "Logins rejected by the failed-login throttle."},
	{ID: boardAuth.MetricAuthenticateSuccess, Name: "boardauth_authenticate_success_total", Help: "Access tokens accepted."},
	{ID: boardAuth.MetricAuthenticateFailure, Name: "boardauth_authenticate_failure_total", Help: "Access tokens rejected."},
	{ID: boardAuth.MetricRevokedTokenRejected, Name: "boardauth_revoked_token_rejected_total", Help: "Access tokens rejected because they were logged out."},
	{ID: boardAuth.MetricReissueSuccess, Name: "boardauth_reissue_success_total", Help: "Successful token reissues."},
	{ID: boardAuth.MetricReissueFailure, Name: "boardauth_reissue_failure_total", Help: "Failed token reissues."},
	{ID: boardAuth.MetricRefreshMismatch, Name: "boardauth_refresh_mismatch_total", Help: "Reissues presenting a refresh token that is not the stored one."},
	{ID: boardAuth.MetricLogout, Name: "boardauth_logout_total", Help: "Logouts."},
	{ID: boardAuth.MetricSignupSuccess, Name: "boardauth_signup_success_total", Help: "Registered members."},
	{ID: boardAuth.MetricSignupDuplicate, Name: "boardauth_signup_duplicate_total", Help: "Signups rejected as duplicate email."},
	{ID: boardAuth.MetricCacheUnavailable, Name: "boardauth_cache_unavailable_total", Help: "Operations failed because Redis was unreachable."},
	{ID: boardAuth.MetricPasswordRehash, Name: "boardauth_password_rehash_total", Help: "Stored password hashes upgraded on login."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: boardAuth.MetricAuthenticateLatency, Name: "boardauth_authenticate_latency_seconds", Help: "Authenticate latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "boardauth_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is the implicit +Inf bucket.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBounds are the le labels for the text exposition, +Inf included.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names per-bucket instruments where labels are not
// available.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

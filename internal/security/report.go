package security

import "time"

// PasswordReport mirrors the argon2id parameters in force.
type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Report is a point-in-time summary of the engine's security posture.
type Report struct {
	SigningAlgorithm    string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	Argon2              PasswordReport
	AtomicRotation      bool
	LoginThrottleActive bool
	IPThrottleActive    bool
	AuditActive         bool
	PasswordUpgrade     bool
	Warnings            []string
}

// ReportInput carries the configuration values BuildReport inspects.
type ReportInput struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Leeway                time.Duration
	Password              PasswordReport
	AtomicRotation        bool
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	AuditEnabled          bool
	UpgradeOnLogin        bool
}

const (
	// A logged-out access token stays revoked for its remaining lifetime, so
	// long access TTLs keep many markers alive.
	longAccessTTL   = time.Hour
	minArgon2Memory = 19 * 1024
)

// Warning texts returned in Report.Warnings.
const (
	WarnLongAccessTTL    = "access token lifetime exceeds 1h"
	WarnRotationRace     = "concurrent reissues of one session are last-writer-wins"
	WarnNoLoginThrottle  = "failed logins are not throttled"
	WarnWeakArgon2Memory = "argon2id memory is below 19 MiB"
	WarnLargeLeeway      = "clock leeway exceeds 30s"
)

// BuildReport summarizes the security posture of input and collects warnings.
//
// BuildReport does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func BuildReport(input ReportInput) Report {
	throttle := input.EnableLoginThrottle &&
		input.MaxLoginAttempts > 0 &&
		input.LoginCooldownDuration > 0

	r := Report{
		SigningAlgorithm:    input.SigningAlgorithm,
		AccessTTL:           input.AccessTTL,
		RefreshTTL:          input.RefreshTTL,
		Argon2:              input.Password,
		AtomicRotation:      input.AtomicRotation,
		LoginThrottleActive: throttle,
		IPThrottleActive:    throttle && input.EnableIPThrottle,
		AuditActive:         input.AuditEnabled,
		PasswordUpgrade:     input.UpgradeOnLogin,
	}

	if input.AccessTTL > longAccessTTL {
		r.Warnings = append(r.Warnings, WarnLongAccessTTL)
	}
	if !input.AtomicRotation {
		r.Warnings = append(r.Warnings, WarnRotationRace)
	}
	if !throttle {
		r.Warnings = append(r.Warnings, WarnNoLoginThrottle)
	}
	if input.Password.Memory < minArgon2Memory {
		r.Warnings = append(r.Warnings, WarnWeakArgon2Memory)
	}
	if input.Leeway > 30*time.Second {
		r.Warnings = append(r.Warnings, WarnLargeLeeway)
	}
	return r
}

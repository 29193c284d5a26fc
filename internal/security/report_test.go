package security

import (
	"slices"
	"testing"
	"time"
)

func TestBuildReportWarnings(t *testing.T) {
	r := BuildReport(ReportInput{
		SigningAlgorithm: "HS256",
		AccessTTL:        2 * time.Hour,
		RefreshTTL:       14 * 24 * time.Hour,
		Leeway:           time.Minute,
		Password:         PasswordReport{Memory: 8 * 1024},
	})

	for _, w := range []string{WarnLongAccessTTL, WarnRotationRace, WarnNoLoginThrottle, WarnWeakArgon2Memory, WarnLargeLeeway} {
		if !slices.Contains(r.Warnings, w) {
			t.Fatalf("expected warning %q in %v", w, r.Warnings)
		}
	}
	if r.LoginThrottleActive || r.IPThrottleActive {
		t.Fatal("throttle must be inactive")
	}
}

func TestBuildReportHardened(t *testing.T) {
	r := BuildReport(ReportInput{
		SigningAlgorithm:      "HS256",
		AccessTTL:             15 * time.Minute,
		RefreshTTL:            24 * time.Hour,
		Password:              PasswordReport{Memory: 64 * 1024},
		AtomicRotation:        true,
		EnableLoginThrottle:   true,
		EnableIPThrottle:      true,
		MaxLoginAttempts:      5,
		LoginCooldownDuration: 15 * time.Minute,
		AuditEnabled:          true,
	})

	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", r.Warnings)
	}
	if !r.LoginThrottleActive || !r.IPThrottleActive || !r.AuditActive {
		t.Fatalf("unexpected report %+v", r)
	}
}

func TestIPThrottleNeedsLoginThrottle(t *testing.T) {
	r := BuildReport(ReportInput{EnableIPThrottle: true})
	if r.IPThrottleActive {
		t.Fatal("ip throttle rides on the login throttle")
	}
}

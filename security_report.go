package boardAuth

import "github.com/MrEthical07/boardAuth/internal/security"

// SecurityReport summarizes the engine's security posture. Warnings lists
// settings worth reviewing before production use.
type SecurityReport = security.Report

// SecurityReport returns the posture report for the engine's configuration.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	c := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm: "HS256",
		AccessTTL:        c.JWT.AccessTTL,
		RefreshTTL:       c.JWT.RefreshTTL,
		Leeway:           c.JWT.Leeway,
		Password: security.PasswordReport{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			SaltLength:  c.Password.SaltLength,
			KeyLength:   c.Password.KeyLength,
		},
		AtomicRotation:        c.Session.AtomicRotation,
		EnableLoginThrottle:   c.Security.EnableLoginThrottle,
		EnableIPThrottle:      c.Security.EnableIPThrottle,
		MaxLoginAttempts:      c.Security.MaxLoginAttempts,
		LoginCooldownDuration: c.Security.LoginCooldownDuration,
		AuditEnabled:          c.Audit.Enabled,
		UpgradeOnLogin:        c.Password.UpgradeOnLogin,
	})
}

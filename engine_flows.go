package boardAuth

import (
	"context"

	"github.com/MrEthical07/boardAuth/internal/flows"
)

// flowDeps wires the engine's collaborators into the flow runners. Optional
// hooks stay nil when their feature is off.
func (e *Engine) flowDeps() flows.Deps {
	defaults := e.config.Security.DefaultAuthorities
	warn := func(msg string, args ...any) { e.logger.Warn(msg, args...) }

	login := flows.LoginDeps{
		Tokens:             e.jwtManager,
		Sessions:           e.sessionStore,
		FindByEmail:        e.directory.FindByEmail,
		VerifyPassword:     e.verifier.Matches,
		DummyHash:          e.dummyHash,
		DefaultAuthorities: defaults,
		ClientIP:           ClientIPFromContext,
		Warn:               warn,
	}
	if e.rateLimiter != nil {
		login.CheckLoginRate = e.rateLimiter.CheckLogin
		login.IncrementLoginRate = e.rateLimiter.IncrementLogin
		login.ResetLoginRate = e.rateLimiter.ResetLogin
	}
	if e.rehasher != nil && e.upgradeCheck != nil {
		login.PasswordNeedsUpgrade = e.upgradeCheck.NeedsUpgrade
		login.HashPassword = e.hasher.Hash
		login.UpdatePasswordHash = func(ctx context.Context, memberID, hash string) error {
			if err := e.rehasher.UpdatePasswordHash(ctx, memberID, hash); err != nil {
				return err
			}
			e.metricInc(MetricPasswordRehash)
			return nil
		}
	}

	deps := flows.Deps{
		Login: login,
		Authenticate: flows.AuthenticateDeps{
			Tokens:   e.jwtManager,
			Sessions: e.sessionStore,
		},
		Reissue: flows.ReissueDeps{
			Tokens:             e.jwtManager,
			Sessions:           e.sessionStore,
			FindByID:           e.directory.FindByID,
			DefaultAuthorities: defaults,
			AtomicRotation:     e.config.Session.AtomicRotation,
		},
		Logout: flows.LogoutDeps{
			Tokens:   e.jwtManager,
			Sessions: e.sessionStore,
			Now:      e.clock.Now,
			Leeway:   e.jwtManager.Leeway(),
		},
	}
	if e.registry != nil {
		deps.Signup = flows.SignupDeps{
			FindByEmail:        e.registry.FindByEmail,
			CreateMember:       e.registry.Create,
			HashPassword:       e.hasher.Hash,
			DefaultAuthorities: defaults,
		}
	}
	return deps
}

package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/boardAuth/internal/rate"
	"github.com/MrEthical07/boardAuth/jwt"
	"github.com/MrEthical07/boardAuth/member"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureInvalidCredentials
	LoginFailureDirectory
	LoginFailureIssue
	LoginFailureCache
)

// LoginResult carries either the issued pair or a classified failure.
// Reason is a short audit label and is never shown to clients.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Reason  string
	Member  *member.Member
	Pair    jwt.Pair
}

// LoginDeps captures login dependencies. The throttle and rehash hooks are
// optional and skipped when nil.
type LoginDeps struct {
	Tokens             TokenCodec
	Sessions           SessionCache
	FindByEmail        func(context.Context, string) (*member.Member, error)
	VerifyPassword     func(plaintext, hash string) (bool, error)
	DummyHash          string
	DefaultAuthorities []string

	ClientIP           func(context.Context) string
	CheckLoginRate     func(ctx context.Context, email, ip string) error
	IncrementLoginRate func(ctx context.Context, email, ip string) error
	ResetLoginRate     func(ctx context.Context, email string) error

	PasswordNeedsUpgrade func(hash string) (bool, error)
	HashPassword         func(plaintext string) (string, error)
	UpdatePasswordHash   func(ctx context.Context, memberID, hash string) error

	Warn func(string, ...any)
}

// RunLogin authenticates email/password and issues a fresh token pair,
// overwriting any refresh token already stored for the member. Unknown email,
// wrong password and inactive member all fail with
// LoginFailureInvalidCredentials.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	ip := ""
	if deps.ClientIP != nil {
		ip = deps.ClientIP(ctx)
	}
	email = member.NormalizeEmail(email)

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err, Reason: "throttled"}
			}
			deps.Warn("boardAuth: login throttle check failed", "error", err)
		}
	}

	fail := func(reason string, m *member.Member) LoginResult {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, email, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				deps.Warn("boardAuth: login throttle increment failed", "error", err)
			}
		}
		return LoginResult{Failure: LoginFailureInvalidCredentials, Reason: reason, Member: m}
	}

	if email == "" || password == "" {
		return fail("empty_credentials", nil)
	}

	m, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, member.ErrNotFound) {
			return LoginResult{Failure: LoginFailureDirectory, Err: err, Reason: "directory"}
		}
		// Burn the same verifier cost as a real member.
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(password, deps.DummyHash)
		}
		return fail("unknown_email", nil)
	}

	ok, err := deps.VerifyPassword(password, m.PasswordHash)
	if err != nil {
		deps.Warn("boardAuth: stored password hash rejected", "member_id", m.ID, "error", err)
		return fail("password_mismatch", m)
	}
	if !ok {
		return fail("password_mismatch", m)
	}
	if !m.Active {
		return fail("inactive", m)
	}

	upgradePasswordHash(ctx, m, password, deps)
	password = ""

	pair, err := deps.Tokens.IssuePair(m.Email, m.ID, authoritiesOrDefault(m, deps.DefaultAuthorities))
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, Member: m}
	}
	if err := deps.Sessions.PutRefreshToken(ctx, m.ID, pair.Refresh, deps.Tokens.TTL(jwt.KindRefresh)); err != nil {
		return LoginResult{Failure: LoginFailureCache, Err: err, Member: m}
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email); err != nil {
			deps.Warn("boardAuth: login throttle reset failed", "error", err)
		}
	}

	return LoginResult{Member: m, Pair: pair}
}

func upgradePasswordHash(ctx context.Context, m *member.Member, password string, deps LoginDeps) {
	if deps.PasswordNeedsUpgrade == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return
	}
	needsUpgrade, err := deps.PasswordNeedsUpgrade(m.PasswordHash)
	if err != nil || !needsUpgrade {
		return
	}
	upgraded, err := deps.HashPassword(password)
	if err != nil {
		deps.Warn("boardAuth: password hash upgrade generation failed", "member_id", m.ID)
		return
	}
	if err := deps.UpdatePasswordHash(ctx, m.ID, upgraded); err != nil {
		deps.Warn("boardAuth: password hash upgrade update failed", "member_id", m.ID)
		return
	}
	m.PasswordHash = upgraded
}

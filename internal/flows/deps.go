package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/boardAuth/jwt"
	"github.com/MrEthical07/boardAuth/member"
)

// TokenCodec is the subset of the jwt manager the flows call.
type TokenCodec interface {
	IssuePair(subject, memberID string, authorities []string) (jwt.Pair, error)
	VerifyKind(token string, kind jwt.Kind) (*jwt.Claims, error)
	ExtractClaimsIgnoringExpiry(token string) (*jwt.Claims, error)
	TTL(kind jwt.Kind) time.Duration
}

// SessionCache is the subset of the session store the flows call.
type SessionCache interface {
	PutRefreshToken(ctx context.Context, memberID, token string, ttl time.Duration) error
	CompareRefreshToken(ctx context.Context, memberID, provided string) error
	RotateRefreshToken(ctx context.Context, memberID, provided, next string, ttl time.Duration) error
	DeleteRefreshToken(ctx context.Context, memberID string) error
	RevokeAccessToken(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Login        LoginDeps
	Authenticate AuthenticateDeps
	Reissue      ReissueDeps
	Logout       LogoutDeps
	Signup       SignupDeps
}

func authoritiesOrDefault(m *member.Member, defaults []string) []string {
	if len(m.Authorities) > 0 {
		return m.Authorities
	}
	out := make([]string, len(defaults))
	copy(out, defaults)
	return out
}

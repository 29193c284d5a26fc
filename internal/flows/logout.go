package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/boardAuth/jwt"
)

// LogoutFailureKind classifies logout failures.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureToken
	LogoutFailureCache
)

// LogoutResult reports the outcome of a logout. RevokedFor is the lifetime
// given to the revocation marker.
type LogoutResult struct {
	Failure    LogoutFailureKind
	Err        error
	Claims     *jwt.Claims
	RevokedFor time.Duration
}

// LogoutDeps captures logout dependencies. Leeway must match the codec's
// expiry tolerance so the marker outlives every accepted use of the token.
type LogoutDeps struct {
	Tokens   TokenCodec
	Sessions SessionCache
	Now      func() time.Time
	Leeway   time.Duration
}

// RunLogout ends the member's session: the stored refresh token is deleted
// and the access token is marked revoked until the codec would stop
// accepting it.
func RunLogout(ctx context.Context, accessToken string, deps LogoutDeps) LogoutResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	claims, err := deps.Tokens.VerifyKind(accessToken, jwt.KindAccess)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureToken, Err: err}
	}

	if err := deps.Sessions.DeleteRefreshToken(ctx, claims.MemberID); err != nil {
		return LogoutResult{Failure: LogoutFailureCache, Err: err, Claims: claims}
	}

	remaining := claims.AcceptedFor(deps.Now(), deps.Leeway)
	if err := deps.Sessions.RevokeAccessToken(ctx, accessToken, remaining); err != nil {
		return LogoutResult{Failure: LogoutFailureCache, Err: err, Claims: claims}
	}

	return LogoutResult{Claims: claims, RevokedFor: remaining}
}

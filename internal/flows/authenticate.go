package flows

import (
	"context"

	"github.com/MrEthical07/boardAuth/jwt"
)

// AuthenticateFailureKind classifies access-token validation failures.
type AuthenticateFailureKind int

const (
	AuthenticateFailureNone AuthenticateFailureKind = iota
	// AuthenticateFailureToken carries the codec error verbatim.
	AuthenticateFailureToken
	AuthenticateFailureRevoked
	AuthenticateFailureNoAuthorities
	AuthenticateFailureCache
)

// AuthenticateResult returns either verified claims or a classified failure.
type AuthenticateResult struct {
	Failure AuthenticateFailureKind
	Err     error
	Claims  *jwt.Claims
}

// AuthenticateDeps captures access-token validation dependencies.
type AuthenticateDeps struct {
	Tokens   TokenCodec
	Sessions SessionCache
}

// RunAuthenticate verifies an access token and checks it against the
// revocation markers.
func RunAuthenticate(ctx context.Context, accessToken string, deps AuthenticateDeps) AuthenticateResult {
	claims, err := deps.Tokens.VerifyKind(accessToken, jwt.KindAccess)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureToken, Err: err}
	}

	revoked, err := deps.Sessions.IsRevoked(ctx, accessToken)
	if err != nil {
		return AuthenticateResult{Failure: AuthenticateFailureCache, Err: err, Claims: claims}
	}
	if revoked {
		return AuthenticateResult{Failure: AuthenticateFailureRevoked, Claims: claims}
	}

	if len(claims.Authorities) == 0 {
		return AuthenticateResult{Failure: AuthenticateFailureNoAuthorities, Claims: claims}
	}

	return AuthenticateResult{Claims: claims}
}

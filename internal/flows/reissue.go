package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/boardAuth/jwt"
	"github.com/MrEthical07/boardAuth/member"
	"github.com/MrEthical07/boardAuth/session"
)

// ReissueFailureKind classifies reissue failures for root-level mapping.
type ReissueFailureKind int

const (
	ReissueFailureNone ReissueFailureKind = iota
	// ReissueFailureRefreshToken and ReissueFailureAccessToken carry the
	// codec error verbatim.
	ReissueFailureRefreshToken
	ReissueFailureAccessToken
	ReissueFailureMemberMismatch
	ReissueFailureUnknownMember
	ReissueFailureDirectory
	ReissueFailureRefreshMismatch
	ReissueFailureIssue
	ReissueFailureCache
)

// ReissueResult returns either the rotated pair or a classified failure.
type ReissueResult struct {
	Failure ReissueFailureKind
	Err     error
	Member  *member.Member
	Pair    jwt.Pair
}

// ReissueDeps captures reissue dependencies. With AtomicRotation the compare
// and the overwrite run as one cache operation, so exactly one of several
// concurrent reissues with the same refresh token succeeds.
type ReissueDeps struct {
	Tokens             TokenCodec
	Sessions           SessionCache
	FindByID           func(context.Context, string) (*member.Member, error)
	DefaultAuthorities []string
	AtomicRotation     bool
}

var errNotAccessToken = errors.New("token is not an access token")

// RunReissue rotates a session. The refresh token is verified in full; the
// access token only has to be authentic, so an expired one is accepted.
func RunReissue(ctx context.Context, accessToken, refreshToken string, deps ReissueDeps) ReissueResult {
	refreshClaims, err := deps.Tokens.VerifyKind(refreshToken, jwt.KindRefresh)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureRefreshToken, Err: err}
	}

	accessClaims, err := deps.Tokens.ExtractClaimsIgnoringExpiry(accessToken)
	if err != nil {
		return ReissueResult{Failure: ReissueFailureAccessToken, Err: err}
	}
	if accessClaims.Kind != jwt.KindAccess {
		return ReissueResult{
			Failure: ReissueFailureAccessToken,
			Err:     &jwt.VerifyError{Failure: jwt.FailureMalformed, Err: errNotAccessToken},
		}
	}
	if accessClaims.MemberID == "" || accessClaims.MemberID != refreshClaims.MemberID {
		return ReissueResult{Failure: ReissueFailureMemberMismatch}
	}

	m, err := deps.FindByID(ctx, accessClaims.MemberID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return ReissueResult{Failure: ReissueFailureUnknownMember, Err: err}
		}
		return ReissueResult{Failure: ReissueFailureDirectory, Err: err}
	}
	if !m.Active {
		return ReissueResult{Failure: ReissueFailureUnknownMember, Member: m}
	}

	ttl := deps.Tokens.TTL(jwt.KindRefresh)

	if !deps.AtomicRotation {
		if err := deps.Sessions.CompareRefreshToken(ctx, m.ID, refreshToken); err != nil {
			return refreshStoreFailure(err, m)
		}
	}

	pair, err := deps.Tokens.IssuePair(m.Email, m.ID, authoritiesOrDefault(m, deps.DefaultAuthorities))
	if err != nil {
		return ReissueResult{Failure: ReissueFailureIssue, Err: err, Member: m}
	}

	if deps.AtomicRotation {
		err = deps.Sessions.RotateRefreshToken(ctx, m.ID, refreshToken, pair.Refresh, ttl)
	} else {
		err = deps.Sessions.PutRefreshToken(ctx, m.ID, pair.Refresh, ttl)
	}
	if err != nil {
		return refreshStoreFailure(err, m)
	}

	return ReissueResult{Member: m, Pair: pair}
}

func refreshStoreFailure(err error, m *member.Member) ReissueResult {
	if errors.Is(err, session.ErrRefreshMismatch) {
		return ReissueResult{Failure: ReissueFailureRefreshMismatch, Err: err, Member: m}
	}
	return ReissueResult{Failure: ReissueFailureCache, Err: err, Member: m}
}

package flows

import (
	"context"
	"errors"
	"net/mail"

	"github.com/MrEthical07/boardAuth/member"
)

// SignupFailureKind classifies signup failures.
type SignupFailureKind int

const (
	SignupFailureNone SignupFailureKind = iota
	SignupFailureInvalidEmail
	SignupFailureHash
	SignupFailureDuplicate
	SignupFailureDirectory
)

// SignupResult returns either the created member or a classified failure.
type SignupResult struct {
	Failure SignupFailureKind
	Err     error
	Member  *member.Member
}

// SignupDeps captures account registration dependencies.
type SignupDeps struct {
	FindByEmail        func(context.Context, string) (*member.Member, error)
	CreateMember       func(context.Context, member.NewMember) (*member.Member, error)
	HashPassword       func(string) (string, error)
	DefaultAuthorities []string
}

var errInvalidEmail = errors.New("invalid email address")

// RunSignup registers a member. The pre-check gives the common duplicate
// case a cheap answer; the directory's unique constraint settles races.
func RunSignup(ctx context.Context, email, password string, deps SignupDeps) SignupResult {
	email = member.NormalizeEmail(email)
	if !validEmail(email) {
		return SignupResult{Failure: SignupFailureInvalidEmail, Err: errInvalidEmail}
	}

	if _, err := deps.FindByEmail(ctx, email); err == nil {
		return SignupResult{Failure: SignupFailureDuplicate, Err: member.ErrExists}
	} else if !errors.Is(err, member.ErrNotFound) {
		return SignupResult{Failure: SignupFailureDirectory, Err: err}
	}

	hash, err := deps.HashPassword(password)
	if err != nil {
		return SignupResult{Failure: SignupFailureHash, Err: err}
	}

	authorities := make([]string, len(deps.DefaultAuthorities))
	copy(authorities, deps.DefaultAuthorities)

	m, err := deps.CreateMember(ctx, member.NewMember{
		Email:        email,
		PasswordHash: hash,
		Authorities:  authorities,
	})
	if err != nil {
		if errors.Is(err, member.ErrExists) {
			return SignupResult{Failure: SignupFailureDuplicate, Err: err}
		}
		return SignupResult{Failure: SignupFailureDirectory, Err: err}
	}
	return SignupResult{Member: m}
}

// validEmail accepts a bare addr-spec only; display names are rejected.
func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

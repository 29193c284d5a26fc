package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind distinguishes the two token families.
type Kind string

const (
	// KindAccess tokens are presented on every authenticated request.
	KindAccess Kind = "access"
	// KindRefresh tokens are only exchanged for a new pair.
	KindRefresh Kind = "refresh"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims is the payload carried by both access and refresh tokens. Subject
// holds the member email. Authorities are only populated on access tokens.
type Claims struct {
	MemberID    string   `json:"mid"`
	Authorities []string `json:"auth,omitempty"`
	Kind        Kind     `json:"knd"`
	jwt.RegisteredClaims
}

// Email returns the subject claim.
func (c *Claims) Email() string { return c.Subject }

// Remaining returns how long the token stays valid after now. Tokens
// without an expiry or already past it report zero.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// AcceptedFor returns how long a verifier tolerating leeway past exp keeps
// accepting the token after now.
func (c *Claims) AcceptedFor(now time.Time, leeway time.Duration) time.Duration {
	if leeway < 0 {
		leeway = 0
	}
	return c.Remaining(now.Add(-leeway))
}

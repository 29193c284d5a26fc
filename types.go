package boardAuth

import (
	"context"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/boardAuth/internal/audit"
	"github.com/MrEthical07/boardAuth/member"
)

// Principal is the authenticated caller derived from verified access claims.
type Principal struct {
	MemberID    string    `json:"memberId"`
	Email       string    `json:"email"`
	Authorities []string  `json:"authorities"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// HasAuthority reports whether p carries the named authority.
func (p *Principal) HasAuthority(name string) bool {
	if p == nil {
		return false
	}
	for _, a := range p.Authorities {
		if a == name {
			return true
		}
	}
	return false
}

// TokenPair is returned by Login and Reissue. The expiry fields are
// informational and are not persisted.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Member is a registered account as seen by the engine.
type Member = member.Member

// NewMember carries the fields a registry needs to create an account.
type NewMember = member.NewMember

var (
	// ErrMemberNotFound is returned by a MemberDirectory for unknown members.
	ErrMemberNotFound = member.ErrNotFound
	// ErrMemberExists is returned by a MemberRegistry for duplicate emails.
	ErrMemberExists = member.ErrExists
)

// MemberDirectory resolves members for login and reissue. Lookups for absent
// members must return an error matching ErrMemberNotFound.
type MemberDirectory interface {
	FindByEmail(ctx context.Context, email string) (*Member, error)
	FindByID(ctx context.Context, id string) (*Member, error)
}

// MemberRegistry extends MemberDirectory with account creation for Signup.
// Duplicate emails must return an error matching ErrMemberExists.
type MemberRegistry interface {
	MemberDirectory
	Create(ctx context.Context, nm NewMember) (*Member, error)
}

// PasswordRehasher is optionally implemented by a MemberDirectory. When
// present, logins that verify against an outdated hash store a fresh one.
type PasswordRehasher interface {
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Matches(plaintext, hash string) (bool, error)
}

// PasswordHasher produces stored hashes for new accounts.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// AuditEvent is a session lifecycle event or security alert.
type AuditEvent = internalaudit.Event

// AuditSeverity separates routine events from alerts.
type AuditSeverity = internalaudit.Severity

const (
	AuditSeverityInfo  = internalaudit.SeverityInfo
	AuditSeverityAlert = internalaudit.SeverityAlert
)

// AuditSink receives audit events from the engine's dispatcher goroutine.
// Emit must not block for long; a slow sink causes events to be dropped
// when Audit.DropIfFull is set.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NewJSONWriterSink writes one JSON object per event to w.
func NewJSONWriterSink(w io.Writer) AuditSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink logs events through logger, alerts at Warn level.
func NewSlogSink(logger *slog.Logger) AuditSink {
	return internalaudit.NewSlogSink(logger)
}

// NewChannelSink buffers events on a channel, mostly for tests.
func NewChannelSink(buffer int) *internalaudit.ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

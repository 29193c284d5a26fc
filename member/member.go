// Package member is the member directory consulted at login, reissue and
// signup. It ships a SQL store (SQLite or Postgres) and an in-memory store.
package member

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no member matches the lookup.
	ErrNotFound = errors.New("member not found")
	// ErrExists is returned by Create when the email is already registered.
	ErrExists = errors.New("member already exists")
)

// Member is a registered account. Authorities are role names such as
// ROLE_MEMBER.
type Member struct {
	ID           string
	Email        string
	PasswordHash string
	Authorities  []string
	Active       bool
	CreatedAt    time.Time
}

// NewMember carries the fields needed to register an account.
type NewMember struct {
	Email        string
	PasswordHash string
	Authorities  []string
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func joinAuthorities(authorities []string) string {
	cleaned := make([]string, 0, len(authorities))
	for _, a := range authorities {
		if a = strings.TrimSpace(a); a != "" {
			cleaned = append(cleaned, a)
		}
	}
	return strings.Join(cleaned, ",")
}

func splitAuthorities(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

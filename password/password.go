package password

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultMinLength is the shortest accepted plaintext, in bytes.
	DefaultMinLength = 10
	// DefaultMaxLength caps plaintext size so hashing cost stays bounded.
	DefaultMaxLength = 1024
)

var (
	// ErrTooShort is returned by Hash for passwords under the minimum length.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned by Hash for passwords over the maximum length.
	ErrTooLong = errors.New("password too long")
	// ErrInvalidHash is returned when a stored hash cannot be decoded.
	ErrInvalidHash = errors.New("invalid password hash")
	// ErrUnsupportedHash is returned for hash formats no verifier recognizes.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

func checkLength(plaintext string, min, max int) error {
	switch {
	case len(plaintext) < min:
		return fmt.Errorf("%w: must be at least %d bytes", ErrTooShort, min)
	case len(plaintext) > max:
		return fmt.Errorf("%w: must be at most %d bytes", ErrTooLong, max)
	}
	return nil
}

// Verifier checks plaintext passwords against stored hashes. New hashes are
// argon2id; bcrypt hashes carried over from older member tables still verify.
type Verifier struct {
	argon *Argon2
}

// NewVerifier wraps an argon2id hasher with bcrypt fallback.
func NewVerifier(argon *Argon2) *Verifier {
	return &Verifier{argon: argon}
}

// Hash delegates to the argon2id hasher.
func (v *Verifier) Hash(plaintext string) (string, error) {
	return v.argon.Hash(plaintext)
}

// Matches dispatches on the hash prefix.
func (v *Verifier) Matches(plaintext, encoded string) (bool, error) {
	switch {
	case strings.HasPrefix(encoded, argon2Prefix):
		return v.argon.Matches(plaintext, encoded)
	case isBcrypt(encoded):
		return bcryptMatches(plaintext, encoded)
	default:
		return false, ErrUnsupportedHash
	}
}

// NeedsUpgrade reports true for bcrypt hashes and for argon2id hashes with
// weaker parameters than configured.
func (v *Verifier) NeedsUpgrade(encoded string) (bool, error) {
	if isBcrypt(encoded) {
		return true, nil
	}
	return v.argon.NeedsUpgrade(encoded)
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func bcryptMatches(plaintext, encoded string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
}

package jwt

import (
	"errors"
	"fmt"
)

// Failure classifies why a token was rejected.
type Failure int

const (
	// FailureMalformed covers unparseable tokens, undecodable claims and
	// signature mismatches.
	FailureMalformed Failure = iota + 1
	// FailureExpired is reported only for structurally valid, correctly
	// signed tokens whose expiry has passed.
	FailureExpired
	// FailureUnsupported is reported for well-formed tokens signed with an
	// algorithm other than the configured one.
	FailureUnsupported
)

var (
	// ErrMalformed matches any *VerifyError with FailureMalformed.
	ErrMalformed = errors.New("token malformed")
	// ErrExpired matches any *VerifyError with FailureExpired.
	ErrExpired = errors.New("token expired")
	// ErrUnsupported matches any *VerifyError with FailureUnsupported.
	ErrUnsupported = errors.New("token unsupported")
)

func (f Failure) String() string {
	switch f {
	case FailureMalformed:
		return "malformed"
	case FailureExpired:
		return "expired"
	case FailureUnsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("failure(%d)", int(f))
	}
}

func (f Failure) sentinel() error {
	switch f {
	case FailureExpired:
		return ErrExpired
	case FailureUnsupported:
		return ErrUnsupported
	default:
		return ErrMalformed
	}
}

// VerifyError is returned by every verification entry point of [Manager].
// Callers switch on Failure; Err carries the underlying parser detail.
type VerifyError struct {
	Failure Failure
	Err     error
}

func (e *VerifyError) Error() string {
	if e.Err == nil {
		return e.Failure.sentinel().Error()
	}
	return e.Failure.sentinel().Error() + ": " + e.Err.Error()
}

func (e *VerifyError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Failure.
func (e *VerifyError) Is(target error) bool {
	return target == e.Failure.sentinel()
}

// FailureOf extracts the Failure from err. ok is false when err is not a
// *VerifyError.
func FailureOf(err error) (f Failure, ok bool) {
	var verr *VerifyError
	if errors.As(err, &verr) {
		return verr.Failure, true
	}
	return 0, false
}

func malformed(err error) error   { return &VerifyError{Failure: FailureMalformed, Err: err} }
func expired(err error) error     { return &VerifyError{Failure: FailureExpired, Err: err} }
func unsupported(err error) error { return &VerifyError{Failure: FailureUnsupported, Err: err} }

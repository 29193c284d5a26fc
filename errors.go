package boardAuth

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/boardAuth/internal/rate"
	"github.com/MrEthical07/boardAuth/jwt"
	"github.com/MrEthical07/boardAuth/member"
	"github.com/MrEthical07/boardAuth/password"
	"github.com/MrEthical07/boardAuth/session"
)

// Code is a stable failure code clients branch on. Its string value is the
// wire representation.
type Code string

const (
	CodeMalformed              Code = "MALFORMED"
	CodeExpired                Code = "EXPIRED"
	CodeUnsupported            Code = "UNSUPPORTED"
	CodeInvalidTokenUser       Code = "INVALID_TOKEN_USER"
	CodeInvalidAuthentication  Code = "INVALID_AUTHENTICATION"
	CodeInvalidCredentials     Code = "INVALID_CREDENTIALS"
	CodeEmailAlreadyRegistered Code = "EMAIL_ALREADY_REGISTERED"
	CodeNoAuthorities          Code = "NO_AUTHORITIES"
	CodeLoginRateLimited       Code = "LOGIN_RATE_LIMITED"
	CodeInvalidRequest         Code = "INVALID_REQUEST"
	CodeCacheUnavailable       Code = "CACHE_UNAVAILABLE"
	CodeInternal               Code = "INTERNAL"
)

var codeStatus = map[Code]int{
	CodeMalformed:              http.StatusUnauthorized,
	CodeExpired:                http.StatusUnauthorized,
	CodeUnsupported:            http.StatusUnauthorized,
	CodeInvalidTokenUser:       http.StatusUnauthorized,
	CodeInvalidAuthentication:  http.StatusUnauthorized,
	CodeInvalidCredentials:     http.StatusUnauthorized,
	CodeEmailAlreadyRegistered: http.StatusConflict,
	CodeNoAuthorities:          http.StatusForbidden,
	CodeLoginRateLimited:       http.StatusTooManyRequests,
	CodeInvalidRequest:         http.StatusBadRequest,
	CodeCacheUnavailable:       http.StatusServiceUnavailable,
	CodeInternal:               http.StatusInternalServerError,
}

var codeMessage = map[Code]string{
	CodeMalformed:              "token is malformed or no longer valid",
	CodeExpired:                "token has expired",
	CodeUnsupported:            "token algorithm is not supported",
	CodeInvalidTokenUser:       "token does not belong to an active member",
	CodeInvalidAuthentication:  "refresh token is not valid for this session",
	CodeInvalidCredentials:     "invalid email or password",
	CodeEmailAlreadyRegistered: "email is already registered",
	CodeNoAuthorities:          "token carries no authorities",
	CodeLoginRateLimited:       "too many failed login attempts",
	CodeInvalidRequest:         "invalid request",
	CodeCacheUnavailable:       "session cache unavailable, retry later",
	CodeInternal:               "internal error",
}

// HTTPStatus returns the status code a transport should answer with.
// Unknown codes map to 500.
func (c Code) HTTPStatus() int {
	if status, ok := codeStatus[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Message returns a client-safe description of the code.
func (c Code) Message() string {
	if msg, ok := codeMessage[c]; ok {
		return msg
	}
	return codeMessage[CodeInternal]
}

// Retryable reports whether a client may retry. EXPIRED is retried through
// reissue, CACHE_UNAVAILABLE by repeating the same request.
func (c Code) Retryable() bool {
	return c == CodeExpired || c == CodeCacheUnavailable
}

// IsAuthFailure reports whether c belongs to the authentication taxonomy
// rather than to request validation or infrastructure.
func (c Code) IsAuthFailure() bool {
	switch c {
	case CodeMalformed, CodeExpired, CodeUnsupported, CodeInvalidTokenUser,
		CodeInvalidAuthentication, CodeInvalidCredentials, CodeEmailAlreadyRegistered,
		CodeNoAuthorities, CodeLoginRateLimited:
		return true
	}
	return false
}

// Error is the error type returned by Engine operations.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Code.Message()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so the package sentinels
// work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

var (
	ErrMalformed              = &Error{Code: CodeMalformed}
	ErrExpired                = &Error{Code: CodeExpired}
	ErrUnsupported            = &Error{Code: CodeUnsupported}
	ErrInvalidTokenUser       = &Error{Code: CodeInvalidTokenUser}
	ErrInvalidAuthentication  = &Error{Code: CodeInvalidAuthentication}
	ErrInvalidCredentials     = &Error{Code: CodeInvalidCredentials}
	ErrEmailAlreadyRegistered = &Error{Code: CodeEmailAlreadyRegistered}
	ErrNoAuthorities          = &Error{Code: CodeNoAuthorities}
	ErrLoginRateLimited       = &Error{Code: CodeLoginRateLimited}
	ErrInvalidRequest         = &Error{Code: CodeInvalidRequest}
	ErrCacheUnavailable       = &Error{Code: CodeCacheUnavailable}
	ErrInternal               = &Error{Code: CodeInternal}

	// ErrEngineNotReady is returned by operations on a zero Engine.
	ErrEngineNotReady = &Error{Code: CodeInternal, Err: errors.New("engine not initialized")}
)

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Classify converts any error into a taxonomy code. It is the single place
// where package-level failures (codec, cache, directory, password policy)
// become client-facing codes. nil classifies as "".
func Classify(err error) Code {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	if f, ok := jwt.FailureOf(err); ok {
		switch f {
		case jwt.FailureExpired:
			return CodeExpired
		case jwt.FailureUnsupported:
			return CodeUnsupported
		default:
			return CodeMalformed
		}
	}

	switch {
	case errors.Is(err, session.ErrCacheUnavailable),
		errors.Is(err, rate.ErrRedisUnavailable):
		return CodeCacheUnavailable
	case errors.Is(err, session.ErrRefreshMismatch):
		return CodeInvalidAuthentication
	case errors.Is(err, rate.ErrRateLimited):
		return CodeLoginRateLimited
	case errors.Is(err, member.ErrExists):
		return CodeEmailAlreadyRegistered
	case errors.Is(err, member.ErrNotFound):
		return CodeInvalidTokenUser
	case errors.Is(err, password.ErrTooShort),
		errors.Is(err, password.ErrTooLong):
		return CodeInvalidRequest
	}
	return CodeInternal
}

// HTTPStatus is shorthand for Classify(err).HTTPStatus(). nil maps to 200.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Classify(err).HTTPStatus()
}

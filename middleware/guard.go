package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	boardAuth "github.com/MrEthical07/boardAuth"
	"github.com/MrEthical07/boardAuth/internal/envelope"
)

// Authenticator is the part of [boardAuth.Engine] the guard needs.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*boardAuth.Principal, error)
}

var errMissingBearer = &boardAuth.Error{Code: boardAuth.CodeMalformed}

// Guard authenticates the bearer token on every request and stores the
// resulting principal on the request context. Failures are written as the
// JSON envelope with the classified status.
func Guard(auth Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth == nil {
				envelope.Error(w, r, logger, boardAuth.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				envelope.Error(w, r, logger, errMissingBearer)
				return
			}

			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				envelope.Error(w, r, logger, err)
				return
			}

			ctx := boardAuth.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the credential from an Authorization header value.
// The scheme match is case-insensitive.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

// ClientIP stores the remote address host on the request context so login
// throttling and audit events can see it.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(boardAuth.WithClientIP(r.Context(), ip)))
	})
}

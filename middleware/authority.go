package middleware

import (
	"log/slog"
	"net/http"

	boardAuth "github.com/MrEthical07/boardAuth"
	"github.com/MrEthical07/boardAuth/internal/envelope"
)

// RequireAuthority rejects requests whose principal lacks authority with
// 403 NO_AUTHORITIES. It must run inside [Guard].
func RequireAuthority(authority string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := boardAuth.PrincipalFromContext(r.Context())
			if !ok {
				envelope.Error(w, r, logger, errMissingBearer)
				return
			}
			if !p.HasAuthority(authority) {
				envelope.Error(w, r, logger, boardAuth.ErrNoAuthorities)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package httpapi

import (
	"net/http"

	"github.com/MrEthical07/boardAuth/middleware"
)

// Routes registers the auth endpoints on mux. metrics may be nil, in which
// case /metrics is not mounted.
func (h *Handler) Routes(mux *http.ServeMux, metrics http.Handler) {
	auth := middleware.Guard(h.svc, h.logger)

	mux.HandleFunc("POST /auth/signup", h.Signup)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/token/reissue", h.Reissue)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.Handle("GET /auth/me", auth(http.HandlerFunc(h.Me)))
	mux.HandleFunc("GET /healthz", h.Health)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

// NewMux returns a ServeMux with every route registered and ClientIP applied.
func (h *Handler) NewMux(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	h.Routes(mux, metrics)
	return middleware.ClientIP(mux)
}

// Package httpapi serves the auth endpoints over net/http.
//
// Handlers stay thin: decode the body, call the engine, render the envelope.
// All decisions live in the engine.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	boardAuth "github.com/MrEthical07/boardAuth"
	"github.com/MrEthical07/boardAuth/internal/envelope"
	"github.com/MrEthical07/boardAuth/middleware"
)

const maxBodyBytes = 1 << 16

// Service is the engine surface the handlers call.
type Service interface {
	Signup(ctx context.Context, email, password string) (*boardAuth.Member, error)
	Login(ctx context.Context, email, password string) (boardAuth.TokenPair, error)
	Authenticate(ctx context.Context, accessToken string) (*boardAuth.Principal, error)
	Reissue(ctx context.Context, accessToken, refreshToken string) (boardAuth.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	Ping(ctx context.Context) error
}

// Handler holds the auth endpoints.
type Handler struct {
	svc    Service
	logger *slog.Logger
}

// New returns a Handler. A nil logger falls back to slog.Default.
func New(svc Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type reissueRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type signupResponse struct {
	MemberID string `json:"memberId"`
	Email    string `json:"email"`
}

var errBadBody = &boardAuth.Error{Code: boardAuth.CodeInvalidRequest, Err: errors.New("request body is not valid JSON")}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	m, err := h.svc.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		envelope.Error(w, r, h.logger, err)
		return
	}

	envelope.OK(w, signupResponse{MemberID: m.ID, Email: m.Email})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		envelope.Error(w, r, h.logger, err)
		return
	}

	envelope.OK(w, pair)
}

// Reissue handles POST /auth/token/reissue.
func (h *Handler) Reissue(w http.ResponseWriter, r *http.Request) {
	var req reissueRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.svc.Reissue(r.Context(), req.AccessToken, req.RefreshToken)
	if err != nil {
		envelope.Error(w, r, h.logger, err)
		return
	}

	envelope.OK(w, pair)
}

// Logout handles POST /auth/logout. The access token comes from the
// Authorization header.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		envelope.Error(w, r, h.logger, boardAuth.ErrMalformed)
		return
	}

	if err := h.svc.Logout(r.Context(), token); err != nil {
		envelope.Error(w, r, h.logger, err)
		return
	}

	envelope.OK(w, nil)
}

// Me handles GET /auth/me. It must be mounted behind middleware.Guard.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := boardAuth.PrincipalFromContext(r.Context())
	if !ok {
		envelope.Error(w, r, h.logger, boardAuth.ErrMalformed)
		return
	}
	envelope.OK(w, p)
}

// Health handles GET /healthz by pinging the session cache.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		envelope.Error(w, r, h.logger, err)
		return
	}
	envelope.OK(w, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		envelope.Error(w, r, h.logger, errBadBody)
		return false
	}
	return true
}

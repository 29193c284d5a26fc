package boardAuth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrEthical07/boardAuth/clock"
	internalaudit "github.com/MrEthical07/boardAuth/internal/audit"
	"github.com/MrEthical07/boardAuth/internal/flows"
	"github.com/MrEthical07/boardAuth/internal/rate"
	"github.com/MrEthical07/boardAuth/jwt"
	"github.com/MrEthical07/boardAuth/member"
	"github.com/MrEthical07/boardAuth/session"
)

type upgradeChecker interface {
	NeedsUpgrade(hash string) (bool, error)
}

// Engine runs the token session lifecycle: login, authenticate, reissue,
// logout and signup. Build one with New().…Build(); it is safe for
// concurrent use.
//
// Engine instances are intended to be configured during initialization and then treated as immutable.
type Engine struct {
	config       Config
	logger       *slog.Logger
	clock        clock.Clock
	jwtManager   *jwt.Manager
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	directory    MemberDirectory
	registry     MemberRegistry
	rehasher     PasswordRehasher
	upgradeCheck upgradeChecker
	verifier     PasswordVerifier
	hasher       PasswordHasher
	dummyHash    string
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	flow         flows.Service
}

// Close stops the audit dispatcher after draining queued events. The Redis
// client and member directory belong to the caller and stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events never reached the dispatcher
// buffer.
//
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditAlertsDropped reports the alert-severity subset of AuditDropped.
func (e *Engine) AuditAlertsDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.DroppedAlerts()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
//
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID]HistogramSnapshot{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login exchanges email and password for a token pair. Unknown emails,
// wrong passwords and disabled accounts all return ErrInvalidCredentials.
//
// Login may return an error when credentials are rejected, the throttle is engaged or the session cache fails.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, email, password string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.flow.Login(ctx, email, password)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureRateLimited:
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, AuditSeverityAlert, false, "", email, ErrLoginRateLimited, nil)
		return TokenPair{}, ErrLoginRateLimited
	case flows.LoginFailureInvalidCredentials:
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, AuditSeverityInfo, false, memberID(res.Member), email, ErrInvalidCredentials, reasonMeta(res.Reason))
		return TokenPair{}, ErrInvalidCredentials
	case flows.LoginFailureCache:
		e.metricInc(MetricLoginFailure)
		return TokenPair{}, e.cacheFailure(ctx, "login", res.Err)
	default:
		e.metricInc(MetricLoginFailure)
		e.logger.Error("boardAuth: login failed", "error", res.Err)
		e.emitAudit(ctx, auditEventLoginFailure, AuditSeverityInfo, false, memberID(res.Member), email, ErrInternal, nil)
		return TokenPair{}, newError(CodeInternal, res.Err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, AuditSeverityInfo, true, res.Member.ID, res.Member.Email, nil, nil)
	return tokenPair(res.Pair), nil
}

// Authenticate validates an access token on a protected request and returns
// the caller. Revoked tokens fail with ErrMalformed; tokens without
// authorities fail with ErrNoAuthorities. Codec failures keep their code.
//
// Authenticate may return an error when the token is rejected or the session cache fails.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := e.clock.Now()
		defer func() {
			e.metrics.Observe(MetricAuthenticateLatency, e.clock.Now().Sub(start))
		}()
	}

	res := e.flow.Authenticate(ctx, accessToken)
	switch res.Failure {
	case flows.AuthenticateFailureNone:
	case flows.AuthenticateFailureToken:
		e.metricInc(MetricAuthenticateFailure)
		return nil, tokenError(res.Err)
	case flows.AuthenticateFailureRevoked:
		e.metricInc(MetricAuthenticateFailure)
		e.metricInc(MetricRevokedTokenRejected)
		e.emitAudit(ctx, auditEventRevokedTokenUsed, AuditSeverityAlert, false, res.Claims.MemberID, res.Claims.Email(), ErrMalformed, nil)
		return nil, newError(CodeMalformed, errTokenRevoked)
	case flows.AuthenticateFailureNoAuthorities:
		e.metricInc(MetricAuthenticateFailure)
		return nil, ErrNoAuthorities
	case flows.AuthenticateFailureCache:
		e.metricInc(MetricAuthenticateFailure)
		return nil, e.cacheFailure(ctx, "authenticate", res.Err)
	default:
		e.metricInc(MetricAuthenticateFailure)
		return nil, newError(CodeInternal, res.Err)
	}

	e.metricInc(MetricAuthenticateSuccess)
	return principalFromClaims(res.Claims), nil
}

// Reissue rotates a session. refreshToken must be fully valid; accessToken
// must be authentic and name the same member but may be expired. The old
// refresh token stops working once the new pair is returned.
//
// Reissue may return an error when either token is rejected, the member is gone, the refresh token is stale, or the session cache fails.
// Reissue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Reissue(ctx context.Context, accessToken, refreshToken string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	res := e.flow.Reissue(ctx, accessToken, refreshToken)
	switch res.Failure {
	case flows.ReissueFailureNone:
	case flows.ReissueFailureRefreshToken, flows.ReissueFailureAccessToken:
		e.metricInc(MetricReissueFailure)
		err := tokenError(res.Err)
		e.emitAudit(ctx, auditEventReissueFailure, AuditSeverityInfo, false, "", "", err, nil)
		return TokenPair{}, err
	case flows.ReissueFailureMemberMismatch:
		e.metricInc(MetricReissueFailure)
		e.emitAudit(ctx, auditEventReissueFailure, AuditSeverityAlert, false, "", "", ErrInvalidAuthentication, reasonMeta("member_mismatch"))
		return TokenPair{}, newError(CodeInvalidAuthentication, errMemberMismatch)
	case flows.ReissueFailureUnknownMember:
		e.metricInc(MetricReissueFailure)
		e.emitAudit(ctx, auditEventReissueFailure, AuditSeverityInfo, false, memberID(res.Member), "", ErrInvalidTokenUser, nil)
		return TokenPair{}, newError(CodeInvalidTokenUser, res.Err)
	case flows.ReissueFailureRefreshMismatch:
		e.metricInc(MetricReissueFailure)
		e.metricInc(MetricRefreshMismatch)
		e.emitAudit(ctx, auditEventRefreshMismatch, AuditSeverityAlert, false, memberID(res.Member), "", ErrInvalidAuthentication, nil)
		return TokenPair{}, newError(CodeInvalidAuthentication, res.Err)
	case flows.ReissueFailureCache:
		e.metricInc(MetricReissueFailure)
		return TokenPair{}, e.cacheFailure(ctx, "reissue", res.Err)
	default:
		e.metricInc(MetricReissueFailure)
		e.logger.Error("boardAuth: reissue failed", "error", res.Err)
		return TokenPair{}, newError(CodeInternal, res.Err)
	}

	e.metricInc(MetricReissueSuccess)
	e.emitAudit(ctx, auditEventReissueSuccess, AuditSeverityInfo, true, res.Member.ID, res.Member.Email, nil, nil)
	return tokenPair(res.Pair), nil
}

// Logout ends the session of a still-valid access token: the member's
// refresh token is deleted and the access token is revoked until it would
// have expired anyway.
//
// Logout may return an error when the token is rejected or the session cache fails.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	res := e.flow.Logout(ctx, accessToken)
	switch res.Failure {
	case flows.LogoutFailureNone:
	case flows.LogoutFailureToken:
		return tokenError(res.Err)
	case flows.LogoutFailureCache:
		return e.cacheFailure(ctx, "logout", res.Err)
	default:
		return newError(CodeInternal, res.Err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, AuditSeverityInfo, true, res.Claims.MemberID, res.Claims.Email(), nil, func() map[string]string {
		return map[string]string{"revoked_for": res.RevokedFor.String()}
	})
	return nil
}

// Signup registers a new member with the default authorities. It needs a
// directory that implements MemberRegistry.
//
// Signup may return an error when the email is invalid or taken, the password violates policy, or the registry fails.
// Signup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Signup(ctx context.Context, email, password string) (*Member, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.registry == nil {
		return nil, newError(CodeInternal, errors.New("member directory does not support signup"))
	}

	res := e.flow.Signup(ctx, email, password)
	switch res.Failure {
	case flows.SignupFailureNone:
	case flows.SignupFailureInvalidEmail:
		return nil, newError(CodeInvalidRequest, res.Err)
	case flows.SignupFailureDuplicate:
		e.metricInc(MetricSignupDuplicate)
		e.emitAudit(ctx, auditEventSignupDuplicate, AuditSeverityInfo, false, "", member.NormalizeEmail(email), ErrEmailAlreadyRegistered, nil)
		return nil, newError(CodeEmailAlreadyRegistered, res.Err)
	case flows.SignupFailureHash:
		if Classify(res.Err) == CodeInvalidRequest {
			return nil, newError(CodeInvalidRequest, res.Err)
		}
		return nil, newError(CodeInternal, res.Err)
	default:
		e.logger.Error("boardAuth: signup failed", "error", res.Err)
		return nil, newError(CodeInternal, res.Err)
	}

	e.metricInc(MetricSignupSuccess)
	e.emitAudit(ctx, auditEventSignupSuccess, AuditSeverityInfo, true, res.Member.ID, res.Member.Email, nil, nil)
	return res.Member, nil
}

// Ping checks the session cache, for health endpoints.
func (e *Engine) Ping(ctx context.Context) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if _, err := e.sessionStore.Ping(ctx); err != nil {
		return newError(CodeCacheUnavailable, err)
	}
	return nil
}

func (e *Engine) ready() bool {
	return e != nil && e.flow.Initialized()
}

// cacheFailure reports an unreachable session cache. Every occurrence is an
// alert because revocation checks cannot run while it lasts.
func (e *Engine) cacheFailure(ctx context.Context, op string, err error) error {
	e.metricInc(MetricCacheUnavailable)
	e.logger.Warn("boardAuth: session cache unavailable", "op", op, "error", err)
	e.emitAudit(ctx, auditEventCacheUnavailable, AuditSeverityAlert, false, "", "", ErrCacheUnavailable, func() map[string]string {
		return map[string]string{"op": op}
	})
	if errors.Is(err, session.ErrCacheUnavailable) || errors.Is(err, rate.ErrRedisUnavailable) {
		return newError(CodeCacheUnavailable, err)
	}
	return newError(CodeCacheUnavailable, errors.Join(session.ErrCacheUnavailable, err))
}

var (
	errTokenRevoked   = errors.New("token has been revoked")
	errMemberMismatch = errors.New("access and refresh tokens belong to different members")
)

func tokenError(err error) error {
	if f, ok := jwt.FailureOf(err); ok {
		switch f {
		case jwt.FailureExpired:
			return newError(CodeExpired, err)
		case jwt.FailureUnsupported:
			return newError(CodeUnsupported, err)
		}
	}
	return newError(CodeMalformed, err)
}

func tokenPair(p jwt.Pair) TokenPair {
	out := TokenPair{AccessToken: p.Access, RefreshToken: p.Refresh}
	if p.AccessClaims != nil && p.AccessClaims.ExpiresAt != nil {
		out.AccessExpiresAt = p.AccessClaims.ExpiresAt.Time
	}
	if p.RefreshClaims != nil && p.RefreshClaims.ExpiresAt != nil {
		out.RefreshExpiresAt = p.RefreshClaims.ExpiresAt.Time
	}
	return out
}

func principalFromClaims(c *jwt.Claims) *Principal {
	p := &Principal{
		MemberID:    c.MemberID,
		Email:       c.Email(),
		Authorities: append([]string(nil), c.Authorities...),
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p
}

func memberID(m *Member) string {
	if m == nil {
		return ""
	}
	return m.ID
}

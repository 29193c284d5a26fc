package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authenticate.Tokens != nil && s.deps.Authenticate.Sessions != nil
}

func (s Service) Login(ctx context.Context, email, password string) LoginResult {
	return RunLogin(ctx, email, password, s.deps.Login)
}

func (s Service) Authenticate(ctx context.Context, accessToken string) AuthenticateResult {
	return RunAuthenticate(ctx, accessToken, s.deps.Authenticate)
}

func (s Service) Reissue(ctx context.Context, accessToken, refreshToken string) ReissueResult {
	return RunReissue(ctx, accessToken, refreshToken, s.deps.Reissue)
}

func (s Service) Logout(ctx context.Context, accessToken string) LogoutResult {
	return RunLogout(ctx, accessToken, s.deps.Logout)
}

func (s Service) Signup(ctx context.Context, email, password string) SignupResult {
	return RunSignup(ctx, email, password, s.deps.Signup)
}

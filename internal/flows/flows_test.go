package flows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/boardAuth/clock"
	"github.com/MrEthical07/boardAuth/internal/rate"
	"github.com/MrEthical07/boardAuth/jwt"
	"github.com/MrEthical07/boardAuth/member"
	"github.com/MrEthical07/boardAuth/session"
)

var flowStart = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fakeCache struct {
	mu       sync.Mutex
	refresh  map[string]string
	revoked  map[string]time.Duration
	fail     error
	rotated  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{refresh: map[string]string{}, revoked: map[string]time.Duration{}}
}

func (c *fakeCache) PutRefreshToken(_ context.Context, memberID, token string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.refresh[memberID] = token
	return nil
}

func (c *fakeCache) CompareRefreshToken(_ context.Context, memberID, provided string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	if c.refresh[memberID] != provided || provided == "" {
		return session.ErrRefreshMismatch
	}
	return nil
}

func (c *fakeCache) RotateRefreshToken(_ context.Context, memberID, provided, next string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotated++
	if c.fail != nil {
		return c.fail
	}
	if c.refresh[memberID] != provided {
		return session.ErrRefreshMismatch
	}
	c.refresh[memberID] = next
	return nil
}

func (c *fakeCache) DeleteRefreshToken(_ context.Context, memberID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	delete(c.refresh, memberID)
	return nil
}

func (c *fakeCache) RevokeAccessToken(_ context.Context, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	if ttl > 0 {
		c.revoked[token] = ttl
	}
	return nil
}

func (c *fakeCache) IsRevoked(_ context.Context, token string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return false, c.fail
	}
	_, ok := c.revoked[token]
	return ok, nil
}

type plainVerifier struct{}

func (plainVerifier) Matches(plaintext, hash string) (bool, error) {
	return hash == "plain:"+plaintext, nil
}

type fixture struct {
	clock   *clock.Manual
	tokens  *jwt.Manager
	cache   *fakeCache
	members *member.MemoryStore
	alice   *member.Member
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewManual(flowStart)
	tokens, err := jwt.NewManager(jwt.Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Clock:      clk,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	members := member.NewMemoryStore()
	alice, err := members.Create(context.Background(), member.NewMember{
		Email:        "alice@example.com",
		PasswordHash: "plain:correct horse",
		Authorities:  []string{"ROLE_MEMBER"},
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return &fixture{clock: clk, tokens: tokens, cache: newFakeCache(), members: members, alice: alice}
}

func (f *fixture) loginDeps() LoginDeps {
	return LoginDeps{
		Tokens:             f.tokens,
		Sessions:           f.cache,
		FindByEmail:        f.members.FindByEmail,
		VerifyPassword:     plainVerifier{}.Matches,
		DummyHash:          "plain:dummy",
		DefaultAuthorities: []string{"ROLE_MEMBER"},
	}
}

func (f *fixture) reissueDeps() ReissueDeps {
	return ReissueDeps{
		Tokens:             f.tokens,
		Sessions:           f.cache,
		FindByID:           f.members.FindByID,
		DefaultAuthorities: []string{"ROLE_MEMBER"},
	}
}

func (f *fixture) login(t *testing.T) jwt.Pair {
	t.Helper()
	res := RunLogin(context.Background(), "alice@example.com", "correct horse", f.loginDeps())
	if res.Failure != LoginFailureNone {
		t.Fatalf("login failed: kind=%d err=%v", res.Failure, res.Err)
	}
	return res.Pair
}

func TestLoginStoresRefreshToken(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)

	if got := f.cache.refresh[f.alice.ID]; got != pair.Refresh {
		t.Fatal("expected refresh token stored under member id")
	}
	if pair.AccessClaims.MemberID != f.alice.ID || pair.AccessClaims.Email() != "alice@example.com" {
		t.Fatalf("unexpected access claims %+v", pair.AccessClaims)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive, _ := f.members.Create(ctx, member.NewMember{Email: "off@example.com", PasswordHash: "plain:pw"})
	_ = f.members.SetActive(ctx, inactive.ID, false)

	cases := map[string][2]string{
		"wrong password": {"alice@example.com", "wrong"},
		"unknown email":  {"nobody@example.com", "correct horse"},
		"inactive":       {"off@example.com", "pw"},
		"empty password": {"alice@example.com", ""},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			res := RunLogin(ctx, c[0], c[1], f.loginDeps())
			if res.Failure != LoginFailureInvalidCredentials {
				t.Fatalf("expected invalid credentials, got %d", res.Failure)
			}
			if res.Err != nil {
				t.Fatalf("invalid credential failures carry no detail, got %v", res.Err)
			}
		})
	}
}

func TestLoginUnknownEmailRunsDummyVerify(t *testing.T) {
	f := newFixture(t)
	deps := f.loginDeps()
	var hashes []string
	deps.VerifyPassword = func(plaintext, hash string) (bool, error) {
		hashes = append(hashes, hash)
		return false, nil
	}
	RunLogin(context.Background(), "nobody@example.com", "pw", deps)
	if len(hashes) != 1 || hashes[0] != "plain:dummy" {
		t.Fatalf("expected one dummy verification, got %v", hashes)
	}
}

func TestLoginCacheFailure(t *testing.T) {
	f := newFixture(t)
	f.cache.fail = fmt.Errorf("%w: dial tcp", session.ErrCacheUnavailable)
	res := RunLogin(context.Background(), "alice@example.com", "correct horse", f.loginDeps())
	if res.Failure != LoginFailureCache || !errors.Is(res.Err, session.ErrCacheUnavailable) {
		t.Fatalf("expected cache failure, got %d %v", res.Failure, res.Err)
	}
}

func TestLoginDirectoryFailure(t *testing.T) {
	f := newFixture(t)
	deps := f.loginDeps()
	boom := errors.New("connection refused")
	deps.FindByEmail = func(context.Context, string) (*member.Member, error) { return nil, boom }
	res := RunLogin(context.Background(), "alice@example.com", "correct horse", deps)
	if res.Failure != LoginFailureDirectory || !errors.Is(res.Err, boom) {
		t.Fatalf("expected directory failure, got %d %v", res.Failure, res.Err)
	}
}

func TestLoginThrottleHooks(t *testing.T) {
	f := newFixture(t)
	deps := f.loginDeps()
	var increments, resets int
	deps.CheckLoginRate = func(context.Context, string, string) error { return nil }
	deps.IncrementLoginRate = func(context.Context, string, string) error { increments++; return nil }
	deps.ResetLoginRate = func(context.Context, string) error { resets++; return nil }

	RunLogin(context.Background(), "alice@example.com", "wrong", deps)
	RunLogin(context.Background(), "alice@example.com", "correct horse", deps)
	if increments != 1 || resets != 1 {
		t.Fatalf("expected 1 increment and 1 reset, got %d and %d", increments, resets)
	}

	deps.CheckLoginRate = func(context.Context, string, string) error { return rate.ErrRateLimited }
	res := RunLogin(context.Background(), "alice@example.com", "correct horse", deps)
	if res.Failure != LoginFailureRateLimited {
		t.Fatalf("expected rate limited, got %d", res.Failure)
	}

	deps.CheckLoginRate = func(context.Context, string, string) error { return rate.ErrRedisUnavailable }
	res = RunLogin(context.Background(), "alice@example.com", "correct horse", deps)
	if res.Failure != LoginFailureNone {
		t.Fatalf("throttle outage should not block login, got %d", res.Failure)
	}
}

func TestLoginUpgradesPasswordHash(t *testing.T) {
	f := newFixture(t)
	deps := f.loginDeps()
	deps.VerifyPassword = func(plaintext, hash string) (bool, error) {
		return hash == "plain:"+plaintext || hash == "strong:"+plaintext, nil
	}
	deps.PasswordNeedsUpgrade = func(hash string) (bool, error) { return hash[:6] == "plain:", nil }
	deps.HashPassword = func(p string) (string, error) { return "strong:" + p, nil }
	deps.UpdatePasswordHash = f.members.UpdatePasswordHash

	res := RunLogin(context.Background(), "alice@example.com", "correct horse", deps)
	if res.Failure != LoginFailureNone {
		t.Fatalf("login failed: %d", res.Failure)
	}
	got, _ := f.members.FindByID(context.Background(), f.alice.ID)
	if got.PasswordHash != "strong:correct horse" {
		t.Fatalf("expected upgraded hash, got %q", got.PasswordHash)
	}
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	deps := AuthenticateDeps{Tokens: f.tokens, Sessions: f.cache}

	res := RunAuthenticate(context.Background(), pair.Access, deps)
	if res.Failure != AuthenticateFailureNone || res.Claims.MemberID != f.alice.ID {
		t.Fatalf("expected success, got %d %v", res.Failure, res.Err)
	}

	res = RunAuthenticate(context.Background(), pair.Refresh, deps)
	if res.Failure != AuthenticateFailureToken || !errors.Is(res.Err, jwt.ErrMalformed) {
		t.Fatalf("refresh token used as access should be malformed, got %d %v", res.Failure, res.Err)
	}

	f.cache.revoked[pair.Access] = time.Minute
	res = RunAuthenticate(context.Background(), pair.Access, deps)
	if res.Failure != AuthenticateFailureRevoked {
		t.Fatalf("expected revoked, got %d", res.Failure)
	}

	f.clock.Advance(16 * time.Minute)
	res = RunAuthenticate(context.Background(), pair.Access, deps)
	if res.Failure != AuthenticateFailureToken || !errors.Is(res.Err, jwt.ErrExpired) {
		t.Fatalf("expected expired, got %d %v", res.Failure, res.Err)
	}
}

func TestAuthenticateNoAuthorities(t *testing.T) {
	f := newFixture(t)
	token, _, err := f.tokens.Issue("alice@example.com", f.alice.ID, nil, jwt.KindAccess)
	if err != nil {
		t.Fatal(err)
	}
	res := RunAuthenticate(context.Background(), token, AuthenticateDeps{Tokens: f.tokens, Sessions: f.cache})
	if res.Failure != AuthenticateFailureNoAuthorities {
		t.Fatalf("expected no authorities, got %d", res.Failure)
	}
}

func TestAuthenticateCacheFailure(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	f.cache.fail = session.ErrCacheUnavailable
	res := RunAuthenticate(context.Background(), pair.Access, AuthenticateDeps{Tokens: f.tokens, Sessions: f.cache})
	if res.Failure != AuthenticateFailureCache {
		t.Fatalf("expected cache failure, got %d", res.Failure)
	}
}

func TestReissueRotatesRefreshToken(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			f := newFixture(t)
			pair := f.login(t)
			deps := f.reissueDeps()
			deps.AtomicRotation = atomic

			f.clock.Advance(20 * time.Minute)
			res := RunReissue(context.Background(), pair.Access, pair.Refresh, deps)
			if res.Failure != ReissueFailureNone {
				t.Fatalf("reissue failed: %d %v", res.Failure, res.Err)
			}
			if res.Pair.Refresh == pair.Refresh {
				t.Fatal("expected a new refresh token")
			}
			if err := f.cache.CompareRefreshToken(context.Background(), f.alice.ID, pair.Refresh); !errors.Is(err, session.ErrRefreshMismatch) {
				t.Fatal("old refresh token must no longer match")
			}
			if err := f.cache.CompareRefreshToken(context.Background(), f.alice.ID, res.Pair.Refresh); err != nil {
				t.Fatalf("new refresh token must match: %v", err)
			}
			if atomic && f.cache.rotated != 1 {
				t.Fatal("expected atomic rotation path")
			}
		})
	}
}

func TestReissueAcceptsUnexpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	res := RunReissue(context.Background(), pair.Access, pair.Refresh, f.reissueDeps())
	if res.Failure != ReissueFailureNone {
		t.Fatalf("reissue with live access token failed: %d %v", res.Failure, res.Err)
	}
}

func TestReissueFailures(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	ctx := context.Background()

	bob, _ := f.members.Create(ctx, member.NewMember{Email: "bob@example.com", PasswordHash: "plain:pw"})
	bobPair, err := f.tokens.IssuePair(bob.Email, bob.ID, []string{"ROLE_MEMBER"})
	if err != nil {
		t.Fatal(err)
	}
	staleRefresh, _, err := f.tokens.Issue(f.alice.Email, f.alice.ID, nil, jwt.KindRefresh)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		access  string
		refresh string
		want    ReissueFailureKind
	}{
		{"garbage refresh", pair.Access, "garbage", ReissueFailureRefreshToken},
		{"access as refresh", pair.Access, pair.Access, ReissueFailureRefreshToken},
		{"garbage access", "garbage", pair.Refresh, ReissueFailureAccessToken},
		{"refresh as access", pair.Refresh, pair.Refresh, ReissueFailureAccessToken},
		{"other member", bobPair.Access, pair.Refresh, ReissueFailureMemberMismatch},
		{"stale refresh", pair.Access, staleRefresh, ReissueFailureRefreshMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := RunReissue(ctx, tc.access, tc.refresh, f.reissueDeps())
			if res.Failure != tc.want {
				t.Fatalf("expected failure %d, got %d (%v)", tc.want, res.Failure, res.Err)
			}
		})
	}
}

func TestReissueExpiredRefreshToken(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	f.clock.Advance(25 * time.Hour)
	res := RunReissue(context.Background(), pair.Access, pair.Refresh, f.reissueDeps())
	if res.Failure != ReissueFailureRefreshToken || !errors.Is(res.Err, jwt.ErrExpired) {
		t.Fatalf("expected expired refresh, got %d %v", res.Failure, res.Err)
	}
}

func TestReissueUnknownOrInactiveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pair := f.login(t)
	_ = f.members.SetActive(ctx, f.alice.ID, false)
	if res := RunReissue(ctx, pair.Access, pair.Refresh, f.reissueDeps()); res.Failure != ReissueFailureUnknownMember {
		t.Fatalf("inactive member: expected unknown member, got %d", res.Failure)
	}

	_ = f.members.Delete(ctx, f.alice.ID)
	if res := RunReissue(ctx, pair.Access, pair.Refresh, f.reissueDeps()); res.Failure != ReissueFailureUnknownMember {
		t.Fatalf("deleted member: expected unknown member, got %d", res.Failure)
	}
}

func TestLogoutRevokesForRemainingLifetime(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	f.clock.Advance(5 * time.Minute)

	res := RunLogout(context.Background(), pair.Access, LogoutDeps{Tokens: f.tokens, Sessions: f.cache, Now: f.clock.Now})
	if res.Failure != LogoutFailureNone {
		t.Fatalf("logout failed: %d %v", res.Failure, res.Err)
	}
	if res.RevokedFor != 10*time.Minute {
		t.Fatalf("expected 10m marker, got %v", res.RevokedFor)
	}
	if f.cache.revoked[pair.Access] != 10*time.Minute {
		t.Fatal("expected revocation marker")
	}
	if _, ok := f.cache.refresh[f.alice.ID]; ok {
		t.Fatal("expected refresh token removed")
	}
}

func TestLogoutMarkerIncludesLeeway(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	f.clock.Advance(5 * time.Minute)

	deps := LogoutDeps{Tokens: f.tokens, Sessions: f.cache, Now: f.clock.Now, Leeway: time.Minute}
	res := RunLogout(context.Background(), pair.Access, deps)
	if res.Failure != LogoutFailureNone {
		t.Fatalf("logout failed: %d %v", res.Failure, res.Err)
	}
	if res.RevokedFor != 11*time.Minute {
		t.Fatalf("expected 11m marker, got %v", res.RevokedFor)
	}
}

func TestLogoutRequiresValidAccessToken(t *testing.T) {
	f := newFixture(t)
	pair := f.login(t)
	deps := LogoutDeps{Tokens: f.tokens, Sessions: f.cache, Now: f.clock.Now}

	if res := RunLogout(context.Background(), pair.Refresh, deps); res.Failure != LogoutFailureToken {
		t.Fatalf("refresh token must not log out, got %d", res.Failure)
	}
	f.clock.Advance(time.Hour)
	res := RunLogout(context.Background(), pair.Access, deps)
	if res.Failure != LogoutFailureToken || !errors.Is(res.Err, jwt.ErrExpired) {
		t.Fatalf("expected expired, got %d %v", res.Failure, res.Err)
	}
	if _, ok := f.cache.refresh[f.alice.ID]; !ok {
		t.Fatal("failed logout must leave the session alone")
	}
}

func TestSignup(t *testing.T) {
	f := newFixture(t)
	deps := SignupDeps{
		FindByEmail:        f.members.FindByEmail,
		CreateMember:       f.members.Create,
		HashPassword:       func(p string) (string, error) { return "plain:" + p, nil },
		DefaultAuthorities: []string{"ROLE_MEMBER"},
	}
	ctx := context.Background()

	res := RunSignup(ctx, "New@Example.com", "Aa1!aaaaaaaa", deps)
	if res.Failure != SignupFailureNone {
		t.Fatalf("signup failed: %d %v", res.Failure, res.Err)
	}
	if res.Member.Email != "new@example.com" || len(res.Member.Authorities) != 1 {
		t.Fatalf("unexpected member %+v", res.Member)
	}

	if res := RunSignup(ctx, "new@example.com", "Aa1!aaaaaaaa", deps); res.Failure != SignupFailureDuplicate {
		t.Fatalf("expected duplicate, got %d", res.Failure)
	}

	for _, bad := range []string{"", "not-an-email", "Alice <a@x.com>"} {
		if res := RunSignup(ctx, bad, "Aa1!aaaaaaaa", deps); res.Failure != SignupFailureInvalidEmail {
			t.Fatalf("%q: expected invalid email, got %d", bad, res.Failure)
		}
	}
}

func TestSignupRaceMapsToDuplicate(t *testing.T) {
	deps := SignupDeps{
		FindByEmail: func(context.Context, string) (*member.Member, error) { return nil, member.ErrNotFound },
		CreateMember: func(context.Context, member.NewMember) (*member.Member, error) {
			return nil, fmt.Errorf("%w: race", member.ErrExists)
		},
		HashPassword: func(p string) (string, error) { return "plain:" + p, nil },
	}
	if res := RunSignup(context.Background(), "a@x.com", "Aa1!aaaaaaaa", deps); res.Failure != SignupFailureDuplicate {
		t.Fatalf("expected duplicate, got %d", res.Failure)
	}
}

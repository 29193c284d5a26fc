package boardAuth

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/boardAuth/clock"
	"github.com/MrEthical07/boardAuth/member"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis hook counting commands sent to Redis.
type cmdCounter struct {
	commands atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func newCountedEngine(t *testing.T, cfg Config) (*Engine, *cmdCounter) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, ContextTimeoutEnabled: true})
	t.Cleanup(func() { _ = rdb.Close() })

	counter := &cmdCounter{}
	rdb.AddHook(counter)
	// Connection setup may issue handshake commands; keep them out of the budget.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithMemberDirectory(member.NewMemoryStore()).
		WithClock(clock.NewManual(engineStart)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, counter
}

func measure(counter *cmdCounter, op func()) int64 {
	counter.commands.Store(0)
	op()
	return counter.commands.Load()
}

func TestRedisCommandBudget(t *testing.T) {
	engine, counter := newCountedEngine(t, testConfig())
	ctx := context.Background()

	if got := measure(counter, func() {
		if _, err := engine.Signup(ctx, "a@x.com", "Aa1!aaaaaaaa"); err != nil {
			t.Fatal(err)
		}
	}); got != 0 {
		t.Fatalf("signup must not touch redis, used %d commands", got)
	}

	var pair TokenPair
	if got := measure(counter, func() {
		var err error
		if pair, err = engine.Login(ctx, "a@x.com", "Aa1!aaaaaaaa"); err != nil {
			t.Fatal(err)
		}
	}); got != 1 {
		t.Fatalf("login: expected 1 command, got %d", got)
	}

	if got := measure(counter, func() {
		if _, err := engine.Authenticate(ctx, pair.AccessToken); err != nil {
			t.Fatal(err)
		}
	}); got != 1 {
		t.Fatalf("authenticate: expected 1 command, got %d", got)
	}

	if got := measure(counter, func() {
		_, _ = engine.Authenticate(ctx, "not-a-token")
	}); got != 0 {
		t.Fatalf("malformed tokens must be rejected before redis, used %d", got)
	}

	if got := measure(counter, func() {
		var err error
		if pair, err = engine.Reissue(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
			t.Fatal(err)
		}
	}); got != 2 {
		t.Fatalf("reissue: expected 2 commands, got %d", got)
	}

	if got := measure(counter, func() {
		if err := engine.Logout(ctx, pair.AccessToken); err != nil {
			t.Fatal(err)
		}
	}); got != 2 {
		t.Fatalf("logout: expected 2 commands, got %d", got)
	}
}

func TestRedisCommandBudgetAtomicRotation(t *testing.T) {
	cfg := testConfig()
	cfg.Session.AtomicRotation = true
	engine, counter := newCountedEngine(t, cfg)
	ctx := context.Background()

	if _, err := engine.Signup(ctx, "a@x.com", "Aa1!aaaaaaaa"); err != nil {
		t.Fatal(err)
	}
	pair, err := engine.Login(ctx, "a@x.com", "Aa1!aaaaaaaa")
	if err != nil {
		t.Fatal(err)
	}

	// The first run loads the script; later runs hit the script cache.
	if pair, err = engine.Reissue(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		t.Fatal(err)
	}

	if got := measure(counter, func() {
		if _, err := engine.Reissue(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
			t.Fatal(err)
		}
	}); got != 1 {
		t.Fatalf("atomic reissue: expected 1 command, got %d", got)
	}
}

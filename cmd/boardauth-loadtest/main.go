package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	boardAuth "github.com/MrEthical07/boardAuth"
	"github.com/MrEthical07/boardAuth/member"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const loadtestSecret = "loadtest-secret-0123456789abcdef"

type memberState struct {
	email string
	mu    sync.Mutex
	pair  boardAuth.TokenPair
}

func main() {
	var (
		members     = flag.Int("members", 1000, "number of members to register and log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (authenticate + reissue)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		atomicRot   = flag.Bool("atomic-rotation", false, "rotate refresh tokens with the compare-and-swap script")
	)
	flag.Parse()

	if *members <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "members, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:                 []string{addr},
			ContextTimeoutEnabled: true,
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:                 []string{addr},
			ContextTimeoutEnabled: true,
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := boardAuth.DefaultConfig()
	cfg.JWT.Secret = []byte(loadtestSecret)
	cfg.Session.AtomicRotation = *atomicRot
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	// Seeding hashes thousands of passwords; production parameters would
	// dominate the run.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1

	engine, err := boardAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithMemberDirectory(member.NewMemoryStore()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]memberState, *members)
	fmt.Printf("seeding %d members...\n", *members)
	startSeed := time.Now()
	for i := range states {
		email := fmt.Sprintf("member-%d@loadtest.local", i)
		if _, err := engine.Signup(ctx, email, "loadtest-password"); err != nil {
			fmt.Fprintf(os.Stderr, "signup failed: %v\n", err)
			os.Exit(1)
		}
		pair, err := engine.Login(ctx, email, "loadtest-password")
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].email = email
		states[i].pair = pair
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(states, *ops, *concurrency, 7919, func(s *memberState) error {
		s.mu.Lock()
		token := s.pair.AccessToken
		s.mu.Unlock()
		_, err := engine.Authenticate(ctx, token)
		return err
	})
	reissueStats := runPhase(states, *ops, *concurrency, 6151, func(s *memberState) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		next, err := engine.Reissue(ctx, s.pair.AccessToken, s.pair.RefreshToken)
		if err == nil {
			s.pair = next
		}
		return err
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("reissue", reissueStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("counters: authenticate_failure=%d reissue_failure=%d cache_unavailable=%d\n",
		snap.Counters[boardAuth.MetricAuthenticateFailure],
		snap.Counters[boardAuth.MetricReissueFailure],
		snap.Counters[boardAuth.MetricCacheUnavailable],
	)
}

func runPhase(states []memberState, ops, concurrency int, seed int64, op func(*memberState) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				state := &states[r.Intn(len(states))]
				t0 := time.Now()
				err := op(state)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

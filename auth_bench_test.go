package boardAuth

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/boardAuth/member"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newBenchEngine(b *testing.B, cfg Config) *Engine {
	b.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		b.Fatalf("miniredis: %v", err)
	}
	b.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), ContextTimeoutEnabled: true})
	b.Cleanup(func() { _ = rdb.Close() })

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithMemberDirectory(member.NewMemoryStore()).
		Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(engine.Close)
	return engine
}

func benchPair(b *testing.B, engine *Engine) TokenPair {
	b.Helper()
	ctx := context.Background()
	if _, err := engine.Signup(ctx, "bench@x.com", "Aa1!aaaaaaaa"); err != nil {
		b.Fatal(err)
	}
	pair, err := engine.Login(ctx, "bench@x.com", "Aa1!aaaaaaaa")
	if err != nil {
		b.Fatal(err)
	}
	return pair
}

func BenchmarkAuthenticate(b *testing.B) {
	engine := newBenchEngine(b, testConfig())
	pair := benchPair(b, engine)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.Authenticate(ctx, pair.AccessToken); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAuthenticateRejectMalformed(b *testing.B) {
	engine := newBenchEngine(b, testConfig())
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = engine.Authenticate(ctx, "not.a.token")
	}
}

func BenchmarkReissue(b *testing.B) {
	engine := newBenchEngine(b, testConfig())
	pair := benchPair(b, engine)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		next, err := engine.Reissue(ctx, pair.AccessToken, pair.RefreshToken)
		if err != nil {
			b.Fatal(err)
		}
		pair = next
	}
}

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricAuthenticateSuccess)
			m.Observe(MetricAuthenticateLatency, 3*time.Millisecond)
		}
	})
}

package boardAuth

import (
	"errors"
	"log/slog"

	"github.com/MrEthical07/boardAuth/clock"
	internalaudit "github.com/MrEthical07/boardAuth/internal/audit"
	"github.com/MrEthical07/boardAuth/internal/flows"
	"github.com/MrEthical07/boardAuth/internal/rate"
	"github.com/MrEthical07/boardAuth/jwt"
	"github.com/MrEthical07/boardAuth/password"
	"github.com/MrEthical07/boardAuth/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be used for one Build only.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory MemberDirectory
	verifier  PasswordVerifier
	hasher    PasswordHasher
	clock     clock.Clock
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session cache and login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMemberDirectory sets the member lookup collaborator. If dir also
// implements MemberRegistry, Signup is enabled; if it implements
// PasswordRehasher, outdated hashes are upgraded on login.
func (b *Builder) WithMemberDirectory(dir MemberDirectory) *Builder {
	b.directory = dir
	return b
}

// WithPasswordVerifier overrides the built-in argon2id/bcrypt verifier.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.verifier = v
	return b
}

// WithPasswordHasher overrides the built-in argon2id hasher used by Signup.
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithClock injects the time source used for issuance, verification and
// revocation lifetimes.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithLogger sets the logger for operational warnings. Defaults to
// slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets the destination for audit events. It has no effect
// unless Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms enables the authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the codec, session store, flows
// and audit dispatcher, and returns a ready Engine. A Builder builds once.
//
// Build may return an error when input validation or dependency construction fails.
// Build does not mutate shared global state.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.directory == nil {
		return nil, errors.New("member directory required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := clock.OrSystem(b.clock)

	// -------- TOKEN CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
		Clock:      clk,
	})
	if err != nil {
		return nil, err
	}

	// -------- SESSION CACHE --------
	store := session.NewStore(b.redis, session.Options{
		SessionPrefix:    cfg.Session.SessionPrefix,
		RevokedPrefix:    cfg.Session.RevokedPrefix,
		OperationTimeout: cfg.Session.OperationTimeout,
	})

	// -------- PASSWORDS --------
	argon, err := password.NewArgon2(cfg.passwordConfig())
	if err != nil {
		return nil, err
	}
	builtin := password.NewVerifier(argon)
	var verifier PasswordVerifier = builtin
	if b.verifier != nil {
		verifier = b.verifier
	}
	var hasher PasswordHasher = builtin
	if b.hasher != nil {
		hasher = b.hasher
	}
	dummyHash, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		logger:       logger,
		clock:        clk,
		jwtManager:   jm,
		sessionStore: store,
		directory:    b.directory,
		verifier:     verifier,
		hasher:       hasher,
		dummyHash:    dummyHash,
		metrics:      NewMetrics(cfg.Metrics),
	}
	if reg, ok := b.directory.(MemberRegistry); ok {
		engine.registry = reg
	}
	if cfg.Password.UpgradeOnLogin {
		if rehasher, ok := b.directory.(PasswordRehasher); ok {
			if checker, ok := verifier.(upgradeChecker); ok {
				engine.rehasher = rehasher
				engine.upgradeCheck = checker
			}
		}
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Security.ThrottlePrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
			OperationTimeout:      cfg.Session.OperationTimeout,
		})
	}

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		AlertGrace: cfg.Audit.AlertGrace,
		Logger:     logger,
	}, b.auditSink)

	engine.flow = flows.New(engine.flowDeps())

	b.built = true

	return engine, nil
}

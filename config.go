package boardAuth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/boardAuth/jwt"
	"github.com/MrEthical07/boardAuth/password"
	"github.com/MrEthical07/boardAuth/session"
)

// Config groups every engine setting. Start from DefaultConfig and override
// the fields you need; JWT.Secret has no default.
type Config struct {
	JWT      JWTConfig
	Session  SessionConfig
	Password PasswordConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token issuance. Secret is the single HS256 key shared by
// every instance of the service; it must be at least 32 bytes.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the Redis session cache.
//
// AtomicRotation makes reissue compare and replace the stored refresh token
// in a single script. It is off by default, which keeps last-writer-wins
// behaviour for concurrent reissues of the same session.
type SessionConfig struct {
	SessionPrefix    string
	RevokedPrefix    string
	OperationTimeout time.Duration
	AtomicRotation   bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and the plaintext length policy
// used by the built-in hasher.
type PasswordConfig struct {
	Memory         uint32
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds default authorities and the optional failed-login
// throttle.
type SecurityConfig struct {
	DefaultAuthorities    []string
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	ThrottlePrefix        string
}

/*
====================================
AUDIT & METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
//
// AlertGrace bounds how long an alert waits for buffer space under
// DropIfFull; info events never wait.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	AlertGrace time.Duration
}

// MetricsConfig enables in-process counters and the authenticate latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration without a secret.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 14 * 24 * time.Hour,
		},
		Session: SessionConfig{
			SessionPrefix:    session.DefaultSessionPrefix,
			RevokedPrefix:    session.DefaultRevokedPrefix,
			OperationTimeout: session.DefaultOperationTimeout,
		},
		Password: PasswordConfig{
			Memory:         pw.Memory,
			Time:           pw.Time,
			Parallelism:    pw.Parallelism,
			SaltLength:     pw.SaltLength,
			KeyLength:      pw.KeyLength,
			MinLength:      pw.MinLength,
			MaxLength:      pw.MaxLength,
			UpgradeOnLogin: true,
		},
		Security: SecurityConfig{
			DefaultAuthorities:    []string{"ROLE_MEMBER"},
			EnableLoginThrottle:   false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			ThrottlePrefix:        "throttle",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
			AlertGrace: 25 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	if cfg.Security.DefaultAuthorities != nil {
		out.Security.DefaultAuthorities = append([]string(nil), cfg.Security.DefaultAuthorities...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c Config) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,
		MinLength:   c.Password.MinLength,
		MaxLength:   c.Password.MaxLength,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks cross-field constraints.
//
// Validate may return an error when input validation fails.
// Validate does not mutate shared global state.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) < jwt.MinSecretLength {
		return fmt.Errorf("JWT Secret must be at least %d bytes", jwt.MinSecretLength)
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be greater than AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if strings.TrimSpace(c.Session.SessionPrefix) == "" || strings.TrimSpace(c.Session.RevokedPrefix) == "" {
		return errors.New("Session prefixes must not be empty")
	}
	if c.Session.SessionPrefix == c.Session.RevokedPrefix {
		return errors.New("Session SessionPrefix and RevokedPrefix must differ")
	}
	if c.Session.OperationTimeout <= 0 {
		return errors.New("Session OperationTimeout must be > 0")
	}

	// Password
	if c.Password.MinLength <= 0 || c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password length policy is invalid")
	}

	// Security
	if len(c.Security.DefaultAuthorities) == 0 {
		return errors.New("Security DefaultAuthorities must not be empty")
	}
	for _, a := range c.Security.DefaultAuthorities {
		if strings.TrimSpace(a) == "" || strings.Contains(a, ",") {
			return fmt.Errorf("invalid default authority %q", a)
		}
	}
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
		prefix := c.Security.ThrottlePrefix
		if prefix == "" || prefix == c.Session.SessionPrefix || prefix == c.Session.RevokedPrefix {
			return errors.New("Security ThrottlePrefix must be set and distinct from session prefixes")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}
	if c.Audit.AlertGrace < 0 || c.Audit.AlertGrace > time.Second {
		return errors.New("Audit AlertGrace must be between 0 and 1s")
	}

	return nil
}

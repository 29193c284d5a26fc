// Package config loads the service binary's settings from the environment and
// an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	boardAuth "github.com/MrEthical07/boardAuth"
	"github.com/spf13/viper"
)

// Config holds the service settings. Durations use time.ParseDuration syntax.
type Config struct {
	// HTTPAddr is the listen address (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// DatabaseURL is a postgres:// URL or a SQLite file path.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the host:port of the session cache.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// JWTSecret is the shared HS256 key, at least 32 bytes.
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	JWTAccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`

	CacheTimeout   time.Duration `mapstructure:"CACHE_TIMEOUT"`
	AtomicRotation bool          `mapstructure:"ATOMIC_ROTATION"`

	// DefaultAuthorities is a comma-separated list granted at signup.
	DefaultAuthorities string `mapstructure:"DEFAULT_AUTHORITIES"`

	LoginThrottle      bool          `mapstructure:"LOGIN_THROTTLE"`
	LoginMaxAttempts   int           `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginCooldown      time.Duration `mapstructure:"LOGIN_COOLDOWN"`
	AuditEnabled       bool          `mapstructure:"AUDIT_ENABLED"`
	MetricsEnabled     bool          `mapstructure:"METRICS_ENABLED"`
	CORSAllowedOrigins string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ShutdownTimeout    time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "boardauth.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "boardauth")
	v.SetDefault("JWT_ACCESS_TTL", "30m")
	v.SetDefault("JWT_REFRESH_TTL", "336h") // 14d
	v.SetDefault("CACHE_TIMEOUT", "500ms")
	v.SetDefault("ATOMIC_ROTATION", false)
	v.SetDefault("DEFAULT_AUTHORITIES", "ROLE_MEMBER")
	v.SetDefault("LOGIN_THROTTLE", false)
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_COOLDOWN", "15m")
	v.SetDefault("AUDIT_ENABLED", true)
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET must be set")
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Engine maps the service settings onto the library configuration.
func (c *Config) Engine() boardAuth.Config {
	cfg := boardAuth.DefaultConfig()
	cfg.JWT.Secret = []byte(c.JWTSecret)
	cfg.JWT.Issuer = c.JWTIssuer
	cfg.JWT.AccessTTL = c.JWTAccessTTL
	cfg.JWT.RefreshTTL = c.JWTRefreshTTL
	cfg.Session.OperationTimeout = c.CacheTimeout
	cfg.Session.AtomicRotation = c.AtomicRotation
	if authorities := splitList(c.DefaultAuthorities); len(authorities) > 0 {
		cfg.Security.DefaultAuthorities = authorities
	}
	cfg.Security.EnableLoginThrottle = c.LoginThrottle
	cfg.Security.MaxLoginAttempts = c.LoginMaxAttempts
	cfg.Security.LoginCooldownDuration = c.LoginCooldown
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	return cfg
}

// Level returns the slog level for LogLevel.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

// AllowedOrigins returns CORS origins from the comma-separated setting.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return l, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

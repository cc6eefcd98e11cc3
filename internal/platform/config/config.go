// Package config loads process configuration from the environment so main
// stays lean. Struct tags map variables; defaults suit local development and
// must be overridden in production (notably the JWT secret).
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config captures every tunable the trust-boundary pipeline exposes.
type Config struct {
	Addr       string `env:"AUREON_ADDR" envDefault:":8080"`
	BaseDomain string `env:"BASE_DOMAIN" envDefault:"aureoncare.com"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	JWTSecret       string        `env:"JWT_SECRET" envDefault:"dev-secret-key-change-in-production"`
	AccessTokenTTL  time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_EXPIRATION" envDefault:"168h"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	// LegacyHeaderAuth enables the header-based fallback kept for clients
	// that have not migrated to bearer tokens. It skips session validation
	// and trusts a caller-supplied role, so it stays off unless explicitly
	// turned on for a migration window.
	LegacyHeaderAuth bool `env:"LEGACY_HEADER_AUTH" envDefault:"false"`

	TenantCacheTTL time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`

	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" envDefault:"100"`

	// GlobalRequestsPerSecond caps total request throughput in front of the
	// store. Zero disables the throttle.
	GlobalRequestsPerSecond float64 `env:"GLOBAL_REQUESTS_PER_SECOND" envDefault:"0"`

	AuditBatchSize     int           `env:"AUDIT_BATCH_SIZE" envDefault:"100"`
	AuditFlushInterval time.Duration `env:"AUDIT_FLUSH_INTERVAL" envDefault:"5s"`
	AuditQueueCap      int           `env:"AUDIT_QUEUE_CAP" envDefault:"10000"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// TracingEnabled switches the pipeline spans from the no-op tracer to
	// the OpenTelemetry adapter backed by the global tracer provider.
	TracingEnabled bool `env:"TRACING_ENABLED" envDefault:"false"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.AuditBatchSize <= 0 {
		return Config{}, fmt.Errorf("AUDIT_BATCH_SIZE must be positive")
	}
	if cfg.RateLimitMax <= 0 {
		return Config{}, fmt.Errorf("RATE_LIMIT_MAX must be positive")
	}
	return cfg, nil
}

package config

import "time"

// Environment names accepted by ServerConfig.Environment.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Fallback literals used when the corresponding settings are not provided.
const (
	// DefaultIssuer is the token issuer used when auth.issuer is empty.
	DefaultIssuer = "usergate"

	// DefaultAudience is the token audience used when auth.audience is empty.
	DefaultAudience = "usergate-clients"

	// DevJWTSecret is substituted for an empty auth.jwt_secret outside of
	// production only. Anyone who reads this file can forge tokens for a
	// server running with it.
	DevJWTSecret = "usergate-development-only-signing-secret-do-not-deploy"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Audit    AuditConfig    `mapstructure:"audit"    validate:"required"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int             `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string          `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	Environment            string          `mapstructure:"environment"              validate:"required,oneof=development test production"`
	ShutdownTimeoutSeconds int             `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
	CORSAllowedOrigins     []string        `mapstructure:"cors_allowed_origins"`
	RateLimit              RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig drives the per-client rate limiting stage.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst"               validate:"gte=0"`

	// TrustProxyHeaders keys buckets on X-Forwarded-For and friends. Only set
	// it behind a proxy that overwrites them.
	TrustProxyHeaders bool `mapstructure:"trust_proxy_headers"`
}

// DatabaseConfig contains all database-related configuration settings.
// An empty URL selects the in-memory user store outside production.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"omitempty,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string   `mapstructure:"jwt_secret"             validate:"required,min=32"`
	Issuer               string   `mapstructure:"issuer"                 validate:"required"`
	Audience             string   `mapstructure:"audience"               validate:"required"`
	TokenLifetimeMinutes int      `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
	BcryptCost           int      `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
	MaxFailedLogins      int      `mapstructure:"max_failed_logins"      validate:"gt=0"`
	LockoutMinutes       int      `mapstructure:"lockout_minutes"        validate:"gt=0"`
	ExcludedPaths        []string `mapstructure:"excluded_paths"`

	// UsingDevSecret is set by Load when DevJWTSecret was substituted.
	UsingDevSecret bool `mapstructure:"-"`
}

// TokenLifetime returns the configured access token lifetime.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// LockoutDuration returns how long an account stays locked.
func (c AuthConfig) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutMinutes) * time.Minute
}

// AuditConfig controls request/response audit logging.
type AuditConfig struct {
	MaxBodyBytes     int64  `mapstructure:"max_body_bytes"     validate:"gt=0"`
	Sink             string `mapstructure:"sink"               validate:"required,oneof=log postgres"`
	QueueSize        int    `mapstructure:"queue_size"         validate:"gt=0"`
	EnqueueTimeoutMS int    `mapstructure:"enqueue_timeout_ms" validate:"gt=0"`

	// FilePath, when set, sends the log sink to a rotating file.
	FilePath       string `mapstructure:"file_path"`
	FileMaxSizeMB  int    `mapstructure:"file_max_size_mb"  validate:"gte=0"`
	FileMaxBackups int    `mapstructure:"file_max_backups"  validate:"gte=0"`
	FileMaxAgeDays int    `mapstructure:"file_max_age_days" validate:"gte=0"`
}

// EnqueueTimeout returns how long an audit append may block.
func (c AuditConfig) EnqueueTimeout() time.Duration {
	return time.Duration(c.EnqueueTimeoutMS) * time.Millisecond
}

// TracingConfig controls OpenTelemetry span export. An empty endpoint
// disables export.
type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"  validate:"gte=0,lte=1"`
	ServiceName  string  `mapstructure:"service_name"  validate:"required"`
}

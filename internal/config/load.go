package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. USERGATE_AUTH_JWT_SECRET for auth.jwt_secret.
const EnvPrefix = "USERGATE"

// Load configuration from environment variables and an optional config.yaml
// in the working directory. Environment variables take precedence over values
// from config files. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given config file instead of
// searching for config.yaml. An empty path falls back to the search.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyFallbacks(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers a default for every key so that AutomaticEnv can
// resolve nested keys during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", EnvDevelopment)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("server.cors_allowed_origins", []string{})
	v.SetDefault("server.rate_limit.enabled", false)
	v.SetDefault("server.rate_limit.requests_per_second", 20.0)
	v.SetDefault("server.rate_limit.burst", 40)
	v.SetDefault("server.rate_limit.trust_proxy_headers", false)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", DefaultIssuer)
	v.SetDefault("auth.audience", DefaultAudience)
	v.SetDefault("auth.token_lifetime_minutes", 24*60)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.max_failed_logins", 5)
	v.SetDefault("auth.lockout_minutes", 15)
	v.SetDefault("auth.excluded_paths", []string{})

	v.SetDefault("audit.max_body_bytes", 1<<20)
	v.SetDefault("audit.sink", "log")
	v.SetDefault("audit.queue_size", 1024)
	v.SetDefault("audit.enqueue_timeout_ms", 250)
	v.SetDefault("audit.file_path", "")
	v.SetDefault("audit.file_max_size_mb", 100)
	v.SetDefault("audit.file_max_backups", 5)
	v.SetDefault("audit.file_max_age_days", 30)

	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.service_name", DefaultIssuer)
}

// applyFallbacks fills settings that have documented fallback literals.
// The development signing secret is never applied in production.
func applyFallbacks(cfg *Config) {
	if strings.TrimSpace(cfg.Auth.Issuer) == "" {
		cfg.Auth.Issuer = DefaultIssuer
	}
	if strings.TrimSpace(cfg.Auth.Audience) == "" {
		cfg.Auth.Audience = DefaultAudience
	}
	if cfg.Auth.JWTSecret == "" && cfg.Server.Environment != EnvProduction {
		cfg.Auth.JWTSecret = DevJWTSecret
		cfg.Auth.UsingDevSecret = true
	}
}

func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Server.Environment == EnvProduction && cfg.Database.URL == "" {
		return fmt.Errorf("config validation failed: database.url is required in production")
	}
	if cfg.Audit.Sink == "postgres" && cfg.Database.URL == "" {
		return fmt.Errorf("config validation failed: audit.sink=postgres requires database.url")
	}

	if cfg.Server.RateLimit.Enabled {
		if cfg.Server.RateLimit.RequestsPerSecond <= 0 || cfg.Server.RateLimit.Burst <= 0 {
			return fmt.Errorf(
				"config validation failed: rate limit requires positive requests_per_second and burst",
			)
		}
	}

	return nil
}

// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package config loads and validates server configuration through koanf's
// layered sources: built-in defaults, an optional YAML file, then
// environment variables. Validation collects every problem before the
// process exits so operators fix the deployment in one pass.
package config

import (
	"time"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Lifecycle LifecycleConfig `koanf:"lifecycle"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Host is the listen address. Default: 0.0.0.0
	Host string `koanf:"host"`

	// Port is the listen port. Default: 8080
	Port int `koanf:"port"`

	// Environment is development, staging, or production. Error
	// responses include stack traces outside production.
	Environment string `koanf:"environment"`

	// BodyLimit is the maximum request body size in bytes. Default: 1MiB
	BodyLimit int64 `koanf:"body_limit"`
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// SecurityConfig holds authentication and request-origin settings.
type SecurityConfig struct {
	// CORSOrigins is the browser origin allowlist. "*" allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	// TrustedProxies lists proxy addresses whose forwarding headers
	// are believed for client IP derivation.
	TrustedProxies []string `koanf:"trusted_proxies"`

	// OIDC configures identity-provider token introspection.
	OIDC OIDCConfig `koanf:"oidc"`

	// ServiceTokenSecret signs internal service tokens. Minimum 32
	// characters.
	ServiceTokenSecret string `koanf:"service_token_secret"`
}

// OIDCConfig holds the identity-provider connection.
type OIDCConfig struct {
	IssuerURL    string `koanf:"issuer_url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// RolesClaim names the introspection claim carrying role names.
	// Default: roles
	RolesClaim string `koanf:"roles_claim"`
}

// RateLimitConfig selects the counter store and allows per-policy
// overrides. A zero override keeps the built-in policy value.
type RateLimitConfig struct {
	// Store is redis or memory. Default: memory
	Store string `koanf:"store"`

	// RedisAddr is the Redis address, required when Store is redis.
	RedisAddr string `koanf:"redis_addr"`

	// RedisPassword is optional.
	RedisPassword string `koanf:"redis_password"`

	General     PolicyOverride `koanf:"general"`
	Expensive   PolicyOverride `koanf:"expensive"`
	AuthAttempt PolicyOverride `koanf:"auth_attempt"`
	Webhook     PolicyOverride `koanf:"webhook"`
}

// PolicyOverride adjusts one named rate-limit policy.
type PolicyOverride struct {
	Max    int           `koanf:"max"`
	Window time.Duration `koanf:"window"`
}

// LifecycleConfig tunes graceful shutdown.
type LifecycleConfig struct {
	// DrainTimeout bounds the HTTP listener drain. Default: 10s
	DrainTimeout time.Duration `koanf:"drain_timeout"`

	// HookTimeout bounds each drain hook. Default: 5s
	HookTimeout time.Duration `koanf:"hook_timeout"`

	// WatchdogTimeout is the hard ceiling on the whole shutdown.
	// Default: 30s
	WatchdogTimeout time.Duration `koanf:"watchdog_timeout"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is trace, debug, info, warn, or error. Default: info
	Level string `koanf:"level"`

	// Format is json or console. Default: json
	Format string `koanf:"format"`

	// Caller includes file and line in log records.
	Caller bool `koanf:"caller"`
}

// defaultConfig is the bottom layer of the load. Every field an operator
// may omit gets a workable value here.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Environment: "development",
			BodyLimit:   1 << 20,
		},
		Security: SecurityConfig{
			CORSOrigins:    []string{"*"},
			TrustedProxies: []string{},
			OIDC: OIDCConfig{
				RolesClaim: "roles",
			},
		},
		RateLimit: RateLimitConfig{
			Store: "memory",
		},
		Lifecycle: LifecycleConfig{
			DrainTimeout:    10 * time.Second,
			HookTimeout:     5 * time.Second,
			WatchdogTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

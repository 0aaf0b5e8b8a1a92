// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package config

import (
	"fmt"
	"strings"
)

// ValidationError aggregates every configuration problem found in one
// pass. Operators see the full list instead of fixing keys one restart at
// a time.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration (%d issues):\n  - %s",
		len(e.Issues), strings.Join(e.Issues, "\n  - "))
}

// Validate checks the configuration and returns a *ValidationError listing
// every missing or invalid key, or nil when the config is usable.
func (c *Config) Validate() error {
	var issues []string
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		add("ENVIRONMENT must be development, staging, or production, got %q", c.Server.Environment)
	}
	if c.Server.BodyLimit <= 0 {
		add("BODY_LIMIT must be positive, got %d", c.Server.BodyLimit)
	}

	if len(c.Security.CORSOrigins) == 0 {
		add("CORS_ORIGINS must list at least one origin (or \"*\")")
	}
	if c.Server.IsProduction() {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				add("CORS_ORIGINS must not contain \"*\" in production")
			}
		}
	}

	if c.Security.OIDC.IssuerURL == "" {
		add("OIDC_ISSUER_URL is required")
	} else if !strings.HasPrefix(c.Security.OIDC.IssuerURL, "http://") &&
		!strings.HasPrefix(c.Security.OIDC.IssuerURL, "https://") {
		add("OIDC_ISSUER_URL must be an http(s) URL, got %q", c.Security.OIDC.IssuerURL)
	}
	if c.Security.OIDC.ClientID == "" {
		add("OIDC_CLIENT_ID is required")
	}
	if c.Security.OIDC.ClientSecret == "" {
		add("OIDC_CLIENT_SECRET is required")
	}

	if c.Security.ServiceTokenSecret == "" {
		add("SERVICE_TOKEN_SECRET is required")
	} else if len(c.Security.ServiceTokenSecret) < 32 {
		add("SERVICE_TOKEN_SECRET must be at least 32 characters, got %d", len(c.Security.ServiceTokenSecret))
	}

	switch c.RateLimit.Store {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			add("REDIS_ADDR is required when RATE_LIMIT_STORE=redis")
		}
	default:
		add("RATE_LIMIT_STORE must be redis or memory, got %q", c.RateLimit.Store)
	}

	overrides := []struct {
		name     string
		override PolicyOverride
	}{
		{"RATE_LIMIT_GENERAL_MAX", c.RateLimit.General},
		{"RATE_LIMIT_EXPENSIVE_MAX", c.RateLimit.Expensive},
		{"RATE_LIMIT_AUTH_MAX", c.RateLimit.AuthAttempt},
		{"RATE_LIMIT_WEBHOOK_MAX", c.RateLimit.Webhook},
	}
	for _, o := range overrides {
		if o.override.Max < 0 {
			add("%s must not be negative, got %d", o.name, o.override.Max)
		}
		if o.override.Window < 0 {
			add("%s window must not be negative, got %v", o.name, o.override.Window)
		}
	}

	if c.Lifecycle.DrainTimeout <= 0 {
		add("DRAIN_TIMEOUT must be positive, got %v", c.Lifecycle.DrainTimeout)
	}
	if c.Lifecycle.HookTimeout <= 0 {
		add("HOOK_TIMEOUT must be positive, got %v", c.Lifecycle.HookTimeout)
	}
	if c.Lifecycle.WatchdogTimeout <= 0 {
		add("WATCHDOG_TIMEOUT must be positive, got %v", c.Lifecycle.WatchdogTimeout)
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		add("LOG_LEVEL must be trace, debug, info, warn, or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		add("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

// Package main is the entry point for the Vantage API server.
//
// Vantage is the API tier of a brand-workspace platform. This binary owns
// the request-lifecycle control core: the ordered middleware pipeline,
// distributed rate limiting, the authentication gate, the error envelope,
// and graceful startup/shutdown. Domain collaborators (persistence, job
// queue, realtime hub, billing) are reached through narrow boundary
// interfaces and register themselves as route groups, health checks, and
// drain hooks.
//
// # Startup order
//
//  1. Configuration: koanf layers (defaults < config.yaml < environment).
//     Validation failures list every broken key and exit non-zero.
//  2. Logging: zerolog, JSON to stderr by default.
//  3. Rate-limit store: Redis (RATE_LIMIT_STORE=redis) or in-process.
//  4. Verifiers: service-token HMAC verifier, then identity-provider
//     introspection behind a circuit breaker, composed into a chain.
//  5. Lifecycle controller, drain hooks, health handler, router.
//  6. Supervisor tree: HTTP server in the api layer, telemetry in the
//     background layer.
//
// # Signal handling
//
// SIGINT and SIGTERM cancel the root context exactly once. The HTTP
// service flips the lifecycle controller to draining (readiness fails, the
// load balancer stops routing), closes the listener gracefully, and the
// drain hooks then run in registration order under the shutdown watchdog.
//
// # Configuration
//
// Required environment (no defaults): OIDC_ISSUER_URL, OIDC_CLIENT_ID,
// OIDC_CLIENT_SECRET, SERVICE_TOKEN_SECRET (32+ chars), and REDIS_ADDR when
// RATE_LIMIT_STORE=redis. See internal/config for the full key list.
//
// Example:
//
//	export OIDC_ISSUER_URL=https://id.example.com
//	export OIDC_CLIENT_ID=vantage-api
//	export OIDC_CLIENT_SECRET=...
//	export SERVICE_TOKEN_SECRET=$(openssl rand -hex 32)
//	export RATE_LIMIT_STORE=redis
//	export REDIS_ADDR=redis:6379
//	export CORS_ORIGINS=https://app.example.com
//	./vantage
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/nmoreau/vantage/internal/alerting"
	"github.com/nmoreau/vantage/internal/api"
	"github.com/nmoreau/vantage/internal/auth"
	"github.com/nmoreau/vantage/internal/config"
	"github.com/nmoreau/vantage/internal/lifecycle"
	"github.com/nmoreau/vantage/internal/logging"
	"github.com/nmoreau/vantage/internal/ratelimit"
	"github.com/nmoreau/vantage/internal/supervisor"
	"github.com/nmoreau/vantage/internal/supervisor/services"
)

// version is stamped at build time:
//
//	go build -ldflags "-X main.version=$(git describe --tags)"
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			for _, issue := range verr.Issues {
				logging.Error().Msg(issue)
			}
			logging.Fatal().Int("issues", len(verr.Issues)).Msg("Configuration invalid")
		}
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("rate_limit_store", cfg.RateLimit.Store).
		Msg("Starting Vantage")

	if !cfg.Server.IsProduction() {
		for _, origin := range cfg.Security.CORSOrigins {
			if origin == "*" {
				logging.Warn().Msg("CORS_ORIGINS=* allows any website to call this API; set explicit origins before production")
			}
		}
	}

	// Boot context bounds provider discovery and store pings.
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer bootCancel()

	reporter := alerting.NewReporter(nil, nil)

	ctrl := lifecycle.NewController(
		lifecycle.WithWatchdog(cfg.Lifecycle.WatchdogTimeout),
		lifecycle.WithReporter(reporter.ReportBackground),
	)

	// Rate-limit store. Redis is shared across instances; the memory store
	// is per-process and only suitable for single-instance deployments.
	var (
		store     ratelimit.Store
		storePing func(ctx context.Context) error
	)
	if cfg.RateLimit.Store == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
		})
		if err := client.Ping(bootCtx).Err(); err != nil {
			logging.Warn().Err(err).Str("addr", cfg.RateLimit.RedisAddr).
				Msg("Redis unreachable at startup; limiter runs in documented fail modes until it recovers")
		}
		redisStore := ratelimit.NewRedisStore(client)
		store = redisStore
		storePing = redisStore.Ping
		ctrl.OnDrain(lifecycle.DrainHook{
			Name:    "ratelimit-store",
			Timeout: cfg.Lifecycle.HookTimeout,
			Fn: func(context.Context) error {
				return client.Close()
			},
		})
	} else {
		memStore := ratelimit.NewMemoryStore()
		store = memStore
		storePing = func(context.Context) error { return nil }
		logging.Info().Msg("Using in-process rate-limit counters (RATE_LIMIT_STORE=memory)")
	}
	limiter := ratelimit.NewLimiter(store)

	// Verifier chain: cheap local HMAC check first, introspection second.
	serviceVerifier, err := auth.NewServiceVerifier(cfg.Security.ServiceTokenSecret)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize service-token verifier")
	}
	verifiers := []auth.Verifier{serviceVerifier}

	oidcVerifier, err := auth.NewOIDCVerifier(bootCtx, auth.OIDCConfig{
		Issuer:       cfg.Security.OIDC.IssuerURL,
		ClientID:     cfg.Security.OIDC.ClientID,
		ClientSecret: cfg.Security.OIDC.ClientSecret,
		RolesClaim:   cfg.Security.OIDC.RolesClaim,
	})
	if err != nil {
		// Service tokens keep internal traffic alive while the provider is
		// down; user-facing auth stays broken until a restart reaches it.
		logging.Error().Err(err).Msg("Identity provider discovery failed; workspace-user tokens cannot be verified")
		reporter.ReportBackground(context.Background(), err)
	} else {
		verifiers = append(verifiers, oidcVerifier)
	}
	chain := auth.NewChain(verifiers...)

	healthChecks := []api.Checker{
		api.DependencyCheck{DepName: "ratelimit-store", IsCritical: true, Probe: storePing},
	}
	if oidcVerifier != nil {
		healthChecks = append(healthChecks, api.DependencyCheck{
			DepName: "identity-provider", IsCritical: false, Probe: oidcVerifier.Healthy,
		})
	}
	health := api.NewHealthHandler(version, ctrl.Ready, healthChecks...)

	errh := api.NewErrorHandler(!cfg.Server.IsProduction(), reporter)

	general := ratelimit.GeneralPolicy(int64(cfg.RateLimit.General.Max), cfg.RateLimit.General.Window)
	expensive := ratelimit.ExpensivePolicy()
	if cfg.RateLimit.Expensive.Max > 0 {
		expensive.Max = int64(cfg.RateLimit.Expensive.Max)
	}
	if cfg.RateLimit.Expensive.Window > 0 {
		expensive.Window = cfg.RateLimit.Expensive.Window
	}
	authAttempt := ratelimit.AuthAttemptPolicy()
	if cfg.RateLimit.AuthAttempt.Max > 0 {
		authAttempt.Max = int64(cfg.RateLimit.AuthAttempt.Max)
	}
	if cfg.RateLimit.AuthAttempt.Window > 0 {
		authAttempt.Window = cfg.RateLimit.AuthAttempt.Window
	}
	webhook := ratelimit.WebhookPolicy()
	if cfg.RateLimit.Webhook.Max > 0 {
		webhook.Max = int64(cfg.RateLimit.Webhook.Max)
	}
	if cfg.RateLimit.Webhook.Window > 0 {
		webhook.Window = cfg.RateLimit.Webhook.Window
	}

	router := api.NewRouter(api.RouterConfig{
		AllowedOrigins: cfg.Security.CORSOrigins,
		TrustedProxies: cfg.Security.TrustedProxies,
		BodyLimit:      cfg.Server.BodyLimit,
		ExposeStack:    !cfg.Server.IsProduction(),
		Reporter:       reporter,
		Limiter:        limiter,
		Verifier:       chain,
		Health:         health,
		General:        general,
		Expensive:      expensive,
		AuthAttempt:    authAttempt,
		Webhook:        webhook,
		Public: func(r chi.Router) {
			r.Get("/version", api.VersionHandler(version, cfg.Server.Environment))
		},
		Authed: func(r chi.Router) {
			r.Get("/me", api.MeHandler(errh))
		},
		AuthFlows: func(r chi.Router) {
			r.Post("/check", api.TokenCheckHandler(chain, errh))
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Lifecycle.DrainTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, ctrl, cfg.Lifecycle.DrainTimeout))
	tree.AddBackgroundService(services.NewTelemetryService(version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	ctrl.SetReady()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			ctrl.Crash(context.Background(), err)
		}
	}

	// Drain the error channel until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	// The listener is closed; run the drain hooks and finish.
	ctrl.Shutdown(context.Background())
	logging.Info().Msg("Vantage stopped gracefully")
}

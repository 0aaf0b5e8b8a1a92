// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nmoreau/vantage/internal/apperror"
	"github.com/nmoreau/vantage/internal/auth"
	"github.com/nmoreau/vantage/internal/middleware"
	"github.com/nmoreau/vantage/internal/ratelimit"
)

// RouteGroup mounts a set of domain handlers onto a subrouter. Groups are
// optional; a nil group leaves its subtree empty.
type RouteGroup func(r chi.Router)

// RouterConfig wires the pipeline together.
type RouterConfig struct {
	// AllowedOrigins is the CORS allowlist. "*" allows any origin.
	AllowedOrigins []string

	// TrustedProxies are peers whose forwarding headers are honored for
	// client-IP rate-limit keys.
	TrustedProxies []string

	// BodyLimit caps request bodies in bytes. Zero means the default.
	BodyLimit int64

	// ExposeStack includes stack traces in internal-error responses.
	ExposeStack bool

	// Reporter receives non-operational errors. May be nil.
	Reporter Reporter

	Limiter  *ratelimit.Limiter
	Verifier auth.Verifier
	Health   *HealthHandler

	// Policies. Zero-valued policies fall back to the named defaults.
	General     ratelimit.Policy
	Expensive   ratelimit.Policy
	AuthAttempt ratelimit.Policy
	Webhook     ratelimit.Policy

	// Route groups, all mounted under /api/v1.
	Public    RouteGroup // optional auth, personalized when a token is present
	Authed    RouteGroup // requires a valid principal
	Costly    RouteGroup // authed plus the expensive-operations policy
	Admin     RouteGroup // authed plus an admin or owner role
	AuthFlows RouteGroup // token exchange, fail-closed attempt policy
	Webhooks  RouteGroup // provider callbacks, webhook policy
}

// NewRouter assembles the fixed middleware chain and route groups.
//
// Pipeline order is part of the API contract: recovery wraps everything,
// security headers and CORS precede correlation so even rejected requests
// carry them, and the general rate limit runs after metrics so denials are
// counted. Health and metrics endpoints sit outside the general limit.
func NewRouter(cfg RouterConfig) http.Handler {
	errh := NewErrorHandler(cfg.ExposeStack, cfg.Reporter)
	deriver := ratelimit.NewKeyDeriver(cfg.TrustedProxies)

	general := cfg.General
	if general.Name == "" {
		general = ratelimit.GeneralPolicy(0, 0)
	}
	expensive := cfg.Expensive
	if expensive.Name == "" {
		expensive = ratelimit.ExpensivePolicy()
	}
	authAttempt := cfg.AuthAttempt
	if authAttempt.Name == "" {
		authAttempt = ratelimit.AuthAttemptPolicy()
	}
	webhook := cfg.Webhook
	if webhook.Name == "" {
		webhook = ratelimit.WebhookPolicy()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recover(errh.RespondError))
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.CorrelationHeader},
		ExposedHeaders:   []string{middleware.CorrelationHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(enforceOrigin(cfg.AllowedOrigins, errh))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.BodyLimit(cfg.BodyLimit))
	r.Use(middleware.PrometheusMetrics)

	// Monitoring surface: outside the general policy, but flood-guarded so
	// a misconfigured prober cannot burn cycles on dependency checks.
	// Denials go through the terminal handler like every other failure, so
	// they carry the envelope and a warn-level log line.
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(60, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				errh.RespondError(w, r, apperror.RateLimited("Monitoring endpoint rate limit exceeded"))
			}),
		))
		if cfg.Health != nil {
			r.Get("/health", cfg.Health.Health)
			r.Get("/health/live", cfg.Health.Live)
			r.Get("/health/ready", cfg.Health.Ready)
		}
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(ratelimit.Middleware(cfg.Limiter, general, deriver, ratelimit.ErrorResponder(errh.RespondError)))
		}

		if cfg.Public != nil {
			r.Group(func(r chi.Router) {
				if cfg.Verifier != nil {
					r.Use(auth.Optional(cfg.Verifier))
				}
				cfg.Public(r)
			})
		}

		if cfg.AuthFlows != nil {
			r.Route("/auth", func(r chi.Router) {
				if cfg.Limiter != nil {
					r.Use(ratelimit.Middleware(cfg.Limiter, authAttempt, deriver, ratelimit.ErrorResponder(errh.RespondError)))
				}
				cfg.AuthFlows(r)
			})
		}

		if cfg.Webhooks != nil {
			r.Route("/webhooks", func(r chi.Router) {
				if cfg.Limiter != nil {
					r.Use(ratelimit.Middleware(cfg.Limiter, webhook, deriver, ratelimit.ErrorResponder(errh.RespondError)))
				}
				cfg.Webhooks(r)
			})
		}

		r.Group(func(r chi.Router) {
			if cfg.Verifier != nil {
				r.Use(auth.Authenticate(cfg.Verifier, auth.ErrorResponder(errh.RespondError)))
			}

			if cfg.Authed != nil {
				cfg.Authed(r)
			}

			if cfg.Costly != nil {
				r.Group(func(r chi.Router) {
					if cfg.Limiter != nil {
						r.Use(ratelimit.Middleware(cfg.Limiter, expensive, deriver, ratelimit.ErrorResponder(errh.RespondError)))
					}
					cfg.Costly(r)
				})
			}

			if cfg.Admin != nil {
				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(auth.ErrorResponder(errh.RespondError), "admin", "owner"))
					cfg.Admin(r)
				})
			}
		})
	})

	r.NotFound(errh.NotFoundHandler())
	r.MethodNotAllowed(errh.MethodNotAllowedHandler())

	return r
}

// enforceOrigin rejects cross-origin requests from origins outside the
// allowlist with an explicit 403 instead of relying on the browser to
// discard the response. Same-origin requests carry no Origin header and
// pass through.
func enforceOrigin(allowed []string, errh *ErrorHandler) func(http.Handler) http.Handler {
	allowAll := false
	allowedSet := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		allowedSet[origin] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll || allowedSet[origin] {
				next.ServeHTTP(w, r)
				return
			}
			errh.RespondError(w, r, apperror.New(apperror.KindOriginForbidden,
				"Origin not allowed"))
		})
	}
}

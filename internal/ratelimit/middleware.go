// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nmoreau/vantage/internal/logging"
	"github.com/nmoreau/vantage/internal/metrics"
)

// ErrorResponder writes an error response through the terminal error handler.
// Injected by the router to avoid a dependency on the api package.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, err error)

// KeyDeriver derives the counter key for a request: the authenticated
// principal ID when present, the client network origin otherwise.
type KeyDeriver struct {
	// TrustedProxies are remote addresses whose X-Forwarded-For /
	// X-Real-IP headers are honored.
	TrustedProxies map[string]bool
}

// NewKeyDeriver builds a deriver trusting the given proxy addresses.
func NewKeyDeriver(trustedProxies []string) *KeyDeriver {
	trusted := make(map[string]bool, len(trustedProxies))
	for _, p := range trustedProxies {
		trusted[p] = true
	}
	return &KeyDeriver{TrustedProxies: trusted}
}

// Key returns "principal:<id>" for authenticated requests, "ip:<addr>"
// otherwise.
func (d *KeyDeriver) Key(r *http.Request) string {
	if id := logging.PrincipalIDFromContext(r.Context()); id != "" {
		return "principal:" + id
	}
	return "ip:" + d.clientIP(r)
}

// clientIP extracts the originating address, honoring forwarding headers
// only from trusted proxies.
func (d *KeyDeriver) clientIP(r *http.Request) string {
	remote := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}

	if len(d.TrustedProxies) > 0 && d.TrustedProxies[remote] {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.IndexByte(xff, ','); idx >= 0 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}
	return remote
}

// Middleware enforces one policy on every request passing through it.
// Standard X-RateLimit-* headers are attached on allow and deny alike;
// denials additionally carry Retry-After and are completed by the injected
// responder. Multiple Middleware instances stack for policy composition.
func Middleware(limiter *Limiter, policy Policy, deriver *KeyDeriver, respond ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := limiter.Check(r.Context(), policy, deriver.Key(r))

			setRateLimitHeaders(w, decision)

			if err != nil {
				metrics.RateLimitDecisions.WithLabelValues(policy.Name, "deny").Inc()
				if retry := time.Until(decision.Reset); retry > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds()+1)))
				}
				respond(w, r, err)
				return
			}

			metrics.RateLimitDecisions.WithLabelValues(policy.Name, "allow").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders attaches the standard limit/remaining/reset headers.
func setRateLimitHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
}

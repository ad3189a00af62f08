package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cokeastorga/paylane/api/responses"
	pkgerrors "github.com/cokeastorga/paylane/pkg/errors"
	"github.com/cokeastorga/paylane/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// WebhookRateLimitPolicy throttles a webhook ingress surface per source IP.
type WebhookRateLimitPolicy struct {
	name    string
	window  time.Duration
	ipLimit int
}

// NewWebhookRateLimitPolicy builds a policy with the supplied window and limit.
func NewWebhookRateLimitPolicy(name string, window time.Duration, ipLimit int) WebhookRateLimitPolicy {
	return WebhookRateLimitPolicy{
		name:    strings.ToLower(strings.TrimSpace(name)),
		window:  window,
		ipLimit: ipLimit,
	}
}

func (p WebhookRateLimitPolicy) enabled() bool {
	return p.window > 0 && p.ipLimit > 0
}

func (p WebhookRateLimitPolicy) key(ip string) string {
	name := p.name
	if name == "" {
		name = "webhook"
	}
	return fmt.Sprintf("rl:webhook:%s:%s", name, ip)
}

// WebhookRateLimit applies a fixed-window per-IP limit. Redis outages fail
// open; provider retries must never be dropped because the cache is down.
func WebhookRateLimit(policy WebhookRateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !policy.enabled() || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if ip == "" {
				next.ServeHTTP(w, r)
				return
			}

			count, err := store.IncrWithTTL(r.Context(), policy.key(ip), policy.window)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "webhook rate limit store unavailable, failing open")
				}
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(policy.ipLimit) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimited, "too many requests").
					WithDetails(map[string]any{"retry_after_seconds": int(policy.window.Seconds())}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

package http

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/adapters/metrics"
	"github.com/ravindran79-arch/smartbid-compliance/pkg/jsonapi"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// NewRateLimitMiddleware throttles requests per client address. It must run
// after middleware.RealIP so proxied clients are keyed by their own address.
// Limiter failures let the request through.
func NewRateLimitMiddleware(limiter ports.RateLimiter, m *metrics.Collector, logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			res, err := limiter.Allow(r.Context(), clientKey(r), now)
			if err != nil {
				logger.Warn().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			for k, v := range res.Headers() {
				w.Header().Set(k, v)
			}
			if !res.Allowed {
				secs := int(res.RetryAfter(now).Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				if m != nil {
					route := r.URL.Path
					if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
						route = rctx.RoutePattern()
					}
					m.RateLimited.WithLabelValues(metrics.NormalizePath(route)).Inc()
				}
				jsonapi.WriteError(w, jsonapi.ErrTooManyRequests("rate limit exceeded, retry later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey strips the port from RemoteAddr when one is present.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

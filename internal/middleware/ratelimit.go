package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/keymint/keymint/internal/metrics"
	"github.com/keymint/keymint/internal/ratelimit"
)

// RateLimitConfig holds configuration for the admission middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter *ratelimit.Limiter
	Metrics metrics.Recorder
	// Window is echoed in the Retry-After header on denial.
	Window time.Duration
}

// RateLimit returns middleware that admits or denies requests per
// client IP using the fixed-window limiter. It runs before the body is
// read, so a denied request costs no lookup or hash work and leaves no
// side effects.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	retryAfter := int(cfg.Window.Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			if !cfg.Limiter.Admit(ip, time.Now()) {
				recorder.IncRateLimited()
				cfg.Logger.Warn("request rate limited",
					slog.String("ip", ip),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many requests"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from the request, preferring proxy
// headers over the socket address.
func ClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP (client IP)
		for i := range xff {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}

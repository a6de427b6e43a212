package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"petpal/internal/platform/logger"
	"petpal/internal/ports/ratelimit"
)

// RateLimit aplica un token bucket por ip + ruta. Si el limiter falla, deja pasar.
func RateLimit(lim ratelimit.Limiter, prefix string, log logger.Logger) func(http.Handler) http.Handler {
	if lim == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if prefix == "" {
		prefix = "rl"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.Join([]string{prefix, "ip", clientIP(r), "route", r.Method + " " + r.URL.Path}, ":")

			d, err := lim.Take(r.Context(), key)
			if err != nil {
				if log != nil {
					log.Warn("rate limiter unavailable", map[string]any{"key": key, "error": err})
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":       "too many requests",
					"retry_after": secs,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP usa RemoteAddr; chi RealIP ya lo reescribe desde X-Forwarded-For.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "unknown"
	}
	return host
}

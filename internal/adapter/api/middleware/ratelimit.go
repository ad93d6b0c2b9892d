package middleware

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/V4T54L/milestone-notifier/internal/adapter/metrics"
)

const rateLimitedBody = `{"status":"error","message":"Too many requests"}`

// RateLimit rejects requests beyond rps (with the given burst) with 429.
// A non-positive rps disables limiting. m may be nil.
func RateLimit(rps float64, burst int, logger *slog.Logger, m *metrics.NotifierMetrics) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.Warn("rate limit exceeded", "remote_addr", r.RemoteAddr, "request_id", RequestID(r.Context()))
				if m != nil {
					m.RequestsTotal.WithLabelValues("rate_limited").Inc()
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(rateLimitedBody))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

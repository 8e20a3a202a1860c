package api

import (
	"net/http"
	"os"
	"strconv"

	"golang.org/x/time/rate"
)

// newLimiterFromEnv builds the shared limiter for mutating endpoints.
// RATE_RPS <= 0 disables limiting.
func newLimiterFromEnv() *rate.Limiter {
	rps := 0.0
	if v := os.Getenv("RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			rps = f
		}
	}
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			burst = n
		}
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// WithRateLimit wraps a handler with the server limiter, answering 429 when
// the budget is exhausted. Reads are never limited.
func (s *Server) WithRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if s.Limiter != nil && !s.Limiter.Allow() {
				writeProblem(w, http.StatusTooManyRequests, "Rate limit exceeded", "try again later", r.URL.Path)
				return
			}
		}
		next(w, r)
	}
}

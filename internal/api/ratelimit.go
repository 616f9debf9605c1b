package api

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BTreeMap/HallBook/internal/models"
)

// RateLimiter throttles requests per client IP. A client that exceeds its
// rate is rejected until its block time has passed.
type RateLimiter struct {
	limiters  map[string]*rate.Limiter
	blocked   map[string]time.Time
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	blockTime time.Duration
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given burst.
func NewRateLimiter(rps float64, burst int, blockTime time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		blocked:   make(map[string]time.Time),
		rps:       rate.Limit(rps),
		burst:     burst,
		blockTime: blockTime,
		now:       time.Now,
	}
}

// Limit wraps next with the per-IP limit.
func (r *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip, _, err := net.SplitHostPort(req.RemoteAddr)
		if err != nil {
			ip = req.RemoteAddr
		}

		if !r.allow(ip) {
			slog.Warn("RateLimiter.Limit: request throttled", "ip", ip, "path", req.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSONResponse(w, http.StatusTooManyRequests, models.Error("Too many requests, please slow down"))
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *RateLimiter) allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if until, found := r.blocked[ip]; found {
		if now.Before(until) {
			return false
		}
		delete(r.blocked, ip)
	}

	limiter, exists := r.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(r.rps, r.burst)
		r.limiters[ip] = limiter
	}
	if !limiter.AllowN(now, 1) {
		if r.blockTime > 0 {
			r.blocked[ip] = now.Add(r.blockTime)
		}
		return false
	}
	return true
}

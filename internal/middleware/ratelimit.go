package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig carries the GRID_RATE_LIMIT_RPS and GRID_RATE_LIMIT_BURST
// settings. Burst headroom matters for the grid API: a single page flip fans
// out into row, count, and facet requests that arrive nearly at once.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained per-client rate.
	RequestsPerSecond float64
	// Burst is the number of requests a client may issue at once.
	Burst int
}

const (
	sweepEvery = 5 * time.Minute
	staleAfter = 10 * time.Minute
)

// limiterPool holds one token bucket per client IP.
type limiterPool struct {
	cfg RateLimitConfig

	mu      sync.Mutex
	clients map[string]*clientEntry
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(cfg RateLimitConfig) *limiterPool {
	return &limiterPool{cfg: cfg, clients: make(map[string]*clientEntry)}
}

func (p *limiterPool) get(ip string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.clients[ip]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}
	e := &clientEntry{
		limiter:  rate.NewLimiter(rate.Limit(p.cfg.RequestsPerSecond), p.cfg.Burst),
		lastSeen: time.Now(),
	}
	p.clients[ip] = e
	return e.limiter
}

// sweep drops buckets idle since before cutoff so one-off clients do not
// accumulate.
func (p *limiterPool) sweep(cutoff time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ip, e := range p.clients {
		if e.lastSeen.Before(cutoff) {
			delete(p.clients, ip)
		}
	}
}

// RateLimiter enforces a per-client token bucket over the grid API. Rejected
// requests get 429 with the API's error body and a Retry-After hint.
func RateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	pool := newLimiterPool(cfg)
	go func() {
		for {
			time.Sleep(sweepEvery)
			pool.sweep(time.Now().Add(-staleAfter))
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := pool.get(clientIP(r))

			res := limiter.Reserve()
			if !res.OK() {
				rejectRateLimited(w, 0)
				return
			}
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				rejectRateLimited(w, int(delay.Seconds())+1)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keys the bucket by RemoteAddr only. X-Forwarded-For is
// client-controlled and would let a caller mint a fresh bucket per request.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func rejectRateLimited(w http.ResponseWriter, retryAfterSecs int) {
	if retryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
}

// Package ratelimit provides a per-client token-bucket limiter for the
// HTTP API.
package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds limiter configuration.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	// Idle clients are forgotten after this long.
	ClientTTL time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{RequestsPerSecond: 10, Burst: 30, ClientTTL: 10 * time.Minute}
}

// Limiter rate-limits requests per client IP using token buckets.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	cfg     Config
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter and starts its cleanup loop.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.ClientTTL <= 0 {
		cfg.ClientTTL = 10 * time.Minute
	}
	l := &Limiter{clients: make(map[string]*client), cfg: cfg}
	go l.cleanup()
	return l
}

// Allow reports whether a request from ip may proceed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

// Middleware rejects over-limit requests with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.Allow(ip) {
			slog.Warn("rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.cfg.ClientTTL)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-l.cfg.ClientTTL)
		for ip, c := range l.clients {
			if c.lastSeen.Before(cutoff) {
				delete(l.clients, ip)
			}
		}
		l.mu.Unlock()
	}
}

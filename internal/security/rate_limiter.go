package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/raaihank/anonimizador/internal/config"
)

// RateLimiter applies a token bucket per client IP
type RateLimiter struct {
	config  *config.SecurityConfig
	clients map[string]*clientLimiter
	mu      sync.RWMutex
	now     func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.SecurityConfig) *RateLimiter {
	return &RateLimiter{
		config:  cfg,
		clients: make(map[string]*clientLimiter),
		now:     time.Now,
	}
}

// Allow checks if a request from the given client IP is allowed
func (r *RateLimiter) Allow(clientIP string) bool {
	if !r.config.RateLimit.Enabled || r.config.RateLimit.RequestsPerMin <= 0 {
		return true
	}

	client := r.getClient(clientIP)
	now := r.now()

	client.mu.Lock()
	client.lastSeen = now
	client.mu.Unlock()

	return client.limiter.AllowN(now, 1)
}

// Tokens returns the tokens left for a client IP, or -1 when it is unknown
func (r *RateLimiter) Tokens(clientIP string) float64 {
	r.mu.RLock()
	client, exists := r.clients[clientIP]
	r.mu.RUnlock()

	if !exists {
		return -1
	}
	return client.limiter.TokensAt(r.now())
}

func (r *RateLimiter) getClient(clientIP string) *clientLimiter {
	r.mu.RLock()
	client, exists := r.clients[clientIP]
	r.mu.RUnlock()

	if exists {
		return client
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if client, exists := r.clients[clientIP]; exists {
		return client
	}

	perMin := r.config.RateLimit.RequestsPerMin
	burst := r.config.RateLimit.Burst
	if burst <= 0 {
		burst = perMin
	}

	client = &clientLimiter{
		limiter:  rate.NewLimiter(rate.Limit(float64(perMin)/60.0), burst),
		lastSeen: r.now(),
	}
	r.clients[clientIP] = client
	return client
}

// Len returns the number of tracked clients
func (r *RateLimiter) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CleanupIdle forgets clients not seen for longer than idle
func (r *RateLimiter) CleanupIdle(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0

	for ip, client := range r.clients {
		client.mu.Lock()
		if client.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
			removed++
		}
		client.mu.Unlock()
	}
	return removed
}

// StartCleanupRoutine periodically drops idle clients until stop is closed
func (r *RateLimiter) StartCleanupRoutine(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.CleanupIdle(time.Hour)
			case <-stop:
				return
			}
		}
	}()
}

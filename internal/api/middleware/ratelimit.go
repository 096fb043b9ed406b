package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// maxTrackedClients bounds the limiter's memory; the least recently seen client is dropped first.
const maxTrackedClients = 10000

// RateLimiter implements a simple in-memory fixed window rate limiter
// For production, consider using Redis or a distributed rate limiter
type RateLimiter struct {
	clients  *lru.Cache[string, *clientLimit]
	now      func() time.Time
	done     chan struct{}
	requests int
	window   time.Duration
	mu       sync.Mutex
	stopOnce sync.Once
}

type clientLimit struct {
	resetTime time.Time
	count     int
}

// NewRateLimiter creates a new rate limiter
// requests: maximum number of requests allowed per window
// window: time window duration (e.g., 1 minute)
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	clients, err := lru.New[string, *clientLimit](maxTrackedClients)
	if err != nil {
		// Only fails for a non-positive size.
		panic(err)
	}

	rl := &RateLimiter{
		clients:  clients,
		requests: requests,
		window:   window,
		now:      func() time.Time { return time.Now().UTC() },
		done:     make(chan struct{}),
	}

	// Cleanup old entries every window duration
	go rl.cleanup()

	return rl
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Middleware returns a rate limiting middleware
// Authenticated viewers are limited per user id, anonymous ones per client IP,
// so it must run after SessionMiddleware.LoadSession.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientKey(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if id, ok := GetSession(r).CurrentUserID(); ok {
		return "user:" + id
	}
	return "ip:" + getClientIP(r)
}

// allow checks if a client is allowed to make a request
func (rl *RateLimiter) allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	client, exists := rl.clients.Get(clientID)
	if !exists {
		rl.clients.Add(clientID, &clientLimit{
			count:     1,
			resetTime: now.Add(rl.window),
		})
		return true
	}

	// Check if window has expired
	if now.After(client.resetTime) {
		client.count = 1
		client.resetTime = now.Add(rl.window)
		return true
	}

	if client.count < rl.requests {
		client.count++
		return true
	}

	return false
}

// cleanup removes expired client entries periodically
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.evictExpired()
		}
	}
}

func (rl *RateLimiter) evictExpired() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for _, clientID := range rl.clients.Keys() {
		if client, ok := rl.clients.Peek(clientID); ok && now.After(client.resetTime) {
			rl.clients.Remove(clientID)
		}
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (if behind proxy); the first entry is the client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

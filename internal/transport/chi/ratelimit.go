package chi

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	gen "github.com/kailas-cloud/filmrag/internal/transport/generated"
)

// limitedPaths are throttled per client; other routes pass through.
var limitedPaths = map[string]struct{}{
	"/rag/search": {},
}

// RateLimit sizes the per-client token buckets.
type RateLimit struct {
	RequestsPerMinute int
	Burst             int
	MaxClients        int
}

// RateLimitMiddleware gives every client address a token bucket refilled at
// RequestsPerMinute with room for Burst. Requests over budget get 429.
func RateLimitMiddleware(cfg RateLimit) (func(http.Handler) http.Handler, error) {
	if cfg.RequestsPerMinute <= 0 || cfg.Burst <= 0 {
		return nil, fmt.Errorf("rate limit needs positive rate and burst, got %d/min burst %d",
			cfg.RequestsPerMinute, cfg.Burst)
	}
	clients, err := lru.New[string, *rate.Limiter](cfg.MaxClients)
	if err != nil {
		return nil, fmt.Errorf("rate limit clients: %w", err)
	}

	refill := rate.Limit(float64(cfg.RequestsPerMinute) / time.Minute.Seconds())
	retryAfter := strconv.Itoa(int(math.Ceil(time.Minute.Seconds() / float64(cfg.RequestsPerMinute))))

	var mu sync.Mutex
	limiterFor := func(client string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := clients.Get(client); ok {
			return l
		}
		l := rate.NewLimiter(refill, cfg.Burst)
		clients.Add(client, l)
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := limitedPaths[r.URL.Path]; !ok {
				next.ServeHTTP(w, r)
				return
			}
			if !limiterFor(clientAddr(r)).Allow() {
				w.Header().Set("Retry-After", retryAfter)
				writeError(w, http.StatusTooManyRequests, gen.ErrorResponseCodeRateLimited, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// clientAddr is the remote host without its port.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

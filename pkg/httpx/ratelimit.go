package httpx

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/storefront/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// DefaultClientLimit keeps a busy page (many calls fired at once) from
// tripping the server's own limiter. 10 req/s with a burst of 20.
var DefaultClientLimit = RateLimitConfig{
	RequestsPerWindow: 10,
	Window:            time.Second,
	Burst:             20,
}

// KeyExtractor groups outbound requests for rate limiting.
type KeyExtractor func(*http.Request) string

// HostKeyExtractor limits per destination host.
func HostKeyExtractor(r *http.Request) string {
	return r.URL.Host
}

// rateLimiter manages rate limiters for different keys
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// getLimiter retrieves or creates a rate limiter for the given key
func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return actual.(*rate.Limiter)
}

// RateLimit delays outbound requests so each key stays within config. Unlike
// the server-side flavour it never rejects, it waits for a token or until
// the request context is done.
func RateLimit(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	if config.RequestsPerWindow <= 0 || config.Window <= 0 {
		return nil // Chain skips nil middlewares
	}

	ratePerSecond := float64(config.RequestsPerWindow) / config.Window.Seconds()
	rl := &rateLimiter{
		rate:  rate.Limit(ratePerSecond),
		burst: max(config.Burst, 1),
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			limiter := rl.getLimiter(keyExtractor(r))

			if !limiter.Allow() {
				slogx.FromContext(r.Context()).Debug("rate limit: waiting for slot",
					"host", r.URL.Host,
					"path", r.URL.Path,
				)
				if err := limiter.Wait(r.Context()); err != nil {
					return nil, fmt.Errorf("rate limit: %w", err)
				}
			}

			return next.RoundTrip(r)
		})
	}
}

package observability

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RequestRateLimiter throttles requests per client IP inside a sliding
// window. It sits in front of the whole mux except the skipped path
// prefixes (static assets and the admin page).
type RequestRateLimiter struct {
	mu           sync.Mutex
	maxHits      int
	window       time.Duration
	hitsByIP     map[string][]time.Time
	maxMemory    int
	skipPrefixes []string
}

func NewRequestRateLimiter(maxHits int, window time.Duration, skipPrefixes ...string) *RequestRateLimiter {
	if maxHits <= 0 {
		maxHits = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	return &RequestRateLimiter{
		maxHits:      maxHits,
		window:       window,
		hitsByIP:     make(map[string][]time.Time),
		maxMemory:    5000,
		skipPrefixes: skipPrefixes,
	}
}

func (l *RequestRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range l.skipPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		allowed, retryAfter := l.allow(clientIP(r), time.Now().UTC())
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests, please try again later"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RequestRateLimiter) allow(ip string, now time.Time) (bool, time.Duration) {
	threshold := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.hitsByIP[ip]
	filtered := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			filtered = append(filtered, hit)
		}
	}

	if len(filtered) >= l.maxHits {
		retryAfter := filtered[0].Add(l.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		l.hitsByIP[ip] = filtered
		return false, retryAfter
	}

	filtered = append(filtered, now)
	l.hitsByIP[ip] = filtered

	if len(l.hitsByIP) > l.maxMemory {
		for key, value := range l.hitsByIP {
			if len(value) == 0 || value[len(value)-1].Before(threshold) {
				delete(l.hitsByIP, key)
			}
		}
	}

	return true, 0
}

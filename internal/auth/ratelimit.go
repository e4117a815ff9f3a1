package auth

import (
	"fmt"
	"sync"
	"time"
)

const (
	defaultMaxAttempts   = 5
	defaultAttemptWindow = 15 * time.Minute
	limiterKeyWatermark  = 5000
)

// RateLimitedError is returned when a key has exhausted its failed-attempt
// budget inside the current window.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many login attempts, please try again in %d minutes", e.RetryAfterMinutes())
}

// RetryAfterMinutes rounds the wait up to whole minutes, never below one.
func (e *RateLimitedError) RetryAfterMinutes() int {
	minutes := int((e.RetryAfter + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// LoginRateLimiter counts failed login attempts per (username, client IP)
// key inside a sliding window. Entries older than the window are purged
// lazily on access; once the map grows past a watermark, stale keys are
// swept as a whole. State is process-local, so behind multiple instances
// the limit holds per instance only.
type LoginRateLimiter struct {
	mu            sync.Mutex
	maxAttempts   int
	window        time.Duration
	attemptsByKey map[string][]time.Time
	maxKeys       int
	now           func() time.Time
}

func NewLoginRateLimiter(maxAttempts int, window time.Duration) *LoginRateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultAttemptWindow
	}

	return &LoginRateLimiter{
		maxAttempts:   maxAttempts,
		window:        window,
		attemptsByKey: make(map[string][]time.Time),
		maxKeys:       limiterKeyWatermark,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the limiter's time source. Tests use this to move
// through the window without sleeping.
func (l *LoginRateLimiter) WithClock(now func() time.Time) *LoginRateLimiter {
	l.now = now
	return l
}

// CheckAllowed purges stale entries for the key and fails with
// *RateLimitedError when the remaining count has reached the limit. A
// blocked attempt is not recorded.
func (l *LoginRateLimiter) CheckAllowed(username, clientIP string) error {
	key := limiterKey(username, clientIP)
	now := l.now()
	threshold := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := keepRecent(l.attemptsByKey[key], threshold)
	if len(kept) == 0 {
		delete(l.attemptsByKey, key)
	} else {
		l.attemptsByKey[key] = kept
	}

	if len(kept) >= l.maxAttempts {
		return &RateLimitedError{RetryAfter: kept[0].Add(l.window).Sub(now)}
	}

	return nil
}

// RecordFailure appends a failed attempt for the key.
func (l *LoginRateLimiter) RecordFailure(username, clientIP string) {
	key := limiterKey(username, clientIP)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.attemptsByKey[key] = append(l.attemptsByKey[key], now)

	if len(l.attemptsByKey) > l.maxKeys {
		threshold := now.Add(-l.window)
		for key, attempts := range l.attemptsByKey {
			if len(attempts) == 0 || attempts[len(attempts)-1].Before(threshold) {
				delete(l.attemptsByKey, key)
			}
		}
	}
}

// ClearOnSuccess drops the key entirely after a successful login.
func (l *LoginRateLimiter) ClearOnSuccess(username, clientIP string) {
	key := limiterKey(username, clientIP)

	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.attemptsByKey, key)
}

func limiterKey(username, clientIP string) string {
	return username + ":" + clientIP
}

func keepRecent(attempts []time.Time, threshold time.Time) []time.Time {
	kept := make([]time.Time, 0, len(attempts))
	for _, attempt := range attempts {
		if attempt.After(threshold) {
			kept = append(kept, attempt)
		}
	}
	return kept
}

package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// EmailRateLimiter throttles magic-link issuance per email address, so a
// stuck form cannot flood an inbox. Entries idle for an hour are dropped.
type EmailRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*emailLimiter
	limit    rate.Limit
	burst    int
	stopCh   chan struct{}
}

type emailLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewEmailRateLimiter allows burst requests immediately and then one per
// interval, per email.
func NewEmailRateLimiter(interval time.Duration, burst int) *EmailRateLimiter {
	rl := &EmailRateLimiter{
		limiters: make(map[string]*emailLimiter),
		limit:    rate.Every(interval),
		burst:    burst,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *EmailRateLimiter) Allow(email string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limiters[email]
	if !ok {
		entry = &emailLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[email] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

func (rl *EmailRateLimiter) Stop() {
	close(rl.stopCh)
}

func (rl *EmailRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-time.Hour)
			rl.mu.Lock()
			for email, entry := range rl.limiters {
				if entry.lastAccess.Before(cutoff) {
					delete(rl.limiters, email)
				}
			}
			rl.mu.Unlock()
		}
	}
}

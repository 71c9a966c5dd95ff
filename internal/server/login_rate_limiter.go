package server

import (
	"sync"
	"time"
)

// loginRateLimiter blocks a key after maxFailures failed logins inside window.
type loginRateLimiter struct {
	mu            sync.Mutex
	entries       map[string]loginRateLimitEntry
	maxFailures   int
	window        time.Duration
	blockedFor    time.Duration
	staleAfter    time.Duration
	opCount       int
	cleanupEveryN int
}

type loginRateLimitEntry struct {
	failures       int
	firstFailureAt time.Time
	blockedUntil   time.Time
	lastSeenAt     time.Time
}

func newLoginRateLimiter(maxFailures int, window, blockedFor time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockedFor <= 0 {
		return nil
	}
	staleAfter := 2 * max(window, blockedFor)
	if staleAfter < 10*time.Minute {
		staleAfter = 10 * time.Minute
	}
	return &loginRateLimiter{
		entries:       make(map[string]loginRateLimitEntry),
		maxFailures:   maxFailures,
		window:        window,
		blockedFor:    blockedFor,
		staleAfter:    staleAfter,
		cleanupEveryN: 64,
	}
}

// Allow reports whether key may attempt a login and, when it may not, how
// long the block still lasts.
func (l *loginRateLimiter) Allow(key string, now time.Time) (bool, time.Duration) {
	if l == nil || key == "" {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.maybeCleanupLocked(now)

	entry := l.entries[key]
	entry.lastSeenAt = now
	if now.Before(entry.blockedUntil) {
		l.entries[key] = entry
		return false, entry.blockedUntil.Sub(now)
	}

	entry.blockedUntil = time.Time{}
	if !entry.firstFailureAt.IsZero() && now.Sub(entry.firstFailureAt) > l.window {
		entry.failures = 0
		entry.firstFailureAt = time.Time{}
	}
	l.entries[key] = entry
	return true, 0
}

func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.maybeCleanupLocked(now)

	entry := l.entries[key]
	if entry.firstFailureAt.IsZero() || now.Sub(entry.firstFailureAt) > l.window {
		entry.failures = 0
		entry.firstFailureAt = now
	}
	entry.failures++
	if entry.failures >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockedFor)
		entry.failures = 0
		entry.firstFailureAt = time.Time{}
	}
	entry.lastSeenAt = now
	l.entries[key] = entry
}

func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *loginRateLimiter) maybeCleanupLocked(now time.Time) {
	l.opCount++
	if l.opCount%l.cleanupEveryN != 0 {
		return
	}
	for key, entry := range l.entries {
		if entry.lastSeenAt.IsZero() || now.Sub(entry.lastSeenAt) > l.staleAfter {
			delete(l.entries, key)
		}
	}
}

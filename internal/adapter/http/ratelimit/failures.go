package ratelimit

import (
	"sync"
	"time"
)

type failureRecord struct {
	count        int
	lastFailure  time.Time
	blockedUntil time.Time
}

// FailureLimiter blocks a client after too many failed authentication
// attempts within a window. Successful requests are not counted.
type FailureLimiter struct {
	mu          sync.Mutex
	records     map[string]*failureRecord
	maxFailures int
	window      time.Duration
	block       time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

func NewFailureLimiter(maxFailures int, window, block time.Duration) *FailureLimiter {
	l := &FailureLimiter{
		records:     make(map[string]*failureRecord),
		maxFailures: maxFailures,
		window:      window,
		block:       block,
		stop:        make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Blocked reports whether clientID is currently blocked and for how long.
func (l *FailureLimiter) Blocked(clientID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[clientID]
	if !ok {
		return false, 0
	}
	if remaining := time.Until(rec.blockedUntil); remaining > 0 {
		return true, remaining
	}
	return false, 0
}

// Fail records a failed attempt and reports whether it caused a block.
func (l *FailureLimiter) Fail(clientID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	rec, ok := l.records[clientID]
	if !ok {
		rec = &failureRecord{}
		l.records[clientID] = rec
	}
	if now.Sub(rec.lastFailure) > l.window {
		rec.count = 0
	}
	rec.count++
	rec.lastFailure = now

	if rec.count >= l.maxFailures {
		rec.blockedUntil = now.Add(l.block)
		rec.count = 0
		return true, l.block
	}
	return false, 0
}

func (l *FailureLimiter) Reset(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, clientID)
}

// Close stops the background cleanup.
func (l *FailureLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *FailureLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.prune(now)
		}
	}
}

func (l *FailureLimiter) prune(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, rec := range l.records {
		if now.Sub(rec.lastFailure) > l.window*2 && now.After(rec.blockedUntil) {
			delete(l.records, id)
		}
	}
}

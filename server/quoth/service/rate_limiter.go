package service

import (
	"sync"
	"time"
)

// RetryLimiter tracks the shared next-allowed-attempt deadline for a
// throttled remote service. Every embedding call in the process waits behind
// the same deadline, so a burst of concurrent ingestion tasks cannot turn one
// throttle response into a retry storm.
type RetryLimiter struct {
	mu    sync.Mutex
	later time.Time
}

func NewRetryLimiter() *RetryLimiter {
	return &RetryLimiter{}
}

// Delay reports how long a caller must wait before its next attempt.
func (l *RetryLimiter) Delay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := time.Until(l.later)
	if d < 0 {
		return 0
	}
	return d
}

// RecordThrottle moves the deadline to now+delay unless a later deadline is
// already pending. The deadline never moves earlier.
func (l *RetryLimiter) RecordThrottle(delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	candidate := time.Now().Add(delay)
	if candidate.After(l.later) {
		l.later = candidate
	}
}

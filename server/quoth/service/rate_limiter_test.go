package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryLimiterDelayStartsAtZero(t *testing.T) {
	limiter := NewRetryLimiter()
	assert.Equal(t, time.Duration(0), limiter.Delay())
}

func TestRetryLimiterRecordsDeadline(t *testing.T) {
	limiter := NewRetryLimiter()
	limiter.RecordThrottle(time.Minute)

	d := limiter.Delay()
	assert.Greater(t, d, 50*time.Second)
	assert.LessOrEqual(t, d, time.Minute)
}

func TestRetryLimiterDeadlineNeverMovesEarlier(t *testing.T) {
	limiter := NewRetryLimiter()
	limiter.RecordThrottle(time.Hour)
	limiter.RecordThrottle(time.Second)

	assert.Greater(t, limiter.Delay(), 59*time.Minute)
}

func TestRetryLimiterSharedAcrossGoroutines(t *testing.T) {
	limiter := NewRetryLimiter()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			limiter.RecordThrottle(time.Minute)
			limiter.Delay()
		}()
	}
	wg.Wait()

	assert.Greater(t, limiter.Delay(), 50*time.Second)
}

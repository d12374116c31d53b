package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/keeeal/quoth/server/common/log"
	"github.com/keeeal/quoth/server/quoth/domain"
)

const (
	defaultRateLimitDelay = time.Hour
	defaultLoadingDelay   = 10 * time.Second
)

// retryLater classifies a transient inference failure: rate limiting or a
// model cold start. It never escapes Embed.
type retryLater struct {
	reason string
	delay  time.Duration
}

func (e *retryLater) Error() string {
	return fmt.Sprintf("%s (retry in %s)", e.reason, e.delay)
}

// EmbeddingClient calls a hosted text-embedding model. Transient failures
// are retried behind the shared RetryLimiter deadline; anything else is
// terminal for the current request.
type EmbeddingClient struct {
	url     string
	token   string
	ndim    int
	limiter *RetryLimiter
	client  *http.Client

	rateLimitDelay time.Duration
	loadingDelay   time.Duration
}

func NewEmbeddingClient(endpoint, model, token string, ndim int, limiter *RetryLimiter) *EmbeddingClient {
	return &EmbeddingClient{
		url:            strings.TrimRight(strings.TrimSpace(endpoint), "/") + "/models/" + strings.TrimSpace(model),
		token:          token,
		ndim:           ndim,
		limiter:        limiter,
		client:         &http.Client{Timeout: 30 * time.Second},
		rateLimitDelay: defaultRateLimitDelay,
		loadingDelay:   defaultLoadingDelay,
	}
}

// Embed posts text to the inference endpoint and retries until it gets a
// terminal answer or ctx is done. Each attempt first sleeps out the shared
// deadline, so concurrent callers all queue behind one throttle.
func (e *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	for attempt := 0; ; attempt++ {
		if err := e.wait(ctx); err != nil {
			return nil, err
		}
		vector, err := e.query(ctx, text)
		var retry *retryLater
		if errors.As(err, &retry) {
			e.limiter.RecordThrottle(retry.delay)
			log.Warnf("%s - retrying in %.2f seconds (attempt=%d)", retry.reason, e.limiter.Delay().Seconds(), attempt)
			continue
		}
		return vector, err
	}
}

func (e *EmbeddingClient) wait(ctx context.Context) error {
	d := e.limiter.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *EmbeddingClient) query(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(text)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var vector []float32
		if err := json.Unmarshal(raw, &vector); err != nil {
			return nil, fmt.Errorf("%w: expected a flat numeric vector", domain.ErrMalformedEmbedding)
		}
		if len(vector) != e.ndim {
			return nil, fmt.Errorf("%w: got %d values, want %d", domain.ErrMalformedEmbedding, len(vector), e.ndim)
		}
		return vector, nil
	case http.StatusTooManyRequests:
		return nil, &retryLater{
			reason: errorField(raw, "Rate limit reached"),
			delay:  e.rateLimitDelay,
		}
	case http.StatusServiceUnavailable:
		return nil, &retryLater{
			reason: errorField(raw, "Model is currently loading"),
			delay:  e.estimatedDelay(raw),
		}
	default:
		return nil, fmt.Errorf("embedding status %d (%s)", resp.StatusCode, errorField(raw, "no error message provided"))
	}
}

type inferenceError struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// errorField pulls the server's error message out of a throttle/failure
// body; non-object bodies fall back to the default.
func errorField(raw []byte, fallback string) string {
	var parsed inferenceError
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Error == "" {
		return fallback
	}
	return parsed.Error
}

func (e *EmbeddingClient) estimatedDelay(raw []byte) time.Duration {
	var parsed inferenceError
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.EstimatedTime <= 0 {
		return e.loadingDelay
	}
	return time.Duration(parsed.EstimatedTime * float64(time.Second))
}

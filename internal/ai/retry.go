package ai

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// IsTransient reports whether an embedding failure is worth retrying.
// Rate limits, provider 5xx and network timeouts are transient; missing
// credentials and 4xx rejections are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code == http.StatusTooManyRequests {
			return true
		}
		return statusErr.Code >= http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// backoffDelay returns baseDelay * 2^attempt with up to 50% jitter added.
func backoffDelay(baseDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

// retryEmbed runs op until it succeeds, fails non-transiently or exhausts
// maxAttempts. The sleep between attempts honors ctx cancellation.
func retryEmbed(ctx context.Context, op func() ([]float32, error), maxAttempts int, baseDelay time.Duration) ([]float32, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		res, err := op()
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == maxAttempts-1 {
			break
		}
		timer := time.NewTimer(backoffDelay(baseDelay, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

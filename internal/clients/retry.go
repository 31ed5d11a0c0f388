package clients

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"carbonstream/internal/models"
)

// FetchFunc is one upstream request attempt, bounded by its context deadline.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Retrier reruns a FetchFunc on transport failure with exponential backoff.
// Any other error class returns immediately.
type Retrier struct {
	maxAttempts    int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	logger         *zap.Logger
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewRetrier builds a retrier. maxAttempts counts the initial attempt;
// the wait before retry n is baseDelay doubled n-1 times.
func NewRetrier(maxAttempts int, baseDelay, attemptTimeout time.Duration, logger *zap.Logger) *Retrier {
	return &Retrier{
		maxAttempts:    maxAttempts,
		baseDelay:      baseDelay,
		attemptTimeout: attemptTimeout,
		logger:         logger.Named("fetcher"),
		sleep:          sleepContext,
	}
}

// Do runs op until it succeeds or attempts are exhausted, backing off before
// each retry but never before the first attempt. On exhaustion the last
// transport error is returned.
func (r *Retrier) Do(ctx context.Context, endpoint string, op FetchFunc) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			wait := r.baseDelay << (attempt - 2)
			r.logger.Warn("retrying after transport failure",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr))
			if err := r.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		body, err := op(attemptCtx)
		cancel()
		if err == nil {
			return body, nil
		}

		var transport *models.TransportError
		if !errors.As(err, &transport) {
			return nil, err
		}
		lastErr = err
		r.logger.Warn("fetch attempt failed",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

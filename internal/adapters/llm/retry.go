package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultBackoff = time.Second

// Retrying wraps a Completer with a client-side rate limit and exponential
// backoff between attempts. The backoff doubles per attempt; a rate-limited
// attempt waits twice the current step. Context cancellation stops both waits.
type Retrying struct {
	next    Completer
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	log     logrus.FieldLogger
}

// NewRetrying wraps next. RequestsPerS <= 0 means no limit.
func NewRetrying(next Completer, opts Options, log logrus.FieldLogger) *Retrying {
	limit := rate.Inf
	if opts.RequestsPerS > 0 {
		limit = rate.Limit(opts.RequestsPerS)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return &Retrying{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		retries: retries,
		backoff: backoff,
		log:     log,
	}
}

// Complete calls the wrapped completer up to 1+retries times.
func (r *Retrying) Complete(ctx context.Context, system, user string) (string, error) {
	var lastErr error
	wait := r.backoff
	for attempt := 1; attempt <= r.retries+1; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
		text, err := r.next.Complete(ctx, system, user)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", err
		}
		if attempt > r.retries {
			break
		}
		delay := wait
		if errors.Is(err, ErrRateLimited) {
			delay *= 2
		}
		r.log.WithFields(logrus.Fields{"attempt": attempt, "wait": delay, "error": err}).Warn("classifier call failed, retrying")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		wait *= 2
	}
	return "", fmt.Errorf("after %d attempts: %w", r.retries+1, lastErr)
}

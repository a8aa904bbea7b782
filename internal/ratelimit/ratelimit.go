// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with convenience methods.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a new rate limiter.
// requestsPerMinute specifies how many requests are allowed per minute.
func New(requestsPerMinute int) *Limiter {
	rps := float64(requestsPerMinute) / 60.0
	burst := requestsPerMinute / 10 // Allow burst of 10% of rate limit
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Every creates a limiter that admits one event per interval with no burst.
// The first event is admitted immediately.
func Every(interval time.Duration) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// PollFunc is one polling attempt. It returns done=true to stop polling.
type PollFunc func(ctx context.Context) (done bool, err error)

// Poll calls fn at the limiter's pace until fn reports done, fn fails, or
// ctx ends. The context error is returned when ctx ends first.
func (l *Limiter) Poll(ctx context.Context, fn PollFunc) error {
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			// Wait also fails when the deadline is closer than the next token.
			<-ctx.Done()
			return ctx.Err()
		}
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

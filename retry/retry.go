// Package retry repeats a failing action a fixed amount of times
// with the same delay between the attempts.
//
// Every failure is treated as transient. After the last attempt
// the last failure is returned as is.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Notify is called after the failed attempt that will be retried.
// The attempt counts from 1, next is the delay before the next attempt.
type Notify func(err error, attempt int, next time.Duration)

// Do runs the action up to attempts times. Values below 1 mean a single attempt.
// There is no delay after the last attempt.
//
// If the context is cancelled while waiting, the context error is returned.
func Do(ctx context.Context, attempts int, delay time.Duration, notify Notify, action func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	operation := func() error {
		attempt++
		return action(ctx)
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, next time.Duration) {
			notify(err, attempt, next)
		}
	}

	return backoff.RetryNotify(operation, policy, onRetry)
}

// DoWithData is Do for the actions returning a value.
// On failure the zero value is returned.
func DoWithData[T any](ctx context.Context, attempts int, delay time.Duration, notify Notify, action func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, attempts, delay, notify, func(ctx context.Context) error {
		value, err := action(ctx)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

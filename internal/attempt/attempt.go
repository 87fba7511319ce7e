// Package attempt provides the bounded-retry combinator every external call
// in the pipeline goes through.
package attempt

import (
	"context"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// Options tunes a retried call. The zero value retries immediately with no
// logging.
type Options struct {
	// Delay between attempts. Zero means retry immediately.
	Delay time.Duration
	// Logger receives a Warn line per failed attempt.
	Logger *slog.Logger
	// Op names the operation in log lines.
	Op string
}

// Permanent wraps err so that Do stops retrying and returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return retry.Unrecoverable(err)
}

// Do calls fn up to n times until it succeeds. The error from the last attempt
// is returned when every attempt fails. n < 1 is treated as 1.
func Do[T any](ctx context.Context, n int, fn func(ctx context.Context) (T, error), opts ...Options) (T, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if n < 1 {
		n = 1
	}

	retryOpts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(n)),
		retry.LastErrorOnly(true),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(o.Delay),
	}
	if o.Logger != nil {
		retryOpts = append(retryOpts, retry.OnRetry(func(i uint, err error) {
			o.Logger.Warn("attempt failed", "op", o.Op, "attempt", i+1, "of", n, "error", err)
		}))
	}

	v, err := retry.DoWithData(func() (T, error) {
		return fn(ctx)
	}, retryOpts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned by Call when every attempt failed. Callers
// treat it as "insufficient data" and substitute the stage's documented
// default output; it never escapes a stage boundary.
var ErrExhausted = errors.New("pipeline: all attempts exhausted")

// RetryOptions governs one resilient call. Sleep is injectable for
// tests; nil falls back to a context-aware time.Sleep.
type RetryOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Sleep          func(context.Context, time.Duration)
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	if o.Sleep == nil {
		o.Sleep = sleepCtx
	}
	return o
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Call runs fn up to MaxAttempts times. The first attempt uses the
// primary configuration; every later attempt uses the fallback when one
// is provided. A structural validator rejects well-formed transport
// responses that are semantically unusable, feeding them back into the
// retry loop. Backoff doubles per attempt starting from InitialBackoff.
//
// On success the validated value is returned. On exhaustion the zero
// value is returned together with ErrExhausted wrapping the last
// failure.
func Call[C, T any](ctx context.Context, opts RetryOptions, primary C, fallback *C, fn func(context.Context, C) (T, error), validate func(T) error) (T, error) {
	opts = opts.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		cfg := primary
		if attempt > 1 && fallback != nil {
			cfg = *fallback
		}
		if attempt > 1 {
			opts.Sleep(ctx, opts.InitialBackoff*(1<<(attempt-2)))
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
		}

		out, err := fn(ctx, cfg)
		if err == nil && validate != nil {
			err = validate(out)
		}
		if err == nil {
			return out, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return zero, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// Package retry implements the bounded exponential backoff shared by the
// time-series store adapter and the event bus adapter, per spec.md §7 and
// §9 ("an explicit for attempt in 0..max_retries loop with typed outcomes").
package retry

import (
	"context"
	"time"
)

// Outcome classifies how a retried call ended.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeExhausted
)

// Do calls fn up to maxAttempts times, sleeping 2^attempt seconds between
// attempts (attempt starting at 0), matching the Python original's
// TimestreamClient/EventBridgeClient retry loops. It returns OutcomeOK on
// the first success, or OutcomeExhausted with the last error once
// maxAttempts is reached. ctx cancellation aborts the wait immediately.
func Do(ctx context.Context, maxAttempts int, fn func(attempt int) error) (Outcome, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := fn(attempt); err == nil {
			return OutcomeOK, nil
		} else {
			lastErr = err
		}

		if attempt == maxAttempts-1 {
			break
		}

		wait := time.Duration(1<<uint(attempt)) * time.Second
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return OutcomeExhausted, ctx.Err()
		}
	}
	return OutcomeExhausted, lastErr
}

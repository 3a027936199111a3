package util

import (
	"context"
	"time"
)

// Retry runs fn until it succeeds, making up to maxAttempts calls with a
// doubling delay between them that starts at baseDelay. It returns the last
// error when every attempt fails, or ctx.Err() when the context is cancelled
// during a backoff wait.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	delay := baseDelay
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

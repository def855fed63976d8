package httpx

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Retry runs fn up to attempts times with exponential backoff between tries.
// Transient provider failures (timeouts, rate limits) are the expected error
// class here; a persistent failure exhausts the ceiling and is returned so the
// caller downgrades it to a per-item skip, never a whole-batch abort.
func Retry(ctx context.Context, label string, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	delay := base
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		log.Printf("%s attempt=%d/%d err=%v backoff=%s", label, attempt, attempts, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", label, ctx.Err())
		}
		delay *= 2
	}
	return fmt.Errorf("%s failed after %d attempts: %w", label, attempts, err)
}

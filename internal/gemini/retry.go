package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"google.golang.org/genai"
)

const (
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// backoff is swapped out in tests.
var backoff = func(attempt int) time.Duration {
	return time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
}

// withRetry runs call, retrying on HTTP 429 with exponential backoff.
func withRetry(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := range maxRetries {
		err := call()
		if err == nil {
			return nil
		}
		if !isRateLimit(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
	}
	return fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

func isRateLimit(err error) bool {
	return statusCode(err) == http.StatusTooManyRequests
}

// statusCode extracts the HTTP status of a provider error, or 0.
func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

package pipeline

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/huugi-star/potenote-scanner-sub000/internal/llm"
)

const (
	maxAttempts = 3
	baseDelay   = time.Second
	maxDelay    = 30 * time.Second
)

// retryable reports whether an analysis error is transient (rate limit or
// upstream 5xx) and worth another attempt.
func retryable(err error) bool {
	var transient *llm.RetryableError
	return errors.As(err, &transient)
}

// retryDelay doubles per attempt up to maxDelay, plus up to 50% jitter so
// concurrent segments do not retry in lockstep.
func retryDelay(attempt int) time.Duration {
	d := baseDelay << attempt
	if d > maxDelay {
		d = maxDelay
	}
	return d + rand.N(d/2)
}

package native

import "time"

const (
	// DefaultMaxRetries is the fatal-error retry budget per adapter.
	DefaultMaxRetries = 3
	// DefaultRetryStep is the linear backoff unit: attempt n waits n*step.
	DefaultRetryStep = time.Second
)

// RetryPolicy is the bounded-count retry state machine. It is not safe for
// concurrent use; the adapter guards it.
type RetryPolicy struct {
	MaxRetries int
	Step       time.Duration
	attempts   int
}

// NewRetryPolicy returns a policy with the given budget and step. A negative
// budget or a non-positive step falls back to the default.
func NewRetryPolicy(maxRetries int, step time.Duration) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if step <= 0 {
		step = DefaultRetryStep
	}
	return &RetryPolicy{MaxRetries: maxRetries, Step: step}
}

// Next consumes one retry. ok is false once the budget is spent.
func (p *RetryPolicy) Next() (attempt int, delay time.Duration, ok bool) {
	if p.attempts >= p.MaxRetries {
		return p.attempts, 0, false
	}
	p.attempts++
	return p.attempts, time.Duration(p.attempts) * p.Step, true
}

// Attempts returns the number of retries consumed so far.
func (p *RetryPolicy) Attempts() int {
	return p.attempts
}

// Exhausted reports whether no retry is left.
func (p *RetryPolicy) Exhausted() bool {
	return p.attempts >= p.MaxRetries
}

// Package resilience provides fault-tolerance patterns for outbound calls:
// retry with exponential backoff, circuit breakers, bulkhead and per-call
// timeouts.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/boddenberg/broker-quote-bfa-go/internal/domain"

	"github.com/sony/gobreaker"
)

// Config holds resilience parameters.
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int
	CallTimeout    time.Duration
}

// PermanentError marks a failure that retrying cannot fix, such as a
// rejected request. Breakers do not count it against the downstream.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so RetryWithBackoff returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// RetryWithBackoff executes fn with exponential backoff + jitter.
// It respects context cancellation and stops on a permanent error.
func RetryWithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil || IsPermanent(lastErr) {
			return lastErr
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * cfg.InitialBackoff
			wait := backoff
			if half := int64(backoff / 2); half > 0 {
				wait += time.Duration(rand.Int63n(half))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
	})
}

// Breakers hands out one circuit breaker per downstream, created lazily.
// One insurer tripping must not block the others.
type Breakers struct {
	mu     sync.Mutex
	prefix string
	items  map[string]*gobreaker.CircuitBreaker
}

// NewBreakers creates an empty breaker set; names are prefix + key.
func NewBreakers(prefix string) *Breakers {
	return &Breakers{prefix: prefix, items: make(map[string]*gobreaker.CircuitBreaker)}
}

// For returns the breaker for key.
func (b *Breakers) For(key string) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	cb, ok := b.items[key]
	if !ok {
		cb = NewCircuitBreaker(b.prefix + key)
		b.items[key] = cb
	}
	return cb
}

// States reports the current state of every breaker created so far.
func (b *Breakers) States() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]string, len(b.items))
	for k, cb := range b.items {
		out[k] = cb.State().String()
	}
	return out
}

// Bulkhead limits concurrent access to a resource.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead with the given max concurrency.
func NewBulkhead(maxConcurrency int) *Bulkhead {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a slot is available or context is cancelled.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot.
func (b *Bulkhead) Release() {
	<-b.sem
}

// InFlight returns the number of slots currently held.
func (b *Bulkhead) InFlight() int {
	return len(b.sem)
}

// WithTimeout derives a context bounded by d. A non-positive d leaves the
// parent's deadline untouched.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Classify maps breaker and deadline errors to domain errors so handlers can
// pick a status code. Other errors pass through.
func Classify(service, operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: service}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: operation}
	}
	return err
}

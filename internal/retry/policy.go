package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/MimeLyc/trxsrt/internal/translator"
	"github.com/MimeLyc/trxsrt/pkg/log"
)

// Policy wraps a single backend call with exponential backoff, jitter and a
// shared circuit breaker.
type Policy struct {
	cfg       Config
	breaker   *Breaker
	retryable func(error) bool
	sleeper   func(time.Duration)
	random    func() float64
}

type Option func(*Policy)

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *Policy) {
		p.sleeper = sleeper
	}
}

// WithRandom overrides the jitter source. It must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(p *Policy) {
		if random != nil {
			p.random = random
		}
	}
}

// WithClassifier replaces translator.IsRetryable as the terminal/transient split.
func WithClassifier(retryable func(error) bool) Option {
	return func(p *Policy) {
		if retryable != nil {
			p.retryable = retryable
		}
	}
}

// NewPolicy builds a policy around breaker. A nil breaker gets a private one
// sized from cfg.Threshold.
func NewPolicy(cfg Config, breaker *Breaker, opts ...Option) *Policy {
	cfg = cfg.normalized()
	if breaker == nil {
		breaker = NewBreaker(cfg.Threshold)
	}
	p := &Policy{
		cfg:       cfg,
		breaker:   breaker,
		retryable: translator.IsRetryable,
		random:    rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Policy) Config() Config {
	return p.cfg
}

func (p *Policy) Breaker() *Breaker {
	return p.breaker
}

// Delay is the wait before retry number attempt+1 (attempt is zero-based):
// min(base*factor^attempt, max) scaled by a jitter factor in [0.5, 1).
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	raw := float64(p.cfg.BaseDelay) * math.Pow(p.cfg.Factor, float64(attempt))
	capped := math.Min(raw, float64(p.cfg.MaxDelay))
	return time.Duration(capped * (0.5 + p.random()*0.5))
}

// Do runs fn until it succeeds, fails terminally, exhausts Count retries or
// trips the breaker. The breaker is checked before every attempt, so an open
// circuit never reaches fn.
func Do[T any](ctx context.Context, p *Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		if p.breaker.Open() {
			return zero, ErrCircuitOpen
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := fn(ctx)
		if err == nil {
			p.breaker.Success()
			return value, nil
		}

		if p.breaker.Failure() {
			return zero, fmt.Errorf("%w (last error: %v)", ErrCircuitOpen, err)
		}
		if !p.retryable(err) || attempt >= p.cfg.Count {
			return zero, err
		}

		delay := p.Delay(attempt)
		log.Warn("Retry %d/%d in %dms: %v", attempt+1, p.cfg.Count, delay.Milliseconds(), err)
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return zero, errors.Join(err, sleepErr)
		}
	}
}

func (p *Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

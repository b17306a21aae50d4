package retry

import (
	"errors"
	"sync/atomic"
)

// ErrCircuitOpen is returned once the breaker has tripped. Nothing is sent
// to a backend after that.
var ErrCircuitOpen = errors.New("circuit breaker open: too many consecutive failures")

// Breaker counts consecutive failed attempts. Once the count reaches the
// threshold it latches open for the rest of its lifetime; a later success
// does not close it. Build one per run and share it between all jobs.
type Breaker struct {
	threshold int64
	failures  atomic.Int64
	open      atomic.Bool
}

func NewBreaker(threshold int) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Breaker{threshold: int64(threshold)}
}

func (b *Breaker) Open() bool {
	return b.open.Load()
}

// Failures is the current run of consecutive failures.
func (b *Breaker) Failures() int {
	return int(b.failures.Load())
}

// Success resets the failure run unless the breaker already tripped.
func (b *Breaker) Success() {
	if b.open.Load() {
		return
	}
	b.failures.Store(0)
}

// Failure records one failed attempt and reports whether the breaker is open.
func (b *Breaker) Failure() bool {
	if b.failures.Add(1) >= b.threshold {
		b.open.Store(true)
	}
	return b.open.Load()
}

package translator

import "sync/atomic"

// Rotation alternates between two backends by dispatch order. The counter is
// shared by every job of a run, so construct one per run.
type Rotation struct {
	backends [2]Translator
	counter  atomic.Uint64
}

func NewRotation(first, second Translator) *Rotation {
	return &Rotation{backends: [2]Translator{first, second}}
}

// Next returns the first backend on even ticks and the second on odd ones.
func (r *Rotation) Next() Translator {
	n := r.counter.Add(1) - 1
	return r.backends[n%2]
}

// Primary is the backend that accepts the bypass credential.
func (r *Rotation) Primary() Translator {
	return r.backends[0]
}

package retry

import "time"

// Config is the tunable part of a Policy.
type Config struct {
	// Count is the number of retries after the first attempt.
	Count     int
	BaseDelay time.Duration
	Factor    float64
	MaxDelay  time.Duration
	// Threshold is the number of consecutive failed attempts, across all
	// callers sharing a Breaker, that opens the circuit.
	Threshold int
}

const (
	DefaultCount     = 3
	DefaultBaseDelay = 2000 * time.Millisecond
	DefaultFactor    = 2.0
	DefaultMaxDelay  = 60000 * time.Millisecond
	DefaultThreshold = 100
)

func DefaultConfig() Config {
	return Config{
		Count:     DefaultCount,
		BaseDelay: DefaultBaseDelay,
		Factor:    DefaultFactor,
		MaxDelay:  DefaultMaxDelay,
		Threshold: DefaultThreshold,
	}
}

// normalized fills zero or negative fields with defaults. Count 0 is kept:
// it means a single attempt.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.Count < 0 {
		c.Count = 0
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = d.BaseDelay
	}
	if c.Factor < 1 {
		c.Factor = d.Factor
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = d.MaxDelay
	}
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	return c
}

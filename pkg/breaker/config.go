package breaker

import (
	"fmt"
	"time"
)

// Config holds the tunables for Breaker, per spec §4.2.
type Config struct {
	// FailureThreshold is the number of consecutive failures in CLOSED
	// before tripping OPEN. Range: 2-50.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes in HALF_OPEN
	// before closing. Range: 1-20.
	SuccessThreshold int

	// OpenTimeout is how long the breaker stays OPEN before admitting a
	// probe call (transition to HALF_OPEN). Range: >= 1s.
	OpenTimeout time.Duration

	// RecoveryFactor is the fraction of arriving requests admitted while
	// HALF_OPEN, to dampen a thundering herd on recovery. 0 < f <= 1.
	RecoveryFactor float64

	// WindowSize bounds the ring buffer of recent failure records kept for
	// observability (spec: state transitions are driven by the consecutive
	// counters, not this window).
	WindowSize int
}

// DefaultConfig returns the spec §4.2/§6.5 defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		OpenTimeout:      60 * time.Second,
		RecoveryFactor:   0.5,
		WindowSize:       50,
	}
}

// Validate checks configured ranges.
func (c Config) Validate() error {
	if c.FailureThreshold < 2 || c.FailureThreshold > 50 {
		return fmt.Errorf("breaker: failure_threshold must be in [2,50], got %d", c.FailureThreshold)
	}
	if c.SuccessThreshold < 1 || c.SuccessThreshold > 20 {
		return fmt.Errorf("breaker: success_threshold must be in [1,20], got %d", c.SuccessThreshold)
	}
	if c.OpenTimeout < time.Second {
		return fmt.Errorf("breaker: open_timeout must be >= 1s, got %v", c.OpenTimeout)
	}
	if c.RecoveryFactor <= 0 || c.RecoveryFactor > 1 {
		return fmt.Errorf("breaker: recovery_factor must be in (0,1], got %v", c.RecoveryFactor)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("breaker: window_size must be >= 1, got %d", c.WindowSize)
	}
	return nil
}

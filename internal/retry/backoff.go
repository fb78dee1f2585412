package retry

import (
	"math"
	"time"
)

// Policy bounds automatic retries of a queue entry.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultPolicy is 3 attempts with 1s, 2s delays between them.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Multiplier:  2.0,
		MaxDelay:    time.Hour,
	}
}

// Delay returns the wait before the retry that follows the given number of
// failed attempts: BaseDelay * Multiplier^(attempts-1), capped at MaxDelay.
func (p Policy) Delay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	delay := float64(p.BaseDelay) * math.Pow(multiplier, float64(attempts-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// Exhausted reports whether no automatic attempt is left.
func (p Policy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}

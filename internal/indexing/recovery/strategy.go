// Package recovery holds the reconnect backoff policy.
package recovery

import (
	"math"
	"time"
)

// RetryStrategy defines how retries should be handled.
type RetryStrategy interface {
	// GetDelay returns the delay before the given attempt (1-indexed).
	GetDelay(attempt int) time.Duration

	// ShouldRetry reports whether another attempt may follow the given failure count.
	ShouldRetry(attempt int) bool
}

// ExponentialBackoff implements a capped exponential backoff.
type ExponentialBackoff struct {
	InitialDelay time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	MaxAttempts  int           `yaml:"max_retries"`
}

// DefaultBackoff returns the reconnect defaults.
// 1s, 2s, 4s, 8s, 16s (Max 30s), fatal on the 5th consecutive failure.
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  5,
	}
}

// GetDelay calculates delay: InitialDelay * 2^(attempt-1), capped at MaxDelay.
func (s *ExponentialBackoff) GetDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(s.InitialDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry is false once attempt consecutive failures reach MaxAttempts.
func (s *ExponentialBackoff) ShouldRetry(attempt int) bool {
	return attempt < s.MaxAttempts
}

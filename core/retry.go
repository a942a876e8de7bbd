package core

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy is an explicit value describing when and how the engine
// retries. The engine owns the loop; the policy only answers questions, so
// tests can inject a fixed rand and observe deterministic delays.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt, so the
	// engine performs at most MaxRetries+1 attempts.
	MaxRetries int

	// BackoffFactor scales the exponential delay: the delay after failed
	// attempt k (1-indexed) is BackoffFactor * 2^(k-1), jittered.
	BackoffFactor time.Duration

	// StatusCodes are the HTTP statuses that trigger a retry. Transport
	// errors before any response always do.
	StatusCodes map[int]bool

	// Jitter is the symmetric jitter fraction applied to each delay.
	Jitter float64

	// rand returns a value in [0,1); tests replace it for determinism.
	rand func() float64
}

// defaultJitter is the ±20% spread applied to backoff delays.
const defaultJitter = 0.2

// policyFromConfig derives the engine's retry policy from a Config.
func policyFromConfig(cfg Config) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		BackoffFactor: cfg.RetryBackoffFactor,
		StatusCodes:   cfg.RetryStatusCodes,
		Jitter:        defaultJitter,
	}
}

// MaxAttempts returns the attempt budget, always at least one.
func (p RetryPolicy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// RetryableStatus reports whether a response status triggers a retry.
func (p RetryPolicy) RetryableStatus(status int) bool {
	return p.StatusCodes[status]
}

// Delay returns the jittered delay to apply after failed attempt k
// (1-indexed), before attempt k+1: the delay after the first failure has
// attempt == 1. retryAfter, when non-nil, is the server's Retry-After hint
// in seconds; the returned delay is never below it.
func (p RetryPolicy) Delay(attempt int, retryAfter *int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := float64(p.BackoffFactor) * math.Pow(2, float64(attempt-1))

	if p.Jitter > 0 {
		r := p.rand
		if r == nil {
			r = rand.Float64
		}
		// r() in [0,1) maps to a multiplier in [1-Jitter, 1+Jitter).
		base *= 1 + p.Jitter*(2*r()-1)
	}
	if base < 0 {
		base = 0
	}

	delay := time.Duration(base)
	if retryAfter != nil {
		if ra := time.Duration(*retryAfter) * time.Second; ra > delay {
			delay = ra
		}
	}
	return delay
}

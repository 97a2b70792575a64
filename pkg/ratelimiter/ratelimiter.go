package ratelimiter

import (
	"fmt"
	"time"
)

// Limiter decides whether a request may proceed.
type Limiter interface {
	Allow() bool
}

// New builds a limiter for the named algorithm.
func New(algorithm string, rate float64, capacity, limit int, window time.Duration) (Limiter, error) {
	switch algorithm {
	case "tokenBucket":
		return NewTokenBucket(rate, capacity), nil
	case "fixedWindow":
		return NewFixedWindow(limit, window), nil
	default:
		return nil, fmt.Errorf("unsupported rate limiter algorithm: %s", algorithm)
	}
}

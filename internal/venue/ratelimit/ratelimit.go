// Copyright (c) 2024 Neomantra Corp
//
// Token-bucket rate limiting for the outbound REST/RPC calls venue
// adapters make around their streaming feeds: pool metadata contract
// calls, instrument-list bootstraps, snapshot fetches. The buckets refill
// continuously rather than in window-sized bursts so steady load never
// brushes a venue's hard limit.

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a continuously refilling bucket; Wait blocks until a
// token is available or ctx is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	lastTime time.Time
}

// NewTokenBucket creates a bucket holding capacity tokens, refilled at
// ratePerSecond.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait consumes one token, blocking until one is available or ctx is
// cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		tb.tokens += now.Sub(tb.lastTime).Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Limiter groups buckets by the category of outbound call an adapter
// makes.
type Limiter struct {
	ContractCall *TokenBucket // eth_call pool/token metadata lookups
	RestSnapshot *TokenBucket // REST instrument lists and book snapshots
}

// NewLimiter creates a Limiter with defaults conservative enough for
// public endpoints: 10 contract calls/s with a burst of 40, 5 REST
// calls/s with a burst of 20.
func NewLimiter() *Limiter {
	return &Limiter{
		ContractCall: NewTokenBucket(40, 10),
		RestSnapshot: NewTokenBucket(20, 5),
	}
}

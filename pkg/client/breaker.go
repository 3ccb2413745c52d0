// Copyright 2025 The PEAC Protocol Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker refuses a request because the
// upstream has been failing.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Breaker defaults.
const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 30 * time.Second
)

// breakerState is the reportable breaker state.
type breakerState string

const (
	// StateClosed passes requests through.
	StateClosed breakerState = "closed"
	// StateOpen refuses requests until the cooldown elapses.
	StateOpen breakerState = "open"
	// StateHalfOpen passes a probe after the cooldown; its outcome decides
	// whether the breaker closes again or reopens.
	StateHalfOpen breakerState = "half-open"
)

// circuitBreaker trips open after a run of consecutive failures and stays
// open for a cooldown. After the cooldown, requests pass again; the first
// success resets the failure count, the first failure restarts the cooldown.
type circuitBreaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	failures int
	lastFail time.Time
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &circuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// allow reports whether a request may proceed.
func (b *circuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked() != StateOpen
}

// recordSuccess closes the breaker.
func (b *circuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
}

// recordFailure counts a failure toward the threshold and restarts the
// cooldown.
func (b *circuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFail = b.now()
}

// state returns the current breaker state.
func (b *circuitBreaker) state() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

func (b *circuitBreaker) stateLocked() breakerState {
	if b.failures < b.threshold {
		return StateClosed
	}
	if b.now().Sub(b.lastFail) < b.cooldown {
		return StateOpen
	}
	return StateHalfOpen
}

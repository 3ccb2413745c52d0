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

// Package nonce provides the time-windowed anti-replay ledger for the
// nonce-bound signing scheme. A Cache is an explicitly owned instance, not
// process-global state; callers construct one and inject it where admission
// decisions are made.
package nonce

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Window is the maximum allowed drift, in either direction, between a
// claimed signing timestamp and current wall-clock time.
const Window = 5 * time.Minute

// WindowMillis is Window expressed in milliseconds.
const WindowMillis = int64(Window / time.Millisecond)

// Cache is a time-windowed replay-protection ledger keyed by nonce value.
// Admission is atomic: two concurrent attempts with the same nonce yield
// exactly one acceptance. Entries are retained for twice the freshness
// window, after which a replayed nonce would be rejected by the timestamp
// check alone, so eviction never reopens the replay window.
type Cache struct {
	entries *ttlcache.Cache[string, int64]
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the wall-clock source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty replay ledger.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		entries: ttlcache.New[string, int64](
			ttlcache.WithTTL[string, int64](2*Window),
			ttlcache.WithDisableTouchOnHit[string, int64](),
		),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start runs the background eviction loop until Stop is called. Long-running
// services should start it so the ledger's memory stays bounded; short-lived
// callers can skip it, since lookups ignore expired entries either way.
func (c *Cache) Start() {
	c.entries.Start()
}

// Stop terminates the background eviction loop.
func (c *Cache) Stop() {
	c.entries.Stop()
}

// Admit records the nonce and returns true if it has not been seen before
// and the claimed timestamp is within the freshness window of current time.
// It returns false when the nonce is replayed or the timestamp is stale or
// too far in the future; rejected claims leave no trace in the ledger.
func (c *Cache) Admit(nonce string, claimedTimestampMillis int64) bool {
	nowMillis := c.now().UnixMilli()

	drift := nowMillis - claimedTimestampMillis
	if drift < 0 {
		drift = -drift
	}
	if drift > WindowMillis {
		return false
	}

	// GetOrSet is the atomic check-and-insert: it returns the existing entry
	// when the nonce was already admitted.
	_, replayed := c.entries.GetOrSet(nonce, nowMillis)
	return !replayed
}

// Seen reports whether the nonce is currently in the ledger without
// admitting it.
func (c *Cache) Seen(nonce string) bool {
	return c.entries.Has(nonce)
}

// Len returns the number of live ledger entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Clear resets the ledger to empty. Operational and test utility, not part
// of the protocol flow.
func (c *Cache) Clear() {
	c.entries.DeleteAll()
}

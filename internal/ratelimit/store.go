// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store holds fixed-window counters. Incr must be atomic across concurrent
// callers sharing a key: two goroutines incrementing the same counter must
// observe distinct counts. Counters expire with their window and are never
// explicitly deleted.
type Store interface {
	// Incr atomically increments the counter for key within the window
	// containing now and returns the post-increment count plus the instant
	// the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, reset time.Time, err error)
}

// windowStart truncates now to the fixed window containing it. Windows are
// aligned to the epoch so every process agrees on window boundaries.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

// MemoryStore is an in-process Store for non-distributed deployments and
// tests. Expired windows are dropped lazily on access.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter

	// now is injectable for deterministic window tests.
	now func() time.Time
}

type memoryCounter struct {
	count int64
	reset time.Time
}

// NewMemoryStore creates an empty in-process counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*memoryCounter),
		now:      time.Now,
	}
}

// SetClock replaces the store's time source. Test hook.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.reset) {
		c = &memoryCounter{reset: windowStart(now, window).Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, c.reset, nil
}

// Len returns the number of live counters. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, c := range s.counters {
		if now.Before(c.reset) {
			n++
		}
	}
	return n
}

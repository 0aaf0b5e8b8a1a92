// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreCountsWithinWindow(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	ctx := context.Background()
	for i := int64(1); i <= 5; i++ {
		count, _, err := store.Incr(ctx, "general:ip:10.0.0.1", time.Minute)
		if err != nil {
			t.Fatalf("Incr failed: %v", err)
		}
		if count != i {
			t.Errorf("count = %d, want %d", count, i)
		}
	}
}

func TestMemoryStoreIsolatesKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if count, _, _ := store.Incr(ctx, "general:ip:10.0.0.1", time.Minute); count != 1 {
		t.Errorf("first key count = %d, want 1", count)
	}
	if count, _, _ := store.Incr(ctx, "general:ip:10.0.0.2", time.Minute); count != 1 {
		t.Errorf("second key count = %d, want 1", count)
	}
}

func TestMemoryStoreWindowExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	ctx := context.Background()
	count, reset, err := store.Incr(ctx, "k", time.Minute)
	if err != nil {
		t.Fatalf("Incr failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	wantReset := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)
	if !reset.Equal(wantReset) {
		t.Errorf("reset = %v, want %v", reset, wantReset)
	}

	// Same window: counter continues.
	now = now.Add(29 * time.Second)
	if count, _, _ = store.Incr(ctx, "k", time.Minute); count != 2 {
		t.Errorf("count within window = %d, want 2", count)
	}

	// Next window: counter restarts from 1.
	now = now.Add(time.Second)
	count, reset, _ = store.Incr(ctx, "k", time.Minute)
	if count != 1 {
		t.Errorf("count after window rollover = %d, want 1", count)
	}
	if !reset.Equal(wantReset.Add(time.Minute)) {
		t.Errorf("reset after rollover = %v, want %v", reset, wantReset.Add(time.Minute))
	}
}

func TestWindowStartEpochAligned(t *testing.T) {
	// Two processes observing different instants inside the same window must
	// agree on its start.
	a := time.Date(2026, 3, 1, 12, 0, 3, 0, time.UTC)
	b := time.Date(2026, 3, 1, 12, 0, 57, 0, time.UTC)

	if !windowStart(a, time.Minute).Equal(windowStart(b, time.Minute)) {
		t.Errorf("windowStart disagrees: %v vs %v",
			windowStart(a, time.Minute), windowStart(b, time.Minute))
	}
	if windowStart(a, time.Minute).Equal(windowStart(b.Add(4*time.Second), time.Minute)) {
		t.Error("instants in adjacent windows mapped to the same start")
	}
}

func TestMemoryStoreConcurrentIncrements(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if _, _, err := store.Incr(ctx, "shared", time.Hour); err != nil {
					t.Errorf("Incr failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	count, _, err := store.Incr(ctx, "shared", time.Hour)
	if err != nil {
		t.Fatalf("final Incr failed: %v", err)
	}
	if want := int64(goroutines*perGoroutine + 1); count != want {
		t.Errorf("final count = %d, want %d", count, want)
	}
}

func TestMemoryStoreLenSkipsExpired(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	ctx := context.Background()
	store.Incr(ctx, "a", time.Minute)
	store.Incr(ctx, "b", time.Minute)
	if got := store.Len(); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}

	now = now.Add(2 * time.Minute)
	if got := store.Len(); got != 0 {
		t.Errorf("Len after expiry = %d, want 0", got)
	}
}

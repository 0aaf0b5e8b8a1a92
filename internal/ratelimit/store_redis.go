// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared counter store for distributed deployments.
//
// Each counter key embeds the window id, so counts can never bleed across
// windows even if an EXPIRE is lost; the TTL merely reclaims memory. The
// INCR+EXPIRE pair runs in a single pipeline, and EXPIRE uses NX so only the
// first request in a window sets the TTL.
type RedisStore struct {
	client redis.UniversalClient

	// now is injectable for deterministic window tests.
	now func() time.Time
}

// NewRedisStore wraps an existing Redis client as a counter store.
// The client's lifecycle (Close) belongs to the caller.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		now:    time.Now,
	}
}

// SetClock replaces the store's time source. Test hook.
func (s *RedisStore) SetClock(now func() time.Time) {
	s.now = now
}

// Incr implements Store.
func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()
	start := windowStart(now, window)
	reset := start.Add(window)

	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, start.Unix())

	var incr *redis.IntCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		// TTL slightly beyond the window so in-flight reads at the boundary
		// still see the counter.
		pipe.ExpireNX(ctx, windowKey, window+time.Second)
		return nil
	})
	if err != nil {
		return 0, reset, fmt.Errorf("ratelimit: incr %s: %w", windowKey, err)
	}
	return incr.Val(), reset, nil
}

// Ping reports store reachability for health checks.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

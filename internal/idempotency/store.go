// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
)

const keyPrefix = "academy-ledger:idempotency"

var _ StoreInterface = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "idempotency.RedisStore.Get")
	defer span.End()

	return s.client.Get(ctx, key).Result()
}

func (s *RedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "idempotency.RedisStore.SetNX")
	defer span.End()

	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	ctx, span := s.tracer.Start(ctx, "idempotency.RedisStore.Set")
	defer span.End()

	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, span := s.tracer.Start(ctx, "idempotency.RedisStore.Delete")
	defer span.End()

	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Key(scope, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, scope, id)
}

// Ping checks connectivity and reports the outcome as a dependency metric.
func (s *RedisStore) Ping(ctx context.Context) error {
	err := s.client.Ping(ctx).Err()

	available := 1.0
	if err != nil {
		available = 0
	}
	if mErr := s.monitor.SetDependencyAvailability(map[string]string{"component": "redis"}, available); mErr != nil {
		s.logger.Debugf("failed to set redis availability: %v", mErr)
	}

	return err
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// NewRedisStore connects to the redis instance addressed by url.
func NewRedisStore(url string, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	s := new(RedisStore)
	s.client = redis.NewClient(opts)

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Ping(ctx); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return s, nil
}

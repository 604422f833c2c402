// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package idempotency

import (
	"context"
	"time"
)

// StoreInterface persists recorded responses keyed by Idempotency-Key.
// Get returns redis.Nil when the key is unknown.
type StoreInterface interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Key(scope, id string) string
}

// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"

	"github.com/canonical/academy-ledger/internal/types"
)

type contextKey struct{}

var scopeContextKey = contextKey{}

func WithScope(ctx context.Context, scope *types.Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey, scope)
}

// ScopeFromContext returns the scope stored by RequireScope.
func ScopeFromContext(ctx context.Context) (*types.Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey).(*types.Scope)
	return scope, ok && scope != nil
}

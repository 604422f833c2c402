// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"context"

	"github.com/canonical/academy-ledger/internal/types"
)

type AuthorizerInterface interface {
	// Check returns a FORBIDDEN error when the scope's role may not perform action.
	Check(context.Context, *types.Scope, Action) error
	Allowed(*types.Scope, Action) bool
}

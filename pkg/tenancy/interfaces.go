// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"

	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/session"
)

// StorageInterface is the subset of internal/storage used to resolve tenants.
type StorageInterface interface {
	GetProfileByID(ctx context.Context, id string) (*types.Profile, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*types.Organization, error)
}

type ResolverInterface interface {
	Resolve(ctx context.Context, s session.Session) (*types.Scope, error)
}

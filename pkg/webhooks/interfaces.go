// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package webhooks

import (
	"context"

	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/audit"
)

// StorageInterface defines the storage operations required by the webhooks package.
// It is a subset of the internal/storage interface.
type StorageInterface interface {
	CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error)
	GetOrganizationByID(ctx context.Context, id string) (*types.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*types.Organization, error)
	CreateProfile(ctx context.Context, p *types.Profile) (*types.Profile, error)
	GetProfileByID(ctx context.Context, id string) (*types.Profile, error)
}

// IdentityProviderInterface links the auth user to the organization it signed up with.
type IdentityProviderInterface interface {
	AssignOrganization(ctx context.Context, userID, orgID string) error
}

type AuditInterface interface {
	Record(ctx context.Context, e audit.Entry)
}

// ServiceInterface defines the webhook service operations.
type ServiceInterface interface {
	HandleSignup(ctx context.Context, req SignupRequest) (*SignupResult, error)
}

// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"context"
	"errors"
	"fmt"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/storage"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/session"
)

var _ ResolverInterface = (*Resolver)(nil)

// Resolver maps a Session onto the tenant and role every downstream query is scoped to.
type Resolver struct {
	storage StorageInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (r *Resolver) Resolve(ctx context.Context, s session.Session) (*types.Scope, error) {
	ctx, span := r.tracer.Start(ctx, "tenancy.Resolver.Resolve")
	defer span.End()

	switch s.State {
	case session.Service:
		return r.resolveService(ctx, s)
	case session.Authenticated:
		return r.resolveUser(ctx, s)
	}

	return nil, ierr.NewError("no session").
		WithHint("Authentication required").
		Mark(ierr.ErrAuthRequired)
}

func (r *Resolver) resolveUser(ctx context.Context, s session.Session) (*types.Scope, error) {
	profile, err := r.storage.GetProfileByID(ctx, s.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ierr.WithError(err).
			WithHint("User profile not found").
			Mark(ierr.ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if profile.Role == types.RoleSuperAdmin {
		return &types.Scope{UserID: profile.ID, Role: types.RoleSuperAdmin}, nil
	}

	if profile.OrgID == nil || *profile.OrgID == "" {
		return nil, ierr.NewError("profile has no organization").
			WithHint("Organization not found").
			Mark(ierr.ErrOrgNotFound)
	}

	return &types.Scope{UserID: profile.ID, TenantID: *profile.OrgID, Role: profile.Role}, nil
}

func (r *Resolver) resolveService(ctx context.Context, s session.Session) (*types.Scope, error) {
	org, err := r.storage.GetOrganizationBySlug(ctx, s.TenantSlug)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ierr.WithError(err).
			WithHintf("Organization %q not found", s.TenantSlug).
			Mark(ierr.ErrOrgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load organization: %w", err)
	}

	return &types.Scope{UserID: s.UserID, TenantID: org.ID, Role: types.RoleService, Service: true}, nil
}

func NewResolver(storage StorageInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Resolver {
	r := new(Resolver)
	r.storage = storage

	r.tracer = tracer
	r.monitor = monitor
	r.logger = logger

	return r
}

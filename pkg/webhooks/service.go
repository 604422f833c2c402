// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package webhooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/storage"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/internal/validation"
	"github.com/canonical/academy-ledger/pkg/audit"
)

const (
	maxSlugAttempts = 20

	defaultPlan   = "free"
	defaultStatus = "active"
)

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	storage StorageInterface
	idp     IdentityProviderInterface
	audit   AuditInterface
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func NewService(
	storage StorageInterface,
	idp IdentityProviderInterface,
	audit AuditInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		storage: storage,
		idp:     idp,
		audit:   audit,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}

// HandleSignup provisions an organization owned by the new user.
// A user that already has a profile is returned as is.
func (s *Service) HandleSignup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	ctx, span := s.tracer.Start(ctx, "webhooks.Service.HandleSignup")
	defer span.End()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	s.logger.Debugf("Handling signup for user %s", req.ID)

	existing, err := s.existingSignup(ctx, req.ID)
	if err != nil || existing != nil {
		return existing, err
	}

	slug, err := s.freeSlug(ctx, Slugify(req.OrgName))
	if err != nil {
		return nil, err
	}

	org, err := s.storage.CreateOrganization(ctx, &types.Organization{
		Name:               req.OrgName,
		Slug:               slug,
		SubscriptionPlan:   defaultPlan,
		SubscriptionStatus: defaultStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	orgID := org.ID
	profile, err := s.storage.CreateProfile(ctx, &types.Profile{
		ID:    req.ID,
		Email: req.Email,
		Name:  req.Name,
		Role:  types.RoleOwner,
		OrgID: &orgID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create owner profile: %w", err)
	}

	if s.idp != nil {
		if err := s.idp.AssignOrganization(ctx, req.ID, org.ID); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    req.ID,
		OrgID:      org.ID,
		Action:     types.AuditActionCreate,
		TargetType: "organization",
		TargetID:   org.ID,
		Changes: map[string]any{
			"name":  org.Name,
			"slug":  org.Slug,
			"owner": profile.ID,
		},
		Metadata: map[string]any{"source": "signup"},
	})

	if mErr := s.monitor.IncOperation(map[string]string{"operation": "organization.signup", "outcome": "success"}); mErr != nil {
		s.logger.Debugf("failed to count signup: %v", mErr)
	}

	s.logger.Infof("Successfully provisioned organization %s for user %s", org.ID, req.ID)

	return &SignupResult{Organization: org, Profile: profile, Created: true}, nil
}

func (s *Service) existingSignup(ctx context.Context, userID string) (*SignupResult, error) {
	profile, err := s.storage.GetProfileByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if profile.OrgID == nil {
		return nil, ierr.NewError("profile without organization").
			WithHint("User already exists without an organization").
			Mark(ierr.ErrValidation)
	}

	org, err := s.storage.GetOrganizationByID(ctx, *profile.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &SignupResult{Organization: org, Profile: profile}, nil
}

// freeSlug returns base, or base with the first free numeric suffix.
func (s *Service) freeSlug(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		_, err := s.storage.GetOrganizationBySlug(ctx, candidate)
		if errors.Is(err, storage.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check slug %s: %w", candidate, err)
		}

		candidate = fmt.Sprintf("%s-%d", base, i)
	}

	id := uuid.NewString()
	return fmt.Sprintf("%s-%s", base, id[len(id)-8:]), nil
}

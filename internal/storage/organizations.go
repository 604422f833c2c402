// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/academy-ledger/internal/types"
)

var organizationColumns = []string{
	"id", "name", "slug", "credit_balance",
	"subscription_plan", "subscription_status", "subscription_expires_at",
	"created_at", "updated_at",
}

type rowScanner interface {
	Scan(...interface{}) error
}

func scanOrganization(row rowScanner) (*types.Organization, error) {
	var o types.Organization
	err := row.Scan(
		&o.ID, &o.Name, &o.Slug, &o.CreditBalance,
		&o.SubscriptionPlan, &o.SubscriptionStatus, &o.SubscriptionExpiresAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Storage) CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateOrganization")
	defer span.End()

	id, err := newID("organization")
	if err != nil {
		return nil, err
	}

	row := s.db.Statement(ctx).
		Insert("organizations").
		Columns("id", "name", "slug", "credit_balance", "subscription_plan", "subscription_status").
		Values(id, o.Name, o.Slug, o.CreditBalance, o.SubscriptionPlan, o.SubscriptionStatus).
		Suffix("RETURNING id, name, slug, credit_balance, subscription_plan, subscription_status, subscription_expires_at, created_at, updated_at").
		QueryRowContext(ctx)

	created, err := scanOrganization(row)
	if err != nil {
		return nil, mapWriteError(err, "failed to insert organization")
	}

	return created, nil
}

func (s *Storage) GetOrganizationByID(ctx context.Context, id string) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetOrganizationByID")
	defer span.End()

	return s.getOrganization(ctx, sq.Eq{"id": id})
}

func (s *Storage) GetOrganizationBySlug(ctx context.Context, slug string) (*types.Organization, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetOrganizationBySlug")
	defer span.End()

	return s.getOrganization(ctx, sq.Eq{"slug": slug})
}

func (s *Storage) getOrganization(ctx context.Context, where sq.Eq) (*types.Organization, error) {
	row := s.db.Statement(ctx).
		Select(organizationColumns...).
		From("organizations").
		Where(where).
		QueryRowContext(ctx)

	o, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return o, nil
}

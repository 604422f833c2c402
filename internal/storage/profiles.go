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

// CreateProfile inserts a profile keyed by the identity provider subject.
func (s *Storage) CreateProfile(ctx context.Context, p *types.Profile) (*types.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateProfile")
	defer span.End()

	var created types.Profile
	err := s.db.Statement(ctx).
		Insert("profiles").
		Columns("id", "email", "name", "role", "org_id").
		Values(p.ID, p.Email, p.Name, p.Role, p.OrgID).
		Suffix("RETURNING id, email, name, role, org_id, created_at").
		QueryRowContext(ctx).
		Scan(&created.ID, &created.Email, &created.Name, &created.Role, &created.OrgID, &created.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err, "failed to insert profile")
	}

	return &created, nil
}

func (s *Storage) GetProfileByID(ctx context.Context, id string) (*types.Profile, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetProfileByID")
	defer span.End()

	var p types.Profile
	err := s.db.Statement(ctx).
		Select("id", "email", "name", "role", "org_id", "created_at").
		From("profiles").
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&p.ID, &p.Email, &p.Name, &p.Role, &p.OrgID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

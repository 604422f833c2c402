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

const studentReturning = "RETURNING id, org_id, name, credit_hours::float8, remaining_minutes, created_at, updated_at"

var studentColumns = []string{
	"id", "org_id", "name", "credit_hours::float8", "remaining_minutes", "created_at", "updated_at",
}

func scanStudent(row rowScanner) (*types.Student, error) {
	var st types.Student
	if err := row.Scan(&st.ID, &st.OrgID, &st.Name, &st.CreditHours, &st.RemainingMinutes, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Storage) GetStudent(ctx context.Context, orgID, studentID string) (*types.Student, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetStudent")
	defer span.End()

	return s.selectStudent(ctx, orgID, studentID, "")
}

// LockStudent reads a student row with FOR UPDATE; it must run inside a transaction.
func (s *Storage) LockStudent(ctx context.Context, orgID, studentID string) (*types.Student, error) {
	ctx, span := s.tracer.Start(ctx, "storage.LockStudent")
	defer span.End()

	return s.selectStudent(ctx, orgID, studentID, "FOR UPDATE")
}

func (s *Storage) selectStudent(ctx context.Context, orgID, studentID, suffix string) (*types.Student, error) {
	q := s.db.Statement(ctx).
		Select(studentColumns...).
		From("students").
		Where(sq.Eq{"id": studentID, "org_id": orgID})

	if suffix != "" {
		q = q.Suffix(suffix)
	}

	st, err := scanStudent(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return st, nil
}

// GrantStudentEntitlements increments class hours and pass minutes.
func (s *Storage) GrantStudentEntitlements(ctx context.Context, orgID, studentID string, hours float64, minutes int64) (*types.Student, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GrantStudentEntitlements")
	defer span.End()

	row := s.db.Statement(ctx).
		Update("students").
		Set("credit_hours", sq.Expr("credit_hours + ?", hours)).
		Set("remaining_minutes", sq.Expr("remaining_minutes + ?", minutes)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": studentID, "org_id": orgID}).
		Suffix(studentReturning).
		QueryRowContext(ctx)

	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapWriteError(err, "failed to grant student entitlements")
	}

	return st, nil
}

// RevokeStudentEntitlements decrements class hours and pass minutes, clipping both at zero.
func (s *Storage) RevokeStudentEntitlements(ctx context.Context, orgID, studentID string, hours float64, minutes int64) (*types.Student, error) {
	ctx, span := s.tracer.Start(ctx, "storage.RevokeStudentEntitlements")
	defer span.End()

	row := s.db.Statement(ctx).
		Update("students").
		Set("credit_hours", sq.Expr("GREATEST(credit_hours - ?, 0)", hours)).
		Set("remaining_minutes", sq.Expr("GREATEST(remaining_minutes - ?, 0)", minutes)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": studentID, "org_id": orgID}).
		Suffix(studentReturning).
		QueryRowContext(ctx)

	st, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, mapWriteError(err, "failed to revoke student entitlements")
	}

	return st, nil
}

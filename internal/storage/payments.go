// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/academy-ledger/internal/db"
	"github.com/canonical/academy-ledger/internal/types"
)

const paymentReturning = "RETURNING id, org_id, student_id, student_name, amount, payment_method, " +
	"revenue_category_id, revenue_category_name, granted_class_hours::float8, granted_pass_type, " +
	"granted_pass_amount, granted_pass_minutes, status, notes, created_by, created_at, refunded_at"

var paymentColumns = []string{
	"id", "org_id", "student_id", "student_name", "amount", "payment_method",
	"revenue_category_id", "revenue_category_name", "granted_class_hours::float8", "granted_pass_type",
	"granted_pass_amount", "granted_pass_minutes", "status", "notes", "created_by", "created_at", "refunded_at",
}

func scanPayment(row rowScanner) (*types.Payment, error) {
	var p types.Payment
	err := row.Scan(
		&p.ID, &p.OrgID, &p.StudentID, &p.StudentName, &p.Amount, &p.PaymentMethod,
		&p.RevenueCategoryID, &p.RevenueCategoryName, &p.GrantedClassHours, &p.GrantedPassType,
		&p.GrantedPassAmount, &p.GrantedPassMinutes, &p.Status, &p.Notes, &p.CreatedBy, &p.CreatedAt, &p.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Storage) CreatePayment(ctx context.Context, p *types.Payment) (*types.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreatePayment")
	defer span.End()

	id, err := newID("payment")
	if err != nil {
		return nil, err
	}

	row := s.db.Statement(ctx).
		Insert("payments").
		Columns(
			"id", "org_id", "student_id", "student_name", "amount", "payment_method",
			"revenue_category_id", "revenue_category_name", "granted_class_hours", "granted_pass_type",
			"granted_pass_amount", "granted_pass_minutes", "status", "notes", "created_by",
		).
		Values(
			id, p.OrgID, p.StudentID, p.StudentName, p.Amount, p.PaymentMethod,
			p.RevenueCategoryID, p.RevenueCategoryName, p.GrantedClassHours, p.GrantedPassType,
			p.GrantedPassAmount, p.GrantedPassMinutes, types.PaymentStatusCompleted, p.Notes, p.CreatedBy,
		).
		Suffix(paymentReturning).
		QueryRowContext(ctx)

	created, err := scanPayment(row)
	if err != nil {
		return nil, mapWriteError(err, "failed to insert payment")
	}

	return created, nil
}

func (s *Storage) GetPayment(ctx context.Context, orgID, id string) (*types.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "storage.GetPayment")
	defer span.End()

	return s.selectPayment(ctx, orgID, id, "")
}

// LockPayment reads a payment with FOR UPDATE; it must run inside a transaction.
func (s *Storage) LockPayment(ctx context.Context, orgID, id string) (*types.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "storage.LockPayment")
	defer span.End()

	return s.selectPayment(ctx, orgID, id, "FOR UPDATE")
}

func (s *Storage) selectPayment(ctx context.Context, orgID, id, suffix string) (*types.Payment, error) {
	q := s.db.Statement(ctx).
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"id": id, "org_id": orgID})

	if suffix != "" {
		q = q.Suffix(suffix)
	}

	p, err := scanPayment(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

func (s *Storage) ListPayments(ctx context.Context, orgID string, filter types.PaymentFilter) ([]*types.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListPayments")
	defer span.End()

	size := db.PageSize(filter.Size)

	q := s.db.Statement(ctx).
		Select(paymentColumns...).
		From("payments").
		Where(sq.Eq{"org_id": orgID})

	if filter.StudentID != "" {
		q = q.Where(sq.Eq{"student_id": filter.StudentID})
	}

	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}

	rows, err := q.
		OrderBy("created_at DESC", "id DESC").
		Limit(size).
		Offset(db.Offset(filter.Page, size)).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*types.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}

	return payments, nil
}

// MarkPaymentCancelled moves a completed payment to cancelled.
// It returns ErrStateConflict when the payment exists but is no longer completed.
func (s *Storage) MarkPaymentCancelled(ctx context.Context, orgID, id string) (*types.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "storage.MarkPaymentCancelled")
	defer span.End()

	row := s.db.Statement(ctx).
		Update("payments").
		Set("status", types.PaymentStatusCancelled).
		Set("refunded_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "org_id": orgID, "status": types.PaymentStatusCompleted}).
		Suffix(paymentReturning).
		QueryRowContext(ctx)

	p, err := scanPayment(row)
	if err == nil {
		return p, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to cancel payment: %w", err)
	}

	if _, gErr := s.GetPayment(ctx, orgID, id); gErr != nil {
		return nil, gErr
	}

	return nil, ErrStateConflict
}

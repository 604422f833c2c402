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

// AdjustCreditBalance applies amount to the organization balance in a single
// conditional statement and returns the new balance. The updated row stays
// locked until the surrounding transaction ends.
// When the guard rejects the update it returns the current balance together
// with ErrInsufficientBalance, or ErrNotFound if the organization is missing.
func (s *Storage) AdjustCreditBalance(ctx context.Context, orgID string, amount int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "storage.AdjustCreditBalance")
	defer span.End()

	var balance int64
	err := s.db.Statement(ctx).
		Update("organizations").
		Set("credit_balance", sq.Expr("credit_balance + ?", amount)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": orgID}).
		Where(sq.Expr("credit_balance + ? >= 0", amount)).
		Suffix("RETURNING credit_balance").
		QueryRowContext(ctx).
		Scan(&balance)

	if err == nil {
		return balance, nil
	}

	if IsCheckViolation(err) {
		return 0, fmt.Errorf("failed to adjust credit balance: %w: %w", ErrInsufficientBalance, err)
	}

	if IsNumericOutOfRange(err) {
		return 0, fmt.Errorf("failed to adjust credit balance: %w: %w", ErrOutOfRange, err)
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust credit balance: %w", err)
	}

	org, gErr := s.GetOrganizationByID(ctx, orgID)
	if gErr != nil {
		return 0, gErr
	}

	return org.CreditBalance, ErrInsufficientBalance
}

// CreateCreditTransaction appends a ledger entry. Its seq is drawn at insert
// time, so entries written while the organization row is locked keep the
// order of the balance updates.
func (s *Storage) CreateCreditTransaction(ctx context.Context, t *types.CreditTransaction) (*types.CreditTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "storage.CreateCreditTransaction")
	defer span.End()

	id, err := newID("credit transaction")
	if err != nil {
		return nil, err
	}

	created := *t
	created.ID = id

	err = s.db.Statement(ctx).
		Insert("credit_transactions").
		Columns("id", "org_id", "amount", "balance_after", "type", "description", "actor_id").
		Values(id, t.OrgID, t.Amount, t.BalanceAfter, t.Type, t.Description, t.ActorID).
		Suffix("RETURNING seq, created_at").
		QueryRowContext(ctx).
		Scan(&created.Seq, &created.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err, "failed to insert credit transaction")
	}

	return &created, nil
}

// ListCreditTransactions returns the newest transactions of an organization first.
func (s *Storage) ListCreditTransactions(ctx context.Context, orgID string, limit uint64) ([]*types.CreditTransaction, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListCreditTransactions")
	defer span.End()

	rows, err := s.db.Statement(ctx).
		Select("id", "seq", "org_id", "amount", "balance_after", "type", "description", "actor_id", "created_at").
		From("credit_transactions").
		Where(sq.Eq{"org_id": orgID}).
		OrderBy("seq DESC").
		Limit(limit).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*types.CreditTransaction, 0)
	for rows.Next() {
		var t types.CreditTransaction
		if err := rows.Scan(&t.ID, &t.Seq, &t.OrgID, &t.Amount, &t.BalanceAfter, &t.Type, &t.Description, &t.ActorID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credit transaction: %w", err)
		}
		txs = append(txs, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credit transactions: %w", err)
	}

	return txs, nil
}

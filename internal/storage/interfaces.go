// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"

	"github.com/canonical/academy-ledger/internal/types"
)

type StorageInterface interface {
	CreateOrganization(ctx context.Context, o *types.Organization) (*types.Organization, error)
	GetOrganizationByID(ctx context.Context, id string) (*types.Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*types.Organization, error)

	CreateProfile(ctx context.Context, p *types.Profile) (*types.Profile, error)
	GetProfileByID(ctx context.Context, id string) (*types.Profile, error)

	AdjustCreditBalance(ctx context.Context, orgID string, amount int64) (int64, error)
	CreateCreditTransaction(ctx context.Context, t *types.CreditTransaction) (*types.CreditTransaction, error)
	ListCreditTransactions(ctx context.Context, orgID string, limit uint64) ([]*types.CreditTransaction, error)

	GetStudent(ctx context.Context, orgID, studentID string) (*types.Student, error)
	LockStudent(ctx context.Context, orgID, studentID string) (*types.Student, error)
	GrantStudentEntitlements(ctx context.Context, orgID, studentID string, hours float64, minutes int64) (*types.Student, error)
	RevokeStudentEntitlements(ctx context.Context, orgID, studentID string, hours float64, minutes int64) (*types.Student, error)

	CreatePayment(ctx context.Context, p *types.Payment) (*types.Payment, error)
	GetPayment(ctx context.Context, orgID, id string) (*types.Payment, error)
	LockPayment(ctx context.Context, orgID, id string) (*types.Payment, error)
	ListPayments(ctx context.Context, orgID string, filter types.PaymentFilter) ([]*types.Payment, error)
	MarkPaymentCancelled(ctx context.Context, orgID, id string) (*types.Payment, error)

	CreateAuditLog(ctx context.Context, l *types.AuditLog) error
	ListAuditLogs(ctx context.Context, orgID string, limit uint64) ([]*types.AuditLog, error)
}

// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package payments

import (
	"context"

	"github.com/canonical/academy-ledger/internal/authorization"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/audit"
)

type StorageInterface interface {
	GetStudent(ctx context.Context, orgID, studentID string) (*types.Student, error)
	LockStudent(ctx context.Context, orgID, studentID string) (*types.Student, error)
	GrantStudentEntitlements(ctx context.Context, orgID, studentID string, hours float64, minutes int64) (*types.Student, error)
	RevokeStudentEntitlements(ctx context.Context, orgID, studentID string, hours float64, minutes int64) (*types.Student, error)

	CreatePayment(ctx context.Context, p *types.Payment) (*types.Payment, error)
	GetPayment(ctx context.Context, orgID, id string) (*types.Payment, error)
	LockPayment(ctx context.Context, orgID, id string) (*types.Payment, error)
	ListPayments(ctx context.Context, orgID string, filter types.PaymentFilter) ([]*types.Payment, error)
	MarkPaymentCancelled(ctx context.Context, orgID, id string) (*types.Payment, error)
}

// TxRunnerInterface runs fn in one database transaction.
type TxRunnerInterface interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
}

type AuthorizerInterface interface {
	Check(ctx context.Context, scope *types.Scope, action authorization.Action) error
}

type AuditInterface interface {
	Record(ctx context.Context, e audit.Entry)
}

type ServiceInterface interface {
	Record(ctx context.Context, scope *types.Scope, in RecordInput) (*types.Payment, error)
	Cancel(ctx context.Context, scope *types.Scope, id string, req CancelRequest) (*CancelResult, error)
	Get(ctx context.Context, scope *types.Scope, id string) (*types.Payment, error)
	List(ctx context.Context, scope *types.Scope, filter ListFilter) ([]*types.Payment, error)
}

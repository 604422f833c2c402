// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package credit

import (
	"context"

	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/audit"
)

type StorageInterface interface {
	GetOrganizationByID(ctx context.Context, id string) (*types.Organization, error)
	AdjustCreditBalance(ctx context.Context, orgID string, amount int64) (int64, error)
	CreateCreditTransaction(ctx context.Context, t *types.CreditTransaction) (*types.CreditTransaction, error)
	ListCreditTransactions(ctx context.Context, orgID string, limit uint64) ([]*types.CreditTransaction, error)
}

// TxRunnerInterface scopes the balance update and its ledger entry to one
// transaction. Savepoint isolates a statement whose failure must not undo
// the rest of it.
type TxRunnerInterface interface {
	WithTx(ctx context.Context, fn func(context.Context) error) error
	Savepoint(ctx context.Context, name string, fn func(context.Context) error) error
}

type AuditInterface interface {
	Record(ctx context.Context, e audit.Entry)
}

type ServiceInterface interface {
	Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error)
	Get(ctx context.Context, tenantID string, limit uint64) (*Summary, error)
}

// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package credit

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
	"github.com/canonical/academy-ledger/pkg/audit"
)

const (
	DefaultTransactionLimit uint64 = 50
	MaxTransactionLimit     uint64 = 50

	// MaxAdjustAmount bounds a single adjustment in either direction.
	MaxAdjustAmount int64 = 1_000_000_000

	ledgerSavepoint = "credit_ledger_entry"

	warnTransactionNotRecorded = "Balance updated but the credit transaction could not be recorded"
)

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	storage StorageInterface
	tx      TxRunnerInterface
	audit   AuditInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Adjust applies a signed amount to the tenant balance. The balance update
// and the ledger entry share one transaction so the organization row lock
// orders concurrent entries. The entry itself is best effort: its failure
// rolls back to a savepoint, keeps the balance and is reported through
// AdjustResult.Warnings.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error) {
	ctx, span := s.tracer.Start(ctx, "credit.Service.Adjust")
	defer span.End()

	if err := validateAdjust(in); err != nil {
		return nil, err
	}

	var (
		result *AdjustResult
		txn    *types.CreditTransaction
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		balance, err := s.storage.AdjustCreditBalance(ctx, in.TenantID, in.Amount)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return ierr.WithError(err).WithHint("Organization not found").Mark(ierr.ErrOrgNotFound)
		case errors.Is(err, storage.ErrInsufficientBalance):
			return ierr.WithError(err).
				WithHintf("Insufficient credit balance: current balance is %d, cannot apply %d", balance, in.Amount).
				WithDetails(map[string]any{"current_balance": balance, "amount": in.Amount}).
				Mark(ierr.ErrInsufficientBalance)
		case errors.Is(err, storage.ErrOutOfRange):
			return ierr.WithError(err).
				WithHint("Adjustment would overflow the credit balance").
				WithDetails(map[string]any{"amount": "out of range"}).
				Mark(ierr.ErrValidation)
		case err != nil:
			return fmt.Errorf("failed to adjust credit balance: %w", err)
		}

		result = &AdjustResult{
			NewBalance:      balance,
			PreviousBalance: balance - in.Amount,
			Amount:          in.Amount,
		}

		err = s.tx.Savepoint(ctx, ledgerSavepoint, func(ctx context.Context) error {
			var err error
			txn, err = s.storage.CreateCreditTransaction(ctx, &types.CreditTransaction{
				OrgID:        in.TenantID,
				Amount:       in.Amount,
				BalanceAfter: balance,
				Type:         in.Type,
				Description:  in.Description,
				ActorID:      in.ActorID,
			})
			return err
		})
		if err != nil {
			s.logger.Warnw(
				"credit balance adjusted without a ledger entry",
				"org_id", in.TenantID,
				"amount", in.Amount,
				"balance_after", balance,
				"error", err,
			)
			txn = nil
			result.Warnings = append(result.Warnings, warnTransactionNotRecorded)
		}

		result.Transaction = txn

		return nil
	})

	if err != nil {
		switch ierr.CodeFromErr(err) {
		case ierr.ErrCodeInternal:
			s.count(in.Type, "failure")
		default:
			s.count(in.Type, "rejected")
		}
		return nil, err
	}

	s.logger.Security().AdminAction(in.ActorID, "credit.adjust", in.TenantID)

	metadata := map[string]any{
		"amount":      in.Amount,
		"credit_type": in.Type,
		"description": in.Description,
	}
	if txn != nil {
		metadata["transaction_id"] = txn.ID
	}
	if len(result.Warnings) > 0 {
		metadata["warnings"] = result.Warnings
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    in.ActorID,
		OrgID:      in.TenantID,
		Action:     types.AuditActionAdjust,
		TargetType: "organization",
		TargetID:   in.TenantID,
		Changes: map[string]any{
			"credit_balance": map[string]int64{"before": result.PreviousBalance, "after": result.NewBalance},
		},
		Metadata: metadata,
	})

	s.count(in.Type, "success")

	return result, nil
}

// Get returns the tenant balance with its newest ledger entries first.
func (s *Service) Get(ctx context.Context, tenantID string, limit uint64) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "credit.Service.Get")
	defer span.End()

	if limit == 0 {
		limit = DefaultTransactionLimit
	}
	limit = min(limit, MaxTransactionLimit)

	org, err := s.storage.GetOrganizationByID(ctx, tenantID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ierr.WithError(err).WithHint("Organization not found").Mark(ierr.ErrOrgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	txns, err := s.storage.ListCreditTransactions(ctx, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}

	return &Summary{Organization: org, Transactions: txns}, nil
}

func (s *Service) count(t types.CreditType, outcome string) {
	tags := map[string]string{"operation": "credit.adjust." + string(t), "outcome": outcome}
	if err := s.monitor.IncOperation(tags); err != nil {
		s.logger.Debugf("failed to count credit adjustment: %v", err)
	}
}

func validateAdjust(in AdjustInput) error {
	details := make(map[string]any)

	if in.TenantID == "" {
		details["org_id"] = "is required"
	}
	switch {
	case in.Amount == 0:
		details["amount"] = "must not be 0"
	case in.Amount > MaxAdjustAmount || in.Amount < -MaxAdjustAmount:
		details["amount"] = fmt.Sprintf("must be between %d and %d", -MaxAdjustAmount, MaxAdjustAmount)
	}
	if in.Type != types.CreditTypeFree && in.Type != types.CreditTypePaid {
		details["credit_type"] = "must be one of [free paid]"
	}

	if len(details) == 0 {
		return nil
	}

	return ierr.NewError("invalid credit adjustment").
		WithHint("Invalid request").
		WithDetails(details).
		Mark(ierr.ErrValidation)
}

func NewService(storage StorageInterface, tx TxRunnerInterface, audit AuditInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Service {
	s := new(Service)

	s.storage = storage
	s.tx = tx
	s.audit = audit

	s.tracer = tracer
	s.monitor = monitor
	s.logger = logger

	return s
}

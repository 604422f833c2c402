// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package payments

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/canonical/academy-ledger/internal/authorization"
	ierr "github.com/canonical/academy-ledger/internal/errors"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/storage"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/internal/validation"
	"github.com/canonical/academy-ledger/pkg/audit"
)

const targetPayment = "payment"

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	storage StorageInterface
	tx      TxRunnerInterface
	authz   AuthorizerInterface
	audit   AuditInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// Record stores a completed payment and grants its entitlements to the
// student in one transaction.
func (s *Service) Record(ctx context.Context, scope *types.Scope, in RecordInput) (*types.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Service.Record")
	defer span.End()

	if err := s.authz.Check(ctx, scope, authorization.ActionRecordPayment); err != nil {
		return nil, err
	}

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hours := lo.FromPtr(in.ClassCredits).Hours

	p := &types.Payment{
		OrgID:               scope.TenantID,
		StudentID:           in.StudentID,
		StudentName:         in.StudentName,
		Amount:              in.Amount,
		PaymentMethod:       in.PaymentMethod,
		RevenueCategoryID:   in.RevenueCategoryID,
		RevenueCategoryName: in.RevenueCategoryName,
		GrantedClassHours:   hours,
		Notes:               in.Notes,
		CreatedBy:           scope.UserID,
	}

	if pass := in.StudyRoomPass; pass != nil {
		p.GrantedPassType = lo.ToPtr(pass.Type)
		p.GrantedPassAmount = lo.ToPtr(pass.Amount)
		p.GrantedPassMinutes = pass.Minutes()
	}

	var created *types.Payment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if p.GrantedClassHours > 0 || p.GrantedPassMinutes > 0 {
			_, err = s.storage.GrantStudentEntitlements(ctx, scope.TenantID, p.StudentID, p.GrantedClassHours, p.GrantedPassMinutes)
		} else {
			_, err = s.storage.GetStudent(ctx, scope.TenantID, p.StudentID)
		}
		if err != nil {
			return studentError(err)
		}

		created, err = s.storage.CreatePayment(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		return nil
	})
	if err != nil {
		s.count("payment.record", err)
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    scope.UserID,
		OrgID:      scope.TenantID,
		Action:     types.AuditActionCreate,
		TargetType: targetPayment,
		TargetID:   created.ID,
		Changes: map[string]any{
			"amount":               created.Amount,
			"student_id":           created.StudentID,
			"granted_class_hours":  created.GrantedClassHours,
			"granted_pass_minutes": created.GrantedPassMinutes,
		},
	})

	s.count("payment.record", nil)

	return created, nil
}

// Cancel marks a completed payment cancelled and subtracts exactly what it
// granted from the student, never taking a balance below zero.
func (s *Service) Cancel(ctx context.Context, scope *types.Scope, id string, req CancelRequest) (*CancelResult, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Service.Cancel")
	defer span.End()

	if err := s.authz.Check(ctx, scope, authorization.ActionCancelPayment); err != nil {
		return nil, err
	}

	if err := validatePaymentID(id); err != nil {
		return nil, err
	}

	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var (
		res     = new(CancelResult)
		before  *types.Student
		after   *types.Student
		granted Rollback
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.storage.LockPayment(ctx, scope.TenantID, id)
		if err != nil {
			return paymentError(err)
		}

		if p.Status == types.PaymentStatusCancelled {
			return alreadyCancelled(nil)
		}

		cancelled, err := s.storage.MarkPaymentCancelled(ctx, scope.TenantID, id)
		if err != nil {
			return paymentError(err)
		}
		res.Payment = cancelled

		granted = Rollback{Credits: p.GrantedClassHours, PassMinutes: p.GrantedPassMinutes}
		if granted.IsZero() {
			return nil
		}

		if before, err = s.storage.LockStudent(ctx, scope.TenantID, p.StudentID); err != nil {
			return studentError(err)
		}

		if after, err = s.storage.RevokeStudentEntitlements(ctx, scope.TenantID, p.StudentID, granted.Credits, granted.PassMinutes); err != nil {
			return studentError(err)
		}

		res.Rollback = Rollback{
			Credits:     roundHours(before.CreditHours - after.CreditHours),
			PassMinutes: before.RemainingMinutes - after.RemainingMinutes,
		}
		res.Clipped = Rollback{
			Credits:     roundHours(granted.Credits - res.Rollback.Credits),
			PassMinutes: granted.PassMinutes - res.Rollback.PassMinutes,
		}

		return nil
	})
	if err != nil {
		s.count("payment.cancel", err)
		return nil, err
	}

	metadata := map[string]any{"rollback": res.Rollback}
	if !res.Clipped.IsZero() {
		s.logger.Warnw(
			"payment rollback clipped at zero",
			"org_id", scope.TenantID,
			"payment_id", id,
			"student_id", res.Payment.StudentID,
			"granted_credits", granted.Credits,
			"granted_pass_minutes", granted.PassMinutes,
			"clipped_credits", res.Clipped.Credits,
			"clipped_pass_minutes", res.Clipped.PassMinutes,
		)
		metadata["clipped"] = res.Clipped
	}

	changes := map[string]any{
		"status": map[string]types.PaymentStatus{"before": types.PaymentStatusCompleted, "after": types.PaymentStatusCancelled},
	}
	if before != nil && after != nil {
		changes["student"] = map[string]any{
			"id":                res.Payment.StudentID,
			"credit_hours":      map[string]float64{"before": before.CreditHours, "after": after.CreditHours},
			"remaining_minutes": map[string]int64{"before": before.RemainingMinutes, "after": after.RemainingMinutes},
		}
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:    scope.UserID,
		OrgID:      scope.TenantID,
		Action:     types.AuditActionCancel,
		TargetType: targetPayment,
		TargetID:   id,
		Changes:    changes,
		Metadata:   metadata,
	})

	s.count("payment.cancel", nil)

	return res, nil
}

func (s *Service) Get(ctx context.Context, scope *types.Scope, id string) (*types.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Service.Get")
	defer span.End()

	if err := s.authz.Check(ctx, scope, authorization.ActionViewPayments); err != nil {
		return nil, err
	}

	if err := validatePaymentID(id); err != nil {
		return nil, err
	}

	p, err := s.storage.GetPayment(ctx, scope.TenantID, id)
	if err != nil {
		return nil, paymentError(err)
	}

	return p, nil
}

// List returns the tenant payments, newest first.
func (s *Service) List(ctx context.Context, scope *types.Scope, filter ListFilter) ([]*types.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Service.List")
	defer span.End()

	if err := s.authz.Check(ctx, scope, authorization.ActionViewPayments); err != nil {
		return nil, err
	}

	details := make(map[string]any)
	if filter.StudentID != "" {
		if _, err := uuid.Parse(filter.StudentID); err != nil {
			details["student_id"] = "must be a valid UUID"
		}
	}
	if filter.Status != "" && !lo.Contains([]types.PaymentStatus{types.PaymentStatusCompleted, types.PaymentStatusCancelled}, filter.Status) {
		details["status"] = "must be one of [completed cancelled]"
	}
	if len(details) > 0 {
		return nil, ierr.NewError("invalid payment filter").WithHint("Invalid filter").WithDetails(details).Mark(ierr.ErrValidation)
	}

	payments, err := s.storage.ListPayments(ctx, scope.TenantID, types.PaymentFilter{
		StudentID: filter.StudentID,
		Status:    filter.Status,
		Page:      filter.Page,
		Size:      filter.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, nil
}

func (s *Service) count(operation string, err error) {
	outcome := "success"
	switch {
	case err == nil:
	case ierr.IsInternal(err):
		outcome = "failure"
	default:
		outcome = "rejected"
	}

	if mErr := s.monitor.IncOperation(map[string]string{"operation": operation, "outcome": outcome}); mErr != nil {
		s.logger.Debugf("failed to count %s: %v", operation, mErr)
	}
}

func validatePaymentID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ierr.WithError(err).
			WithHint("Invalid payment id").
			WithDetails(map[string]any{"id": "must be a valid UUID"}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func paymentError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ierr.WithError(err).WithHint("Payment not found").Mark(ierr.ErrNotFound)
	case errors.Is(err, storage.ErrStateConflict):
		return alreadyCancelled(err)
	}
	return fmt.Errorf("failed to load payment: %w", err)
}

func studentError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ierr.WithError(err).WithHint("Student not found").Mark(ierr.ErrNotFound)
	}
	return fmt.Errorf("failed to update student entitlements: %w", err)
}

func alreadyCancelled(cause error) error {
	b := ierr.NewError("payment already cancelled")
	if cause != nil {
		b = ierr.WithError(cause)
	}
	return b.WithHint("Payment is already cancelled").Mark(ierr.ErrAlreadyCancelled)
}

// roundHours keeps the two decimal precision of the credit_hours column.
func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

func NewService(
	storage StorageInterface,
	tx TxRunnerInterface,
	authz AuthorizerInterface,
	audit AuditInterface,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) *Service {
	return &Service{
		storage: storage,
		tx:      tx,
		authz:   authz,
		audit:   audit,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}

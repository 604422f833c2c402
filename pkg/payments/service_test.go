// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package payments

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/canonical/academy-ledger/internal/authorization"
	ierr "github.com/canonical/academy-ledger/internal/errors"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/storage"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/audit"
)

//go:generate mockgen -build_flags=--mod=mod -package payments -destination ./mock_interfaces.go -source=./interfaces.go

const (
	orgID     = "0190f1d2-7c1e-7a3b-9f00-000000000001"
	studentID = "0190f1d2-7c1e-7a3b-9f00-0000000000a1"
	paymentID = "0190f1d2-7c1e-7a3b-9f00-0000000000b1"
)

var (
	owner   = &types.Scope{UserID: "owner-1", TenantID: orgID, Role: types.RoleOwner}
	manager = &types.Scope{UserID: "manager-1", TenantID: orgID, Role: types.RoleManager}
	teacher = &types.Scope{UserID: "teacher-1", TenantID: orgID, Role: types.RoleTeacher}
)

type testDeps struct {
	storage *MockStorageInterface
	tx      *MockTxRunnerInterface
	audit   *MockAuditInterface
}

func newTestService(ctrl *gomock.Controller) (*Service, testDeps) {
	logger := logging.NewNoopLogger()
	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor("test", logger)

	deps := testDeps{
		storage: NewMockStorageInterface(ctrl),
		tx:      NewMockTxRunnerInterface(ctrl),
		audit:   NewMockAuditInterface(ctrl),
	}

	s := NewService(deps.storage, deps.tx, authorization.NewAuthorizer(tracer, monitor, logger), deps.audit, tracer, monitor, logger)

	return s, deps
}

func expectTx(tx *MockTxRunnerInterface) {
	tx.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func recordInput() RecordInput {
	return RecordInput{
		StudentID:     studentID,
		StudentName:   "Jane Doe",
		Amount:        150000,
		PaymentMethod: "card",
	}
}

func createdPayment(_ context.Context, p *types.Payment) (*types.Payment, error) {
	created := *p
	created.ID = paymentID
	created.Status = types.PaymentStatusCompleted
	return &created, nil
}

func TestServiceRecord(t *testing.T) {
	withGrants := recordInput()
	withGrants.ClassCredits = &ClassCredits{Hours: 10}
	withGrants.StudyRoomPass = &StudyRoomPass{Type: types.PassTypeHours, Amount: 20}

	hoursPass := recordInput()
	hoursPass.StudyRoomPass = &StudyRoomPass{Type: types.PassTypeHours, Amount: 3}

	daysPass := recordInput()
	daysPass.StudyRoomPass = &StudyRoomPass{Type: types.PassTypeDays, Amount: 2}

	missingStudent := recordInput()
	missingStudent.StudentID = ""

	tests := []struct {
		name    string
		scope   *types.Scope
		input   RecordInput
		hours   float64
		minutes int64
		setup   func(testDeps)
		err     error
	}{
		{
			name:    "class credits and hour pass",
			scope:   owner,
			input:   withGrants,
			hours:   10,
			minutes: 1200,
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().GrantStudentEntitlements(gomock.Any(), orgID, studentID, float64(10), int64(1200)).Return(&types.Student{ID: studentID}, nil)
				d.storage.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).DoAndReturn(createdPayment)
				d.audit.EXPECT().Record(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
					if e.Action != types.AuditActionCreate || e.TargetID != paymentID || e.ActorID != owner.UserID {
						t.Errorf("unexpected audit entry %+v", e)
					}
				})
			},
		},
		{
			name:    "three hour pass is 180 minutes",
			scope:   manager,
			input:   hoursPass,
			minutes: 180,
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().GrantStudentEntitlements(gomock.Any(), orgID, studentID, float64(0), int64(180)).Return(&types.Student{ID: studentID}, nil)
				d.storage.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).DoAndReturn(createdPayment)
				d.audit.EXPECT().Record(gomock.Any(), gomock.Any())
			},
		},
		{
			name:    "two day pass is 2880 minutes",
			scope:   owner,
			input:   daysPass,
			minutes: 2880,
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().GrantStudentEntitlements(gomock.Any(), orgID, studentID, float64(0), int64(2880)).Return(&types.Student{ID: studentID}, nil)
				d.storage.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).DoAndReturn(createdPayment)
				d.audit.EXPECT().Record(gomock.Any(), gomock.Any())
			},
		},
		{
			name:  "no grants only checks the student",
			scope: owner,
			input: recordInput(),
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().GetStudent(gomock.Any(), orgID, studentID).Return(&types.Student{ID: studentID}, nil)
				d.storage.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).DoAndReturn(createdPayment)
				d.audit.EXPECT().Record(gomock.Any(), gomock.Any())
			},
		},
		{
			name:  "student outside tenant",
			scope: owner,
			input: withGrants,
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().GrantStudentEntitlements(gomock.Any(), orgID, studentID, float64(10), int64(1200)).Return(nil, storage.ErrNotFound)
			},
			err: ierr.ErrNotFound,
		},
		{
			name:  "payment insert failure",
			scope: owner,
			input: recordInput(),
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().GetStudent(gomock.Any(), orgID, studentID).Return(&types.Student{ID: studentID}, nil)
				d.storage.EXPECT().CreatePayment(gomock.Any(), gomock.Any()).Return(nil, errors.New("deadlock detected"))
			},
			err: ierr.ErrInternal,
		},
		{
			name:  "teacher is forbidden",
			scope: teacher,
			input: withGrants,
			setup: func(testDeps) {},
			err:   ierr.ErrForbidden,
		},
		{
			name:  "invalid input",
			scope: owner,
			input: missingStudent,
			setup: func(testDeps) {},
			err:   ierr.ErrValidation,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, deps := newTestService(ctrl)
			test.setup(deps)

			p, err := s.Record(context.Background(), test.scope, test.input)

			if test.err != nil {
				if ierr.CodeFromErr(err) != ierr.CodeFromErr(test.err) {
					t.Fatalf("expected error code %s, got %v", ierr.CodeFromErr(test.err), err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if p.OrgID != orgID || p.CreatedBy != test.scope.UserID {
				t.Errorf("payment not scoped to caller: %+v", p)
			}
			if p.GrantedClassHours != test.hours || p.GrantedPassMinutes != test.minutes {
				t.Errorf("expected grants %v/%d, got %v/%d", test.hours, test.minutes, p.GrantedClassHours, p.GrantedPassMinutes)
			}
			if p.Status != types.PaymentStatusCompleted {
				t.Errorf("expected completed payment, got %s", p.Status)
			}
		})
	}
}

func TestServiceCancel(t *testing.T) {
	completed := func() *types.Payment {
		return &types.Payment{
			ID:                 paymentID,
			OrgID:              orgID,
			StudentID:          studentID,
			GrantedClassHours:  10,
			GrantedPassMinutes: 1200,
			Status:             types.PaymentStatusCompleted,
		}
	}
	cancelled := func() *types.Payment {
		p := completed()
		p.Status = types.PaymentStatusCancelled
		return p
	}

	tests := []struct {
		name     string
		scope    *types.Scope
		id       string
		req      CancelRequest
		setup    func(testDeps)
		rollback Rollback
		clipped  Rollback
		err      error
	}{
		{
			name:  "exact rollback",
			scope: owner,
			id:    paymentID,
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().LockPayment(gomock.Any(), orgID, paymentID).Return(completed(), nil)
				d.storage.EXPECT().MarkPaymentCancelled(gomock.Any(), orgID, paymentID).Return(cancelled(), nil)
				d.storage.EXPECT().LockStudent(gomock.Any(), orgID, studentID).Return(&types.Student{CreditHours: 12, RemainingMinutes: 1500}, nil)
				d.storage.EXPECT().RevokeStudentEntitlements(gomock.Any(), orgID, studentID, float64(10), int64(1200)).Return(&types.Student{CreditHours: 2, RemainingMinutes: 300}, nil)
				d.audit.EXPECT().Record(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
					metadata := e.Metadata.(map[string]any)
					if _, ok := metadata["clipped"]; ok {
						t.Error("exact rollback must not report clipping")
					}
				})
			},
			rollback: Rollback{Credits: 10, PassMinutes: 1200},
		},
		{
			name:  "rollback floored at zero",
			scope: manager,
			id:    paymentID,
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().LockPayment(gomock.Any(), orgID, paymentID).Return(completed(), nil)
				d.storage.EXPECT().MarkPaymentCancelled(gomock.Any(), orgID, paymentID).Return(cancelled(), nil)
				d.storage.EXPECT().LockStudent(gomock.Any(), orgID, studentID).Return(&types.Student{CreditHours: 2, RemainingMinutes: 100}, nil)
				d.storage.EXPECT().RevokeStudentEntitlements(gomock.Any(), orgID, studentID, float64(10), int64(1200)).Return(&types.Student{CreditHours: 0, RemainingMinutes: 0}, nil)
				d.audit.EXPECT().Record(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
					metadata := e.Metadata.(map[string]any)
					if metadata["clipped"] != (Rollback{Credits: 8, PassMinutes: 1100}) {
						t.Errorf("expected clipped amounts in audit metadata, got %+v", metadata)
					}
				})
			},
			rollback: Rollback{Credits: 2, PassMinutes: 100},
			clipped:  Rollback{Credits: 8, PassMinutes: 1100},
		},
		{
			name:  "payment without grants",
			scope: owner,
			id:    paymentID,
			setup: func(d testDeps) {
				p := completed()
				p.GrantedClassHours, p.GrantedPassMinutes = 0, 0
				expectTx(d.tx)
				d.storage.EXPECT().LockPayment(gomock.Any(), orgID, paymentID).Return(p, nil)
				d.storage.EXPECT().MarkPaymentCancelled(gomock.Any(), orgID, paymentID).Return(cancelled(), nil)
				d.audit.EXPECT().Record(gomock.Any(), gomock.Any())
			},
		},
		{
			name:  "already cancelled",
			scope: owner,
			id:    paymentID,
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().LockPayment(gomock.Any(), orgID, paymentID).Return(cancelled(), nil)
			},
			err: ierr.ErrAlreadyCancelled,
		},
		{
			name:  "lost the status race",
			scope: owner,
			id:    paymentID,
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().LockPayment(gomock.Any(), orgID, paymentID).Return(completed(), nil)
				d.storage.EXPECT().MarkPaymentCancelled(gomock.Any(), orgID, paymentID).Return(nil, storage.ErrStateConflict)
			},
			err: ierr.ErrAlreadyCancelled,
		},
		{
			name:  "payment of another tenant",
			scope: owner,
			id:    paymentID,
			setup: func(d testDeps) {
				expectTx(d.tx)
				d.storage.EXPECT().LockPayment(gomock.Any(), orgID, paymentID).Return(nil, storage.ErrNotFound)
			},
			err: ierr.ErrNotFound,
		},
		{
			name:  "malformed id",
			scope: owner,
			id:    "42",
			setup: func(testDeps) {},
			err:   ierr.ErrValidation,
		},
		{
			name:  "teacher is forbidden",
			scope: teacher,
			id:    paymentID,
			setup: func(testDeps) {},
			err:   ierr.ErrForbidden,
		},
		{
			name:  "teacher with invalid status is forbidden",
			scope: teacher,
			id:    paymentID,
			req:   CancelRequest{Status: types.PaymentStatusCompleted},
			setup: func(testDeps) {},
			err:   ierr.ErrForbidden,
		},
		{
			name:  "status other than cancelled",
			scope: owner,
			id:    paymentID,
			req:   CancelRequest{Status: types.PaymentStatusCompleted},
			setup: func(testDeps) {},
			err:   ierr.ErrValidation,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, deps := newTestService(ctrl)
			test.setup(deps)

			res, err := s.Cancel(context.Background(), test.scope, test.id, test.req)

			if test.err != nil {
				if ierr.CodeFromErr(err) != ierr.CodeFromErr(test.err) {
					t.Fatalf("expected error code %s, got %v", ierr.CodeFromErr(test.err), err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if res.Payment.Status != types.PaymentStatusCancelled {
				t.Errorf("expected cancelled payment, got %s", res.Payment.Status)
			}
			if res.Rollback != test.rollback {
				t.Errorf("expected rollback %+v, got %+v", test.rollback, res.Rollback)
			}
			if res.Clipped != test.clipped {
				t.Errorf("expected clipped %+v, got %+v", test.clipped, res.Clipped)
			}
		})
	}
}

func TestServiceGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s, deps := newTestService(ctrl)

	deps.storage.EXPECT().GetPayment(gomock.Any(), orgID, paymentID).Return(&types.Payment{ID: paymentID, OrgID: orgID}, nil)
	deps.storage.EXPECT().GetPayment(gomock.Any(), orgID, studentID).Return(nil, storage.ErrNotFound)

	p, err := s.Get(context.Background(), teacher, paymentID)
	if err != nil || p.ID != paymentID {
		t.Fatalf("expected payment, got %v %v", p, err)
	}

	if _, err := s.Get(context.Background(), teacher, studentID); !ierr.Is(err, ierr.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}

	superAdmin := &types.Scope{UserID: "admin", Role: types.RoleSuperAdmin}
	if _, err := s.Get(context.Background(), superAdmin, paymentID); !ierr.Is(err, ierr.ErrForbidden) {
		t.Errorf("expected FORBIDDEN for a scope without tenant, got %v", err)
	}
}

func TestServiceList(t *testing.T) {
	tests := []struct {
		name   string
		filter ListFilter
		setup  func(testDeps)
		err    error
	}{
		{
			name:   "filters are passed through",
			filter: ListFilter{StudentID: studentID, Status: types.PaymentStatusCancelled, Page: 2, Size: 10},
			setup: func(d testDeps) {
				d.storage.EXPECT().ListPayments(gomock.Any(), orgID, types.PaymentFilter{
					StudentID: studentID,
					Status:    types.PaymentStatusCancelled,
					Page:      2,
					Size:      10,
				}).Return([]*types.Payment{{ID: paymentID}}, nil)
			},
		},
		{
			name:   "unknown status",
			filter: ListFilter{Status: "refunded"},
			setup:  func(testDeps) {},
			err:    ierr.ErrValidation,
		},
		{
			name:   "malformed student id",
			filter: ListFilter{StudentID: "jane"},
			setup:  func(testDeps) {},
			err:    ierr.ErrValidation,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			s, deps := newTestService(ctrl)
			test.setup(deps)

			_, err := s.List(context.Background(), owner, test.filter)

			if test.err != nil {
				if !ierr.Is(err, test.err) {
					t.Fatalf("expected %v, got %v", test.err, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestStudyRoomPassMinutes(t *testing.T) {
	tests := []struct {
		pass     StudyRoomPass
		expected int64
	}{
		{StudyRoomPass{Type: types.PassTypeHours, Amount: 3}, 180},
		{StudyRoomPass{Type: types.PassTypeHours, Amount: 20}, 1200},
		{StudyRoomPass{Type: types.PassTypeDays, Amount: 2}, 2880},
		{StudyRoomPass{Type: "weeks", Amount: 2}, 0},
	}

	for _, test := range tests {
		if got := test.pass.Minutes(); got != test.expected {
			t.Errorf("%s x %d: expected %d minutes, got %d", test.pass.Type, test.pass.Amount, test.expected, got)
		}
	}
}

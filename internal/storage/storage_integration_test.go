// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/canonical/academy-ledger/internal/db"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/migrations"
)

// setupStorage connects to TEST_DSN and applies migrations, skipping when unset.
func setupStorage(t *testing.T) (*Storage, *db.DBClient) {
	t.Helper()

	dsn := os.Getenv("TEST_DSN")
	if dsn == "" {
		t.Skip("TEST_DSN not set, skipping database tests")
	}

	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("invalid TEST_DSN: %v", err)
	}

	sqlDB := stdlib.OpenDB(*config)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations.EmbedMigrations)
	if err != nil {
		t.Fatalf("failed to create goose provider: %v", err)
	}

	if _, err := provider.Up(context.Background()); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	logger := logging.NewNoopLogger()
	tracer := tracing.NewNoopTracer()
	monitor := monitoring.NewNoopMonitor("test", logger)

	client, err := db.NewDBClient(
		db.Config{DSN: dsn, MaxConns: 20, MinConns: 1, MaxConnLifetime: time.Hour, MaxConnIdleTime: time.Minute},
		tracer, monitor, logger,
	)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(client.Close)

	return NewStorage(client, tracer, monitor, logger), client
}

func createTestOrganization(t *testing.T, s *Storage, balance int64) *types.Organization {
	t.Helper()

	org, err := s.CreateOrganization(context.Background(), &types.Organization{
		Name:               "Test Academy",
		Slug:               fmt.Sprintf("test-%s", uuid.NewString()),
		CreditBalance:      balance,
		SubscriptionPlan:   "free",
		SubscriptionStatus: "active",
	})
	if err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	return org
}

func createTestStudent(t *testing.T, client *db.DBClient, orgID string, hours float64, minutes int64) string {
	t.Helper()

	id := uuid.NewString()
	_, err := client.Statement(context.Background()).
		Insert("students").
		Columns("id", "org_id", "name", "credit_hours", "remaining_minutes").
		Values(id, orgID, "Student", hours, minutes).
		Exec()
	if err != nil {
		t.Fatalf("failed to create student: %v", err)
	}

	return id
}

func TestAdjustCreditBalanceNeverNegativeUnderConcurrency(t *testing.T) {
	s, _ := setupStorage(t)
	ctx := context.Background()

	org := createTestOrganization(t, s, 1000)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		rejected  atomic.Int64
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.AdjustCreditBalance(ctx, org.ID, -30)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrInsufficientBalance):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 33 || rejected.Load() != 17 {
		t.Fatalf("expected 33 debits and 17 rejections, got %d and %d", succeeded.Load(), rejected.Load())
	}

	got, err := s.GetOrganizationByID(ctx, org.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.CreditBalance != 10 {
		t.Fatalf("expected balance 10, got %d", got.CreditBalance)
	}
}

func TestAdjustCreditBalanceRejectionReportsCurrentBalance(t *testing.T) {
	s, _ := setupStorage(t)
	ctx := context.Background()

	org := createTestOrganization(t, s, 100)

	balance, err := s.AdjustCreditBalance(ctx, org.ID, -101)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if balance != 100 {
		t.Fatalf("expected current balance 100, got %d", balance)
	}

	if _, err := s.AdjustCreditBalance(ctx, uuid.NewString(), 10); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing organization, got %v", err)
	}
}

func TestListCreditTransactionsNewestFirst(t *testing.T) {
	s, _ := setupStorage(t)
	ctx := context.Background()

	org := createTestOrganization(t, s, 0)

	for _, amount := range []int64{100, -40, 15} {
		balance, err := s.AdjustCreditBalance(ctx, org.ID, amount)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = s.CreateCreditTransaction(ctx, &types.CreditTransaction{
			OrgID:        org.ID,
			Amount:       amount,
			BalanceAfter: balance,
			Type:         types.CreditTypeFree,
			ActorID:      "admin",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	txs, err := s.ListCreditTransactions(ctx, org.ID, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}

	if txs[0].BalanceAfter != 75 || txs[0].Amount != 15 {
		t.Fatalf("expected newest transaction first, got %+v", txs[0])
	}
}

// adjustWithEntry mirrors the credit service: balance update and ledger entry
// in one transaction, the entry behind a savepoint.
func adjustWithEntry(ctx context.Context, s *Storage, client *db.DBClient, orgID string, amount int64, creditType types.CreditType) (int64, error) {
	var balance int64

	err := client.WithTx(ctx, func(ctx context.Context) error {
		var err error
		balance, err = s.AdjustCreditBalance(ctx, orgID, amount)
		if err != nil {
			return err
		}

		// a failed entry keeps the balance update
		_ = client.Savepoint(ctx, "credit_ledger_entry", func(ctx context.Context) error {
			_, err := s.CreateCreditTransaction(ctx, &types.CreditTransaction{
				OrgID:        orgID,
				Amount:       amount,
				BalanceAfter: balance,
				Type:         creditType,
				ActorID:      "admin",
			})
			return err
		})

		return nil
	})

	return balance, err
}

func TestConcurrentAdjustmentsKeepLedgerInBalanceOrder(t *testing.T) {
	s, client := setupStorage(t)
	ctx := context.Background()

	org := createTestOrganization(t, s, 1000)

	const workers = 40

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			amount := int64(i%7 + 1)
			if i%2 == 0 {
				amount = -amount
			}

			if _, err := adjustWithEntry(ctx, s, client, org.ID, amount, types.CreditTypePaid); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.GetOrganizationByID(ctx, org.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	txs, err := s.ListCreditTransactions(ctx, org.ID, workers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(txs) != workers {
		t.Fatalf("expected %d transactions, got %d", workers, len(txs))
	}

	if txs[0].BalanceAfter != got.CreditBalance {
		t.Fatalf("newest balance_after %d does not match credit_balance %d", txs[0].BalanceAfter, got.CreditBalance)
	}

	// walking oldest to newest each entry continues from the previous one
	for i := len(txs) - 1; i > 0; i-- {
		older, newer := txs[i], txs[i-1]
		if older.BalanceAfter+newer.Amount != newer.BalanceAfter {
			t.Fatalf("ledger out of order at seq %d: %d + %d != %d", newer.Seq, older.BalanceAfter, newer.Amount, newer.BalanceAfter)
		}
	}
}

func TestFailedLedgerEntryKeepsBalance(t *testing.T) {
	s, client := setupStorage(t)
	ctx := context.Background()

	org := createTestOrganization(t, s, 100)

	// the type check constraint rejects the entry
	balance, err := adjustWithEntry(ctx, s, client, org.ID, 50, types.CreditType("bonus"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := s.GetOrganizationByID(ctx, org.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if balance != 150 || got.CreditBalance != 150 {
		t.Fatalf("expected balance 150 to persist, got %d and %d", balance, got.CreditBalance)
	}

	txs, err := s.ListCreditTransactions(ctx, org.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(txs) != 0 {
		t.Fatalf("expected no ledger entry, got %d", len(txs))
	}
}

func TestAdjustCreditBalanceOverflow(t *testing.T) {
	s, _ := setupStorage(t)
	ctx := context.Background()

	org := createTestOrganization(t, s, 10)

	if _, err := s.AdjustCreditBalance(ctx, org.ID, math.MaxInt64); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestPaymentCancellationIsGuarded(t *testing.T) {
	s, client := setupStorage(t)
	ctx := context.Background()

	org := createTestOrganization(t, s, 0)
	other := createTestOrganization(t, s, 0)
	studentID := createTestStudent(t, client, org.ID, 2, 0)

	student, err := s.GrantStudentEntitlements(ctx, org.ID, studentID, 5, 180)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if student.CreditHours != 7 || student.RemainingMinutes != 180 {
		t.Fatalf("unexpected grant result: %+v", student)
	}

	payment, err := s.CreatePayment(ctx, &types.Payment{
		OrgID:              org.ID,
		StudentID:          studentID,
		StudentName:        "Student",
		Amount:             50000,
		PaymentMethod:      "card",
		GrantedClassHours:  5,
		GrantedPassMinutes: 180,
		CreatedBy:          "owner",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := s.GetPayment(ctx, other.ID, payment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across tenants, got %v", err)
	}

	if _, err := s.MarkPaymentCancelled(ctx, other.ID, payment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound when cancelling across tenants, got %v", err)
	}

	cancelled, err := s.MarkPaymentCancelled(ctx, org.ID, payment.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cancelled.Status != types.PaymentStatusCancelled || cancelled.RefundedAt == nil {
		t.Fatalf("unexpected cancelled payment: %+v", cancelled)
	}

	if _, err := s.MarkPaymentCancelled(ctx, org.ID, payment.ID); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict, got %v", err)
	}
}

func TestRevokeStudentEntitlementsFloorsAtZero(t *testing.T) {
	s, client := setupStorage(t)
	ctx := context.Background()

	org := createTestOrganization(t, s, 0)
	studentID := createTestStudent(t, client, org.ID, 2, 60)

	student, err := s.RevokeStudentEntitlements(ctx, org.ID, studentID, 5, 1200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if student.CreditHours != 0 || student.RemainingMinutes != 0 {
		t.Fatalf("expected balances floored at zero, got %+v", student)
	}
}

func TestLockStudentRequiresTenantMatch(t *testing.T) {
	s, client := setupStorage(t)

	org := createTestOrganization(t, s, 0)
	other := createTestOrganization(t, s, 0)
	studentID := createTestStudent(t, client, org.ID, 0, 0)

	err := client.WithTx(context.Background(), func(ctx context.Context) error {
		if _, err := s.LockStudent(ctx, other.ID, studentID); !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("expected ErrNotFound, got %v", err)
		}

		if _, err := s.LockStudent(ctx, org.ID, studentID); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAuditLogsRoundTrip(t *testing.T) {
	s, _ := setupStorage(t)
	ctx := context.Background()

	org := createTestOrganization(t, s, 0)

	err := s.CreateAuditLog(ctx, &types.AuditLog{
		ActorID:    "admin",
		OrgID:      &org.ID,
		Action:     types.AuditActionAdjust,
		TargetType: "organization",
		TargetID:   org.ID,
		Changes:    []byte(`{"before":0,"after":10}`),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logs, err := s.ListAuditLogs(ctx, org.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(logs) != 1 || logs[0].Action != types.AuditActionAdjust || len(logs[0].Metadata) != 0 {
		t.Fatalf("unexpected audit logs: %+v", logs)
	}
}

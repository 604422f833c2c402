// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for storage operations.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrDuplicateKey        = errors.New("duplicate key violation")
	ErrForeignKeyViolation = errors.New("foreign key violation")
	ErrCheckViolation      = errors.New("check constraint violation")
	// ErrInsufficientBalance is returned when a debit would take a balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrOutOfRange is returned when a write would overflow a numeric column.
	ErrOutOfRange = errors.New("numeric value out of range")
	// ErrStateConflict is returned when a guarded state transition matched no row.
	ErrStateConflict = errors.New("state conflict")
)

// PostgreSQL error codes
const (
	pgErrCodeUniqueViolation     = "23505"
	pgErrCodeForeignKeyViolation = "23503"
	pgErrCodeCheckViolation      = "23514"
	pgErrCodeNumericOutOfRange   = "22003"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	return pgCode(err) == pgErrCodeUniqueViolation
}

// IsForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgErrCodeForeignKeyViolation
}

// IsCheckViolation checks if the error is a PostgreSQL check constraint violation.
func IsCheckViolation(err error) bool {
	return pgCode(err) == pgErrCodeCheckViolation
}

// IsNumericOutOfRange checks if the error is a PostgreSQL numeric overflow.
func IsNumericOutOfRange(err error) bool {
	return pgCode(err) == pgErrCodeNumericOutOfRange
}

// mapWriteError translates constraint violations into storage sentinels, keeping the cause.
func mapWriteError(err error, op string) error {
	switch pgCode(err) {
	case pgErrCodeUniqueViolation:
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicateKey, err)
	case pgErrCodeForeignKeyViolation:
		return fmt.Errorf("%s: %w: %w", op, ErrForeignKeyViolation, err)
	case pgErrCodeCheckViolation:
		return fmt.Errorf("%s: %w: %w", op, ErrCheckViolation, err)
	case pgErrCodeNumericOutOfRange:
		return fmt.Errorf("%s: %w: %w", op, ErrOutOfRange, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

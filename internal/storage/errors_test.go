// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, expected: ErrDuplicateKey},
		{name: "foreign key violation", err: &pgconn.PgError{Code: "23503"}, expected: ErrForeignKeyViolation},
		{name: "check violation", err: &pgconn.PgError{Code: "23514"}, expected: ErrCheckViolation},
		{name: "numeric out of range", err: &pgconn.PgError{Code: "22003"}, expected: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapWriteError(tt.err, "insert")
			if !errors.Is(err, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, err)
			}

			var pgErr *pgconn.PgError
			if !errors.As(err, &pgErr) {
				t.Error("expected original pg error to be preserved")
			}
		})
	}
}

func TestMapWriteErrorPassthrough(t *testing.T) {
	cause := errors.New("connection reset")
	err := mapWriteError(cause, "insert")

	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, ErrCheckViolation) {
		t.Errorf("unexpected sentinel in %v", err)
	}
}

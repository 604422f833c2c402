// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

const (
	ErrCodeAuthRequired        = "AUTH_REQUIRED"
	ErrCodeProfileNotFound     = "PROFILE_NOT_FOUND"
	ErrCodeOrgNotFound         = "ORG_NOT_FOUND"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrCodeAlreadyCancelled    = "ALREADY_CANCELLED"
	ErrCodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

var (
	ErrAuthRequired        = new(ErrCodeAuthRequired, "authentication required")
	ErrProfileNotFound     = new(ErrCodeProfileNotFound, "user profile not found")
	ErrOrgNotFound         = new(ErrCodeOrgNotFound, "organization not found")
	ErrNotFound            = new(ErrCodeNotFound, "resource not found")
	ErrForbidden           = new(ErrCodeForbidden, "insufficient permissions")
	ErrValidation          = new(ErrCodeValidation, "validation failed")
	ErrInsufficientBalance = new(ErrCodeInsufficientBalance, "insufficient credit balance")
	ErrAlreadyCancelled    = new(ErrCodeAlreadyCancelled, "payment already cancelled")
	ErrIdempotencyConflict = new(ErrCodeIdempotencyConflict, "idempotency key reused with a different request")
	ErrInternal            = new(ErrCodeInternal, "internal server error")

	// ordered so the most specific sentinel wins when an error carries several marks
	taxonomy = []struct {
		sentinel *InternalError
		status   int
	}{
		{ErrAuthRequired, http.StatusUnauthorized},
		{ErrProfileNotFound, http.StatusNotFound},
		{ErrOrgNotFound, http.StatusNotFound},
		{ErrNotFound, http.StatusNotFound},
		{ErrForbidden, http.StatusForbidden},
		{ErrValidation, http.StatusBadRequest},
		{ErrInsufficientBalance, http.StatusBadRequest},
		{ErrAlreadyCancelled, http.StatusBadRequest},
		{ErrIdempotencyConflict, http.StatusConflict},
		{ErrInternal, http.StatusInternalServerError},
	}
)

// InternalError is a taxonomy sentinel carrying the machine readable code.
type InternalError struct {
	Code    string
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Is(target error) bool {
	t, ok := target.(*InternalError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func new(code, message string) *InternalError {
	return &InternalError{Code: code, Message: message}
}

func lookup(err error) (*InternalError, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	for _, t := range taxonomy {
		if errors.Is(err, t.sentinel) {
			return t.sentinel, t.status
		}
	}

	return ErrInternal, http.StatusInternalServerError
}

// CodeFromErr returns the taxonomy code for err, INTERNAL_ERROR when unclassified.
func CodeFromErr(err error) string {
	sentinel, _ := lookup(err)
	if sentinel == nil {
		return ""
	}
	return sentinel.Code
}

// HTTPStatusFromErr returns the response status for err, 500 when unclassified.
func HTTPStatusFromErr(err error) int {
	_, status := lookup(err)
	return status
}

// IsInternal reports whether err falls outside the client facing taxonomy.
func IsInternal(err error) bool {
	return err != nil && HTTPStatusFromErr(err) >= http.StatusInternalServerError
}

// DisplayMessage returns the first non-empty hint, or the sentinel message.
// Unclassified errors never leak their text.
func DisplayMessage(err error) string {
	sentinel, status := lookup(err)
	if sentinel == nil {
		return ""
	}

	if status >= http.StatusInternalServerError {
		return ErrInternal.Message
	}

	for _, hint := range errors.GetAllHints(err) {
		if hint != "" {
			return hint
		}
	}

	return sentinel.Message
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

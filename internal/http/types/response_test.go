// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	"github.com/canonical/academy-ledger/internal/logging"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		expected ErrorResponse
	}{
		{
			name:   "Validation error with details",
			err:    ierr.NewError("bad body").WithHint("Invalid request").WithDetails(map[string]any{"amount": "is required"}).Mark(ierr.ErrValidation),
			status: http.StatusBadRequest,
			expected: ErrorResponse{
				Error: ErrorDetail{
					Code:    ierr.ErrCodeValidation,
					Message: "Invalid request",
					Details: map[string]any{"amount": "is required"},
				},
			},
		},
		{
			name:   "Forbidden",
			err:    ierr.NewError("teacher cannot record").Mark(ierr.ErrForbidden),
			status: http.StatusForbidden,
			expected: ErrorResponse{
				Error: ErrorDetail{Code: ierr.ErrCodeForbidden, Message: ierr.ErrForbidden.Message},
			},
		},
		{
			name:   "Internal error hides text",
			err:    fmt.Errorf("dial tcp 10.0.0.1:5432: connection refused"),
			status: http.StatusInternalServerError,
			expected: ErrorResponse{
				Error: ErrorDetail{Code: ierr.ErrCodeInternal, Message: ierr.ErrInternal.Message},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			WriteError(w, test.err, logging.NewNoopLogger())

			if w.Code != test.status {
				t.Fatalf("expected status %d, got %d", test.status, w.Code)
			}

			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected JSON content type, got %s", ct)
			}

			var got ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}

			if !reflect.DeepEqual(got, test.expected) {
				t.Errorf("expected body: %+v, got: %+v", test.expected, got)
			}
		})
	}
}

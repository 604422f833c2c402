// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"net/http"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	"github.com/canonical/academy-ledger/internal/logging"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps err onto the error taxonomy and writes the structured body.
// Unclassified errors are logged and answered with a generic message.
func WriteError(w http.ResponseWriter, err error, logger logging.LoggerInterface) {
	status := ierr.HTTPStatusFromErr(err)

	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "error", err)
	}

	detail := ErrorDetail{
		Code:    ierr.CodeFromErr(err),
		Message: ierr.DisplayMessage(err),
	}

	if status < http.StatusInternalServerError {
		detail.Details = ierr.Details(err)
	}

	WriteJSON(w, status, ErrorResponse{Success: false, Error: detail})
}

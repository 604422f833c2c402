// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	httptypes "github.com/canonical/academy-ledger/internal/http/types"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
)

type API struct {
	service ServiceInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RegisterEndpoints mounts the audit routes on a router already guarded for super admins.
func (a *API) RegisterEndpoints(r chi.Router) {
	r.Get("/api/v1/admin/audit-logs", a.list)
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "audit.API.list")
	defer span.End()

	q := r.URL.Query()

	orgID := q.Get("org_id")
	if orgID != "" {
		if _, err := uuid.Parse(orgID); err != nil {
			httptypes.WriteError(w, ierr.WithError(err).WithHint("Invalid org_id").WithDetails(map[string]any{"org_id": "must be a valid UUID"}).Mark(ierr.ErrValidation), a.logger)
			return
		}
	}

	var limit uint64
	if raw := q.Get("limit"); raw != "" {
		l, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || l == 0 || l > MaxListLimit {
			httptypes.WriteError(w, ierr.NewError("invalid limit").WithHint("Invalid limit").WithDetails(map[string]any{"limit": "must be between 1 and 500"}).Mark(ierr.ErrValidation), a.logger)
			return
		}
		limit = l
	}

	logs, err := a.service.List(ctx, orgID, limit)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, ListResponse{Success: true, Logs: logs})
}

func NewAPI(service ServiceInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	return &API{
		service: service,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}

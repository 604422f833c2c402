// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package credit

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
	"github.com/canonical/academy-ledger/internal/validation"
	"github.com/canonical/academy-ledger/pkg/tenancy"
)

type API struct {
	service ServiceInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RegisterEndpoints mounts the credit routes on a router already guarded for super admins.
func (a *API) RegisterEndpoints(r chi.Router) {
	r.Get("/api/v1/admin/organizations/{id}/credit", a.get)
	r.Post("/api/v1/admin/organizations/{id}/credit", a.adjust)
}

func (a *API) adjust(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "credit.API.adjust")
	defer span.End()

	orgID, err := orgIDParam(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	var req AdjustRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	actorID := ""
	if scope, ok := tenancy.ScopeFromContext(ctx); ok {
		actorID = scope.UserID
	}

	res, err := a.service.Adjust(ctx, AdjustInput{
		TenantID:    orgID,
		Amount:      req.Amount,
		Type:        req.CreditType,
		Description: req.Description,
		ActorID:     actorID,
	})
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, AdjustResponse{
		Success:         true,
		CreditBalance:   res.NewBalance,
		PreviousBalance: res.PreviousBalance,
		Amount:          res.Amount,
		Warnings:        res.Warnings,
	})
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "credit.API.get")
	defer span.End()

	orgID, err := orgIDParam(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	var limit uint64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || l == 0 || l > MaxTransactionLimit {
			httptypes.WriteError(w, ierr.NewError("invalid limit").WithHint("Invalid limit").WithDetails(map[string]any{"limit": "must be between 1 and 50"}).Mark(ierr.ErrValidation), a.logger)
			return
		}
		limit = l
	}

	summary, err := a.service.Get(ctx, orgID, limit)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, SummaryResponse{
		Success:       true,
		OrgID:         summary.Organization.ID,
		Name:          summary.Organization.Name,
		CreditBalance: summary.Organization.CreditBalance,
		Transactions:  summary.Transactions,
	})
}

func orgIDParam(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", ierr.WithError(err).
			WithHint("Invalid organization id").
			WithDetails(map[string]any{"id": "must be a valid UUID"}).
			Mark(ierr.ErrValidation)
	}
	return id, nil
}

func NewAPI(service ServiceInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.service = service

	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}

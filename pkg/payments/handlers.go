// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package payments

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	httptypes "github.com/canonical/academy-ledger/internal/http/types"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/internal/validation"
	"github.com/canonical/academy-ledger/pkg/tenancy"
)

type API struct {
	service ServiceInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RegisterEndpoints mounts the payment routes; r must resolve the tenant scope first.
func (a *API) RegisterEndpoints(r chi.Router) {
	r.Get("/api/v1/payments", a.list)
	r.Post("/api/v1/payments", a.record)
	r.Get("/api/v1/payments/{id}", a.get)
	r.Patch("/api/v1/payments/{id}", a.cancel)
}

func (a *API) record(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "payments.API.record")
	defer span.End()

	scope, err := requireScope(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	// field rules are checked by the service once the role is authorized
	var in RecordInput
	if err := validation.DecodeJSON(r, &in); err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	p, err := a.service.Record(ctx, scope, in)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteJSON(w, http.StatusCreated, RecordResponse{
		Success: true,
		Payment: p,
		Message: "Payment recorded",
	})
}

func (a *API) cancel(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "payments.API.cancel")
	defer span.End()

	scope, err := requireScope(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	// the body is optional, an explicit status must be "cancelled"
	var req CancelRequest
	if err := validation.DecodeJSON(r, &req); err != nil && !ierr.Is(err, validation.ErrEmptyBody) {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	res, err := a.service.Cancel(ctx, scope, chi.URLParam(r, "id"), req)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	body := CancelResponse{
		Success:  true,
		Payment:  res.Payment,
		Rollback: res.Rollback,
		Message:  "Payment cancelled",
	}
	if !res.Clipped.IsZero() {
		body.Clipped = &res.Clipped
	}

	httptypes.WriteJSON(w, http.StatusOK, body)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "payments.API.get")
	defer span.End()

	scope, err := requireScope(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	p, err := a.service.Get(ctx, scope, chi.URLParam(r, "id"))
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, GetResponse{Success: true, Payment: p})
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "payments.API.list")
	defer span.End()

	scope, err := requireScope(r)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	q := r.URL.Query()
	filter := ListFilter{
		StudentID: q.Get("student_id"),
		Status:    types.PaymentStatus(q.Get("status")),
	}

	details := make(map[string]any)
	if filter.Page, err = intParam(q.Get("page"), 1); err != nil {
		details["page"] = "must be a positive integer"
	}
	if filter.Size, err = intParam(q.Get("size"), 20); err != nil {
		details["size"] = "must be a positive integer"
	}
	if len(details) > 0 {
		httptypes.WriteError(w, ierr.NewError("invalid pagination").WithHint("Invalid pagination").WithDetails(details).Mark(ierr.ErrValidation), a.logger)
		return
	}

	payments, err := a.service.List(ctx, scope, filter)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	httptypes.WriteJSON(w, http.StatusOK, ListResponse{
		Success:  true,
		Payments: payments,
		Page:     filter.Page,
		Size:     filter.Size,
	})
}

func requireScope(r *http.Request) (*types.Scope, error) {
	scope, ok := tenancy.ScopeFromContext(r.Context())
	if !ok {
		return nil, ierr.NewError("no tenant scope").WithHint("Authentication required").Mark(ierr.ErrAuthRequired)
	}
	return scope, nil
}

func intParam(raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, strconv.ErrRange
	}

	return v, nil
}

func NewAPI(service ServiceInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	return &API{
		service: service,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}

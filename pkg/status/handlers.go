// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package status

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	httptypes "github.com/canonical/academy-ledger/internal/http/types"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/version"
)

const pingTimeout = 2 * time.Second

// PingerInterface is implemented by dependencies whose health is reported.
type PingerInterface interface {
	Ping(context.Context) error
}

type Status struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks,omitempty"`
	BuildSHA string            `json:"buildSHA,omitempty"`
}

type Version struct {
	Version string `json:"version"`
}

type API struct {
	db PingerInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (a *API) RegisterEndpoints(mux *chi.Mux) {
	mux.Get("/api/v0/status", a.alive)
	mux.Get("/api/v0/version", a.version)
}

func (a *API) alive(w http.ResponseWriter, r *http.Request) {
	ctx, span := a.tracer.Start(r.Context(), "status.API.alive")
	defer span.End()

	status := Status{Status: "ok", Checks: map[string]string{}}
	code := http.StatusOK

	if a.db != nil {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		if err := a.db.Ping(pctx); err != nil {
			a.logger.Errorw("database ping failed", "error", err)
			status.Status = "degraded"
			status.Checks["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		} else {
			status.Checks["database"] = "ok"
		}
	}

	httptypes.WriteJSON(w, code, status)
}

func (a *API) version(w http.ResponseWriter, r *http.Request) {
	_, span := a.tracer.Start(r.Context(), "status.API.version")
	defer span.End()

	httptypes.WriteJSON(w, http.StatusOK, Version{Version: version.Version})
}

func NewAPI(db PingerInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *API {
	a := new(API)

	a.db = db

	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}

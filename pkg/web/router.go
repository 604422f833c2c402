// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/canonical/academy-ledger/internal/authorization"
	"github.com/canonical/academy-ledger/internal/db"
	"github.com/canonical/academy-ledger/internal/idempotency"
	"github.com/canonical/academy-ledger/internal/identity"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/pkg/metrics"
	"github.com/canonical/academy-ledger/pkg/session"
	"github.com/canonical/academy-ledger/pkg/status"
	"github.com/canonical/academy-ledger/pkg/tenancy"
)

// EndpointsInterface is implemented by every API mounted on the router.
type EndpointsInterface interface {
	RegisterEndpoints(chi.Router)
}

type Dependencies struct {
	DB         db.DBClientInterface
	ServiceKey *identity.ServiceKey

	Sessions session.ResolverInterface
	Tenants  tenancy.ResolverInterface

	// IdempotencyStore may be nil, replay is then disabled.
	IdempotencyStore idempotency.StoreInterface
	IdempotencyTTL   time.Duration

	CORSOrigins []string

	Payments EndpointsInterface
	Credit   EndpointsInterface
	Audit    EndpointsInterface
	Webhooks EndpointsInterface
}

func NewRouter(
	deps Dependencies,
	tracer tracing.TracingInterface,
	monitor monitoring.MonitorInterface,
	logger logging.LoggerInterface,
) http.Handler {
	router := chi.NewMux()

	middlewares := make(chi.Middlewares, 0)
	middlewares = append(
		middlewares,
		middleware.RequestID,
		middleware.Recoverer,
		monitoring.NewMiddleware(monitor, logger).ResponseTime(),
		middlewareCORS(deps.CORSOrigins),
	)

	router.Use(middlewares...)

	metrics.NewAPI(logger).RegisterEndpoints(router)
	status.NewAPI(deps.DB, tracer, monitor, logger).RegisterEndpoints(router)

	router.Group(func(r chi.Router) {
		r.Use(identity.NewMiddleware(deps.ServiceKey, tracer, monitor, logger).RequireServiceKey)
		r.Use(db.TransactionMiddleware(deps.DB, logger))

		deps.Webhooks.RegisterEndpoints(r)
	})

	tenants := tenancy.NewMiddleware(deps.Tenants, tracer, monitor, logger)

	router.Group(func(r chi.Router) {
		r.Use(session.NewMiddleware(deps.Sessions, tracer, monitor, logger).Resolve)
		r.Use(tenants.RequireScope)
		r.Use(idempotency.NewMiddleware(deps.IdempotencyStore, deps.IdempotencyTTL, idempotencyScope, logger).Replay)

		deps.Payments.RegisterEndpoints(r)

		r.Group(func(r chi.Router) {
			r.Use(tenants.RequireRoles(authorization.RolesFor(authorization.ActionAdjustCredit)...))

			deps.Credit.RegisterEndpoints(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(tenants.RequireRoles(authorization.RolesFor(authorization.ActionViewAuditLogs)...))

			deps.Audit.RegisterEndpoints(r)
		})
	})

	return tracing.NewMiddleware("academy-ledger", logger).OpenTelemetry(router)
}

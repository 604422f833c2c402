// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package identity

import (
	"net/http"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	httptypes "github.com/canonical/academy-ledger/internal/http/types"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
)

type Middleware struct {
	serviceKey *ServiceKey

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RequireServiceKey rejects requests that do not present the service key.
func (m *Middleware) RequireServiceKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.tracer.Start(r.Context(), "identity.Middleware.RequireServiceKey")
		defer span.End()

		if !m.serviceKey.Valid(r) {
			m.logger.Security().AuthnFailure("missing or invalid service key")
			httptypes.WriteError(w, ierr.NewError("invalid service key").WithHint("Service credentials required").Mark(ierr.ErrAuthRequired), m.logger)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func NewMiddleware(serviceKey *ServiceKey, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		serviceKey: serviceKey,
		tracer:     tracer,
		monitor:    monitor,
		logger:     logger,
	}
}

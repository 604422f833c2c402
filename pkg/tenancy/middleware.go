// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package tenancy

import (
	"net/http"
	"slices"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	httptypes "github.com/canonical/academy-ledger/internal/http/types"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/session"
)

type Middleware struct {
	resolver ResolverInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// RequireScope resolves the request session to a tenant scope, answering
// with the structured error and stopping the chain when it cannot.
func (m *Middleware) RequireScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, err := m.resolver.Resolve(r.Context(), session.FromContext(r.Context()))
		if err != nil {
			if ierr.Is(err, ierr.ErrAuthRequired) {
				m.logger.Security().AuthnFailure("no session")
			}
			httptypes.WriteError(w, err, m.logger)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
	})
}

// RequireRoles rejects scopes whose role is not listed with FORBIDDEN.
// It must run after RequireScope.
func (m *Middleware) RequireRoles(roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, ok := ScopeFromContext(r.Context())
			if !ok {
				httptypes.WriteError(w, ierr.NewError("no scope").WithHint("Authentication required").Mark(ierr.ErrAuthRequired), m.logger)
				return
			}

			if !slices.Contains(roles, scope.Role) {
				m.logger.Security().AuthzFailure(scope.UserID, r.URL.Path)
				httptypes.WriteError(w, ierr.NewError("role not permitted").WithHint("Insufficient permissions").Mark(ierr.ErrForbidden), m.logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func NewMiddleware(resolver ResolverInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Middleware {
	return &Middleware{
		resolver: resolver,
		tracer:   tracer,
		monitor:  monitor,
		logger:   logger,
	}
}

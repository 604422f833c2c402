// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/canonical/academy-ledger/internal/identity"
	"github.com/canonical/academy-ledger/internal/idempotency"
	"github.com/canonical/academy-ledger/pkg/tenancy"
)

func middlewareCORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(
		cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{
				http.MethodHead,
				http.MethodGet,
				http.MethodPost,
				http.MethodPut,
				http.MethodPatch,
				http.MethodDelete,
			},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				idempotency.HeaderKey,
				identity.ServiceKeyHeader,
				identity.TenantSlugHeader,
			},
			AllowCredentials: true,
			MaxAge:           300,
		},
	).Handler
}

// idempotencyScope namespaces idempotency keys per tenant and caller.
func idempotencyScope(r *http.Request) string {
	scope, ok := tenancy.ScopeFromContext(r.Context())
	if !ok {
		return ""
	}

	return scope.TenantID + ":" + scope.UserID
}

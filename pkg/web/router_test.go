// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chi "github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	"github.com/canonical/academy-ledger/internal/identity"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/session"
	"github.com/canonical/academy-ledger/pkg/tenancy"
)

type stubAPI struct {
	path string
}

func (s stubAPI) RegisterEndpoints(r chi.Router) {
	r.Get(s.path, func(w http.ResponseWriter, r *http.Request) {
		scope, ok := tenancy.ScopeFromContext(r.Context())
		if ok {
			w.Header().Set("X-Scope-Tenant", scope.TenantID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func newTestRouter(sessions session.ResolverInterface, tenants tenancy.ResolverInterface) http.Handler {
	logger := logging.NewNoopLogger()

	return NewRouter(
		Dependencies{
			ServiceKey:  identity.NewServiceKey("secret"),
			Sessions:    sessions,
			Tenants:     tenants,
			CORSOrigins: []string{"*"},
			Payments:    stubAPI{path: "/api/v1/payments"},
			Credit:      stubAPI{path: "/api/v1/admin/organizations/{id}/credit"},
			Audit:       stubAPI{path: "/api/v1/admin/audit-logs"},
			Webhooks:    stubAPI{path: "/webhooks/signup"},
		},
		tracing.NewNoopTracer(),
		monitoring.NewNoopMonitor("test", logger),
		logger,
	)
}

func TestRouterScopes(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		scope    *types.Scope
		err      error
		expected int
	}{
		{
			name:     "payments with tenant scope",
			path:     "/api/v1/payments",
			scope:    &types.Scope{UserID: "user-1", TenantID: "org-1", Role: types.RoleTeacher},
			expected: http.StatusOK,
		},
		{
			name:     "payments without session",
			path:     "/api/v1/payments",
			err:      ierr.NewError("no session").WithHint("Authentication required").Mark(ierr.ErrAuthRequired),
			expected: http.StatusUnauthorized,
		},
		{
			name:     "credit as owner",
			path:     "/api/v1/admin/organizations/org-1/credit",
			scope:    &types.Scope{UserID: "user-1", TenantID: "org-1", Role: types.RoleOwner},
			expected: http.StatusForbidden,
		},
		{
			name:     "credit as super admin",
			path:     "/api/v1/admin/organizations/org-1/credit",
			scope:    &types.Scope{UserID: "admin", TenantID: "org-1", Role: types.RoleSuperAdmin},
			expected: http.StatusOK,
		},
		{
			name:     "audit as manager",
			path:     "/api/v1/admin/audit-logs",
			scope:    &types.Scope{UserID: "user-2", TenantID: "org-1", Role: types.RoleManager},
			expected: http.StatusForbidden,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			sessions := session.NewMockResolverInterface(ctrl)
			tenants := tenancy.NewMockResolverInterface(ctrl)

			sessions.EXPECT().Resolve(gomock.Any()).Return(session.Session{State: session.Authenticated, UserID: "user-1"})
			tenants.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(test.scope, test.err)

			w := httptest.NewRecorder()
			newTestRouter(sessions, tenants).ServeHTTP(w, httptest.NewRequest(http.MethodGet, test.path, nil))

			if w.Code != test.expected {
				t.Fatalf("expected status %d, got %d", test.expected, w.Code)
			}

			if test.expected == http.StatusOK && w.Header().Get("X-Scope-Tenant") != test.scope.TenantID {
				t.Errorf("expected scope for tenant %s in handler", test.scope.TenantID)
			}
		})
	}
}

func TestRouterWebhooksRequireServiceKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/webhooks/signup", nil)
	r.Header.Set(identity.ServiceKeyHeader, "wrong")

	newTestRouter(session.NewMockResolverInterface(ctrl), tenancy.NewMockResolverInterface(ctrl)).ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestRouterPublicEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	for _, path := range []string{"/api/v0/status", "/api/v0/version", "/api/v0/metrics"} {
		w := httptest.NewRecorder()
		newTestRouter(session.NewMockResolverInterface(ctrl), tenancy.NewMockResolverInterface(ctrl)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusOK, w.Code)
		}
	}
}

func TestIdempotencyScope(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
	if got := idempotencyScope(r); got != "" {
		t.Errorf("expected empty scope, got %q", got)
	}

	r = r.WithContext(tenancy.WithScope(r.Context(), &types.Scope{UserID: "user-1", TenantID: "org-1"}))
	if got := idempotencyScope(r); got != "org-1:user-1" {
		t.Errorf("expected org-1:user-1, got %q", got)
	}
}

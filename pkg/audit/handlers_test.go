// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
)

func TestAPIList(t *testing.T) {
	const orgID = "0190f1d2-7c1e-7a3b-9f00-000000000001"

	tests := []struct {
		name   string
		query  string
		setup  func(*MockServiceInterface)
		status int
		count  int
	}{
		{
			name:  "all tenants",
			query: "",
			setup: func(s *MockServiceInterface) {
				s.EXPECT().List(gomock.Any(), "", uint64(0)).Return([]*types.AuditLog{{ID: "a1"}, {ID: "a2"}}, nil)
			},
			status: http.StatusOK,
			count:  2,
		},
		{
			name:  "filtered by organization",
			query: "?org_id=" + orgID + "&limit=10",
			setup: func(s *MockServiceInterface) {
				s.EXPECT().List(gomock.Any(), orgID, uint64(10)).Return([]*types.AuditLog{{ID: "a1"}}, nil)
			},
			status: http.StatusOK,
			count:  1,
		},
		{
			name:   "invalid organization id",
			query:  "?org_id=acme",
			setup:  func(*MockServiceInterface) {},
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid limit",
			query:  "?limit=-1",
			setup:  func(*MockServiceInterface) {},
			status: http.StatusBadRequest,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			logger := logging.NewNoopLogger()
			mockService := NewMockServiceInterface(ctrl)
			test.setup(mockService)

			r := chi.NewMux()
			NewAPI(mockService, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", logger), logger).RegisterEndpoints(r)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs"+test.query, nil))

			if w.Code != test.status {
				t.Fatalf("expected status %d, got %d", test.status, w.Code)
			}

			if test.status != http.StatusOK {
				return
			}

			var body ListResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if !body.Success || len(body.Logs) != test.count {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestServiceListLimits(t *testing.T) {
	tests := []struct {
		name     string
		limit    uint64
		expected uint64
	}{
		{"default", 0, DefaultListLimit},
		{"explicit", 20, 20},
		{"capped", 10000, MaxListLimit},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			logger := logging.NewNoopLogger()
			mockStorage := NewMockStorageInterface(ctrl)
			mockStorage.EXPECT().ListAuditLogs(gomock.Any(), "org-1", test.expected).Return(nil, nil)

			s := NewService(mockStorage, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", logger), logger)
			if _, err := s.List(context.Background(), "org-1", test.limit); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

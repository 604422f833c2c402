// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package credit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	httptypes "github.com/canonical/academy-ledger/internal/http/types"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
	"github.com/canonical/academy-ledger/pkg/tenancy"
)

func newTestRouter(ctrl *gomock.Controller) (*chi.Mux, *MockServiceInterface) {
	logger := logging.NewNoopLogger()
	mockService := NewMockServiceInterface(ctrl)

	r := chi.NewMux()
	NewAPI(mockService, tracing.NewNoopTracer(), monitoring.NewNoopMonitor("test", logger), logger).RegisterEndpoints(r)

	return r, mockService
}

func TestAPIAdjust(t *testing.T) {
	scope := &types.Scope{UserID: "admin", Role: types.RoleSuperAdmin}

	tests := []struct {
		name   string
		path   string
		body   string
		setup  func(*MockServiceInterface)
		status int
		code   string
	}{
		{
			name: "success",
			path: "/api/v1/admin/organizations/" + orgID + "/credit",
			body: `{"amount":500,"credit_type":"free","description":"welcome"}`,
			setup: func(s *MockServiceInterface) {
				s.EXPECT().Adjust(gomock.Any(), AdjustInput{TenantID: orgID, Amount: 500, Type: types.CreditTypeFree, Description: "welcome", ActorID: "admin"}).
					Return(&AdjustResult{NewBalance: 1500, PreviousBalance: 1000, Amount: 500}, nil)
			},
			status: http.StatusOK,
		},
		{
			name: "insufficient balance",
			path: "/api/v1/admin/organizations/" + orgID + "/credit",
			body: `{"amount":-5000,"credit_type":"paid"}`,
			setup: func(s *MockServiceInterface) {
				s.EXPECT().Adjust(gomock.Any(), gomock.Any()).
					Return(nil, ierr.NewError("insufficient").WithHint("Insufficient credit balance: current balance is 1500, cannot apply -5000").Mark(ierr.ErrInsufficientBalance))
			},
			status: http.StatusBadRequest,
			code:   ierr.ErrCodeInsufficientBalance,
		},
		{
			name:   "zero amount",
			path:   "/api/v1/admin/organizations/" + orgID + "/credit",
			body:   `{"amount":0,"credit_type":"paid"}`,
			setup:  func(*MockServiceInterface) {},
			status: http.StatusBadRequest,
			code:   ierr.ErrCodeValidation,
		},
		{
			name:   "bad credit type",
			path:   "/api/v1/admin/organizations/" + orgID + "/credit",
			body:   `{"amount":10,"credit_type":"gift"}`,
			setup:  func(*MockServiceInterface) {},
			status: http.StatusBadRequest,
			code:   ierr.ErrCodeValidation,
		},
		{
			name:   "bad organization id",
			path:   "/api/v1/admin/organizations/acme/credit",
			body:   `{"amount":10,"credit_type":"paid"}`,
			setup:  func(*MockServiceInterface) {},
			status: http.StatusBadRequest,
			code:   ierr.ErrCodeValidation,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			r, mockService := newTestRouter(ctrl)
			test.setup(mockService)

			req := httptest.NewRequest(http.MethodPost, test.path, strings.NewReader(test.body))
			req = req.WithContext(tenancy.WithScope(req.Context(), scope))
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != test.status {
				t.Fatalf("expected status %d, got %d: %s", test.status, w.Code, w.Body.String())
			}

			if test.code != "" {
				var body httptypes.ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body.Success || body.Error.Code != test.code {
					t.Errorf("expected error code %s, got %+v", test.code, body)
				}
				return
			}

			var body AdjustResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if !body.Success || body.CreditBalance != 1500 || body.PreviousBalance != 1000 || body.Amount != 500 {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestAPIGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r, mockService := newTestRouter(ctrl)

	mockService.EXPECT().Get(gomock.Any(), orgID, uint64(5)).Return(&Summary{
		Organization: &types.Organization{ID: orgID, Name: "Acme Academy", CreditBalance: 42},
		Transactions: []*types.CreditTransaction{{ID: "txn-1", BalanceAfter: 42}},
	}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/organizations/"+orgID+"/credit?limit=5", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var body SummaryResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.CreditBalance != 42 || len(body.Transactions) != 1 {
		t.Errorf("unexpected body %+v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/organizations/"+orgID+"/credit?limit=51", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for an oversized limit, got %d", w.Code)
	}
}

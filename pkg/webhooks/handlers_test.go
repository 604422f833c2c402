// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package webhooks

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/types"
)

func TestAPI_Signup(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		setupMocks     func(*MockServiceInterface)
		expectedStatus int
	}{
		{
			name:        "created",
			requestBody: signupRequest(),
			setupMocks: func(mockSvc *MockServiceInterface) {
				mockSvc.EXPECT().HandleSignup(gomock.Any(), signupRequest()).Return(&SignupResult{
					Organization: &types.Organization{ID: orgID, Slug: "acme-academy"},
					Profile:      &types.Profile{ID: userID, Role: types.RoleOwner},
					Created:      true,
				}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "replayed hook",
			requestBody: signupRequest(),
			setupMocks: func(mockSvc *MockServiceInterface) {
				mockSvc.EXPECT().HandleSignup(gomock.Any(), gomock.Any()).Return(&SignupResult{
					Organization: &types.Organization{ID: orgID},
					Profile:      &types.Profile{ID: userID},
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid request body",
			requestBody:    "not-json",
			setupMocks:     func(*MockServiceInterface) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "service error",
			requestBody: signupRequest(),
			setupMocks: func(mockSvc *MockServiceInterface) {
				mockSvc.EXPECT().HandleSignup(gomock.Any(), gomock.Any()).Return(nil, errors.New("service error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := NewMockServiceInterface(ctrl)
			api := NewAPI(mockService, logging.NewNoopLogger())

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatalf("failed to marshal request: %v", err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/webhooks/signup", bytes.NewBuffer(body))
			w := httptest.NewRecorder()

			tt.setupMocks(mockService)

			mux := chi.NewMux()
			api.RegisterEndpoints(mux)
			mux.ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.expectedStatus {
				body, _ := io.ReadAll(res.Body)
				t.Errorf("expected status %d, got %d. Body: %s", tt.expectedStatus, res.StatusCode, string(body))
			}
		})
	}
}

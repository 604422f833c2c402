// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package webhooks

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httptypes "github.com/canonical/academy-ledger/internal/http/types"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/validation"
)

type API struct {
	service ServiceInterface
	logger  logging.LoggerInterface
}

func NewAPI(service ServiceInterface, logger logging.LoggerInterface) *API {
	return &API{
		service: service,
		logger:  logger,
	}
}

// RegisterEndpoints mounts the hooks; r must check the service key and open a transaction.
func (a *API) RegisterEndpoints(r chi.Router) {
	r.Post("/webhooks/signup", a.signup)
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := validation.DecodeJSONBody(r, &req); err != nil {
		a.logger.Errorf("invalid signup payload: %v", err)
		httptypes.WriteError(w, err, a.logger)
		return
	}

	res, err := a.service.HandleSignup(r.Context(), req)
	if err != nil {
		httptypes.WriteError(w, err, a.logger)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	httptypes.WriteJSON(w, status, SignupResponse{
		Success:      true,
		Organization: res.Organization,
		Profile:      res.Profile,
		Created:      res.Created,
	})
}

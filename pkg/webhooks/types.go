// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package webhooks

import (
	"github.com/canonical/academy-ledger/internal/types"
)

// SignupRequest is the payload sent by the auth hook when a new user signs up.
type SignupRequest struct {
	ID      string `json:"id" validate:"required,uuid"`
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"max=200"`
	OrgName string `json:"org_name" validate:"required,max=200"`
}

type SignupResult struct {
	Organization *types.Organization
	Profile      *types.Profile
	// Created is false when the user had already been provisioned.
	Created bool
}

type SignupResponse struct {
	Success      bool                `json:"success"`
	Organization *types.Organization `json:"organization"`
	Profile      *types.Profile      `json:"profile"`
	Created      bool                `json:"created"`
}

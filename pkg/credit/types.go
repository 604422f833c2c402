// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package credit

import (
	"github.com/canonical/academy-ledger/internal/types"
)

type AdjustInput struct {
	TenantID    string
	Amount      int64
	Type        types.CreditType
	Description string
	ActorID     string
}

type AdjustResult struct {
	NewBalance      int64
	PreviousBalance int64
	Amount          int64
	Transaction     *types.CreditTransaction
	// Warnings lists non fatal failures that happened after the balance was written.
	Warnings []string
}

type Summary struct {
	Organization *types.Organization
	Transactions []*types.CreditTransaction
}

type AdjustRequest struct {
	Amount      int64            `json:"amount" validate:"ne=0"`
	CreditType  types.CreditType `json:"credit_type" validate:"required,oneof=free paid"`
	Description string           `json:"description" validate:"max=500"`
}

type AdjustResponse struct {
	Success         bool     `json:"success"`
	CreditBalance   int64    `json:"credit_balance"`
	PreviousBalance int64    `json:"previous_balance"`
	Amount          int64    `json:"amount"`
	Warnings        []string `json:"warnings,omitempty"`
}

type SummaryResponse struct {
	Success       bool                       `json:"success"`
	OrgID         string                     `json:"org_id"`
	Name          string                     `json:"name"`
	CreditBalance int64                      `json:"credit_balance"`
	Transactions  []*types.CreditTransaction `json:"transactions"`
}

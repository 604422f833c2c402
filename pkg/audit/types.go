// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"github.com/canonical/academy-ledger/internal/types"
)

// Entry describes one administrative mutation. Changes and Metadata are
// encoded as JSON documents.
type Entry struct {
	ActorID    string
	OrgID      string
	Action     types.AuditAction
	TargetType string
	TargetID   string
	Changes    any
	Metadata   any
}

type ListResponse struct {
	Success bool              `json:"success"`
	Logs    []*types.AuditLog `json:"logs"`
}

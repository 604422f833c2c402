// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"

	"github.com/canonical/academy-ledger/internal/types"
)

// StorageInterface is the subset of internal/storage used by the audit trail.
type StorageInterface interface {
	CreateAuditLog(ctx context.Context, l *types.AuditLog) error
	ListAuditLogs(ctx context.Context, orgID string, limit uint64) ([]*types.AuditLog, error)
}

// RecorderInterface writes audit entries without ever failing the caller.
type RecorderInterface interface {
	Record(ctx context.Context, e Entry)
}

type ServiceInterface interface {
	List(ctx context.Context, orgID string, limit uint64) ([]*types.AuditLog, error)
}

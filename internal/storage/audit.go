// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/canonical/academy-ledger/internal/types"
)

func (s *Storage) CreateAuditLog(ctx context.Context, l *types.AuditLog) error {
	ctx, span := s.tracer.Start(ctx, "storage.CreateAuditLog")
	defer span.End()

	id, err := newID("audit log")
	if err != nil {
		return err
	}

	_, err = s.db.Statement(ctx).
		Insert("audit_logs").
		Columns("id", "actor_id", "org_id", "action", "target_type", "target_id", "changes", "metadata").
		Values(id, l.ActorID, l.OrgID, l.Action, l.TargetType, l.TargetID, jsonb(l.Changes), jsonb(l.Metadata)).
		ExecContext(ctx)
	if err != nil {
		return mapWriteError(err, "failed to insert audit log")
	}

	return nil
}

// ListAuditLogs returns the newest entries first; an empty orgID lists every tenant.
func (s *Storage) ListAuditLogs(ctx context.Context, orgID string, limit uint64) ([]*types.AuditLog, error) {
	ctx, span := s.tracer.Start(ctx, "storage.ListAuditLogs")
	defer span.End()

	q := s.db.Statement(ctx).
		Select("id", "actor_id", "org_id", "action", "target_type", "target_id", "changes", "metadata", "created_at").
		From("audit_logs")

	if orgID != "" {
		q = q.Where(sq.Eq{"org_id": orgID})
	}

	rows, err := q.
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*types.AuditLog, 0)
	for rows.Next() {
		var (
			l        types.AuditLog
			changes  []byte
			metadata []byte
		)
		if err := rows.Scan(&l.ID, &l.ActorID, &l.OrgID, &l.Action, &l.TargetType, &l.TargetID, &changes, &metadata, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		l.Changes = changes
		l.Metadata = metadata
		logs = append(logs, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit logs: %w", err)
	}

	return logs, nil
}

// jsonb maps an empty document to SQL NULL.
func jsonb(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"

	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
)

const (
	DefaultListLimit uint64 = 100
	MaxListLimit     uint64 = 500
)

var _ ServiceInterface = (*Service)(nil)

type Service struct {
	storage StorageInterface

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

// List returns the newest audit entries, for every tenant when orgID is empty.
func (s *Service) List(ctx context.Context, orgID string, limit uint64) ([]*types.AuditLog, error) {
	ctx, span := s.tracer.Start(ctx, "audit.Service.List")
	defer span.End()

	if limit == 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	return s.storage.ListAuditLogs(ctx, orgID, limit)
}

func NewService(storage StorageInterface, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Service {
	return &Service{
		storage: storage,
		tracer:  tracer,
		monitor: monitor,
		logger:  logger,
	}
}

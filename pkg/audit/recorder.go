// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
)

var _ RecorderInterface = (*Recorder)(nil)

// Recorder persists audit entries in the background. A failed write is
// logged and counted, never returned to the caller.
type Recorder struct {
	storage StorageInterface
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (r *Recorder) Record(ctx context.Context, e Entry) {
	ctx, span := r.tracer.Start(ctx, "audit.Recorder.Record")
	defer span.End()

	entry := r.toLog(e)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.Warnw("audit recorder closed, dropping entry", "action", e.Action, "target_type", e.TargetType, "target_id", e.TargetID)
		r.count("dropped")
		return
	}

	// a fresh context carries neither the request deadline nor its transaction
	writeCtx := trace.ContextWithSpan(context.Background(), span)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		wctx, cancel := context.WithTimeout(writeCtx, r.timeout)
		defer cancel()

		if err := r.storage.CreateAuditLog(wctx, entry); err != nil {
			r.logger.Errorw(
				"failed to write audit log",
				"error", err,
				"actor_id", entry.ActorID,
				"action", entry.Action,
				"target_type", entry.TargetType,
				"target_id", entry.TargetID,
			)
			r.count("failure")
			return
		}

		r.count("success")
	}()
}

func (r *Recorder) toLog(e Entry) *types.AuditLog {
	l := &types.AuditLog{
		ActorID:    e.ActorID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Changes:    r.encode(e.Changes, "changes"),
		Metadata:   r.encode(e.Metadata, "metadata"),
	}

	if e.OrgID != "" {
		orgID := e.OrgID
		l.OrgID = &orgID
	}

	return l
}

func (r *Recorder) encode(v any, field string) json.RawMessage {
	if v == nil {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		r.logger.Warnw("failed to encode audit field", "field", field, "error", err)
		return nil
	}

	return raw
}

func (r *Recorder) count(outcome string) {
	if err := r.monitor.IncOperation(map[string]string{"operation": "audit.record", "outcome": outcome}); err != nil {
		r.logger.Debugf("failed to count audit write: %v", err)
	}
}

// Close stops accepting entries and waits for in-flight writes.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
}

func NewRecorder(storage StorageInterface, timeout time.Duration, tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Recorder {
	r := new(Recorder)
	r.storage = storage
	r.timeout = timeout

	r.tracer = tracer
	r.monitor = monitor
	r.logger = logger

	return r
}

// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"context"
	"slices"

	ierr "github.com/canonical/academy-ledger/internal/errors"
	"github.com/canonical/academy-ledger/internal/logging"
	"github.com/canonical/academy-ledger/internal/monitoring"
	"github.com/canonical/academy-ledger/internal/tracing"
	"github.com/canonical/academy-ledger/internal/types"
)

var _ AuthorizerInterface = (*Authorizer)(nil)

type Authorizer struct {
	tracer  tracing.TracingInterface
	monitor monitoring.MonitorInterface
	logger  logging.LoggerInterface
}

func (a *Authorizer) Allowed(scope *types.Scope, action Action) bool {
	if scope == nil {
		return false
	}
	return slices.Contains(policy[action], scope.Role)
}

func (a *Authorizer) Check(ctx context.Context, scope *types.Scope, action Action) error {
	_, span := a.tracer.Start(ctx, "authorization.Authorizer.Check")
	defer span.End()

	if a.Allowed(scope, action) {
		return nil
	}

	subject := ""
	role := ""
	if scope != nil {
		subject = scope.UserID
		role = string(scope.Role)
	}

	a.logger.Security().AuthzFailure(subject, string(action))

	return ierr.NewError("role not permitted").
		WithHintf("Role %q is not allowed to perform this action", role).
		Mark(ierr.ErrForbidden)
}

func NewAuthorizer(tracer tracing.TracingInterface, monitor monitoring.MonitorInterface, logger logging.LoggerInterface) *Authorizer {
	a := new(Authorizer)

	a.tracer = tracer
	a.monitor = monitor
	a.logger = logger

	return a
}

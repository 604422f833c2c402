// Copyright 2025 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authorization

import (
	"github.com/canonical/academy-ledger/internal/types"
)

type Action string

const (
	ActionRecordPayment Action = "payment:record"
	ActionCancelPayment Action = "payment:cancel"
	ActionViewPayments  Action = "payment:view"
	ActionAdjustCredit  Action = "credit:adjust"
	ActionViewCredit    Action = "credit:view"
	ActionViewAuditLogs Action = "audit:view"
)

// policy is role based, not ownership based.
var policy = map[Action][]types.Role{
	ActionRecordPayment: {types.RoleOwner, types.RoleManager},
	ActionCancelPayment: {types.RoleOwner, types.RoleManager},
	ActionViewPayments:  {types.RoleOwner, types.RoleManager, types.RoleTeacher, types.RoleService},
	ActionAdjustCredit:  {types.RoleSuperAdmin},
	ActionViewCredit:    {types.RoleSuperAdmin},
	ActionViewAuditLogs: {types.RoleSuperAdmin},
}

// RolesFor returns the roles permitted to perform action.
func RolesFor(action Action) []types.Role {
	return policy[action]
}

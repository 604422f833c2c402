// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package payments

import (
	"github.com/canonical/academy-ledger/internal/types"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// RecordInput is the body of a payment recording request.
type RecordInput struct {
	StudentID           string         `json:"student_id" validate:"required,uuid"`
	StudentName         string         `json:"student_name" validate:"required,max=200"`
	Amount              int64          `json:"amount" validate:"gt=0"`
	PaymentMethod       string         `json:"payment_method" validate:"required,max=50"`
	RevenueCategoryID   *string        `json:"revenue_category_id,omitempty" validate:"omitempty,uuid"`
	RevenueCategoryName *string        `json:"revenue_category_name,omitempty" validate:"omitempty,max=200"`
	ClassCredits        *ClassCredits  `json:"class_credits,omitempty"`
	StudyRoomPass       *StudyRoomPass `json:"study_room_pass,omitempty"`
	Notes               *string        `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type ClassCredits struct {
	Hours float64 `json:"hours" validate:"gte=0,lte=10000"`
}

type StudyRoomPass struct {
	Type   types.PassType `json:"type" validate:"required,oneof=hours days"`
	Amount int64          `json:"amount" validate:"gt=0,lte=3650"`
}

// Minutes converts the pass into study room minutes.
func (p StudyRoomPass) Minutes() int64 {
	switch p.Type {
	case types.PassTypeHours:
		return p.Amount * minutesPerHour
	case types.PassTypeDays:
		return p.Amount * minutesPerDay
	}
	return 0
}

type CancelRequest struct {
	Status types.PaymentStatus `json:"status,omitempty" validate:"omitempty,eq=cancelled"`
}

type ListFilter struct {
	StudentID string
	Status    types.PaymentStatus
	Page      int64
	Size      int64
}

// Rollback holds entitlements removed from a student.
type Rollback struct {
	Credits     float64 `json:"credits"`
	PassMinutes int64   `json:"passMinutes"`
}

func (r Rollback) IsZero() bool {
	return r.Credits == 0 && r.PassMinutes == 0
}

type CancelResult struct {
	Payment *types.Payment
	// Rollback is what was actually subtracted.
	Rollback Rollback
	// Clipped is the part of the original grant the zero floor prevented from being subtracted.
	Clipped Rollback
}

type RecordResponse struct {
	Success bool           `json:"success"`
	Payment *types.Payment `json:"payment"`
	Message string         `json:"message"`
}

type CancelResponse struct {
	Success  bool           `json:"success"`
	Payment  *types.Payment `json:"payment"`
	Rollback Rollback       `json:"rollback"`
	Clipped  *Rollback      `json:"clipped,omitempty"`
	Message  string         `json:"message"`
}

type GetResponse struct {
	Success bool           `json:"success"`
	Payment *types.Payment `json:"payment"`
}

type ListResponse struct {
	Success  bool             `json:"success"`
	Payments []*types.Payment `json:"payments"`
	Page     int64            `json:"page"`
	Size     int64            `json:"size"`
}

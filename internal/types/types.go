// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package types

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleOwner      Role = "owner"
	RoleManager    Role = "manager"
	RoleTeacher    Role = "teacher"
	RoleSuperAdmin Role = "super_admin"
	// RoleService is assigned to server-to-server calls acting on behalf of a tenant.
	RoleService Role = "service"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleManager, RoleTeacher, RoleSuperAdmin, RoleService:
		return true
	}
	return false
}

type CreditType string

const (
	CreditTypeFree CreditType = "free"
	CreditTypePaid CreditType = "paid"
)

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

type PassType string

const (
	PassTypeHours PassType = "hours"
	PassTypeDays  PassType = "days"
)

type Organization struct {
	ID                    string     `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	Slug                  string     `db:"slug" json:"slug"`
	CreditBalance         int64      `db:"credit_balance" json:"credit_balance"`
	SubscriptionPlan      string     `db:"subscription_plan" json:"subscription_plan"`
	SubscriptionStatus    string     `db:"subscription_status" json:"subscription_status"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at" json:"subscription_expires_at,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

type Profile struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Role      Role      `db:"role" json:"role"`
	OrgID     *string   `db:"org_id" json:"org_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreditTransaction struct {
	ID           string     `db:"id" json:"id"`
	Seq          int64      `db:"seq" json:"-"`
	OrgID        string     `db:"org_id" json:"org_id"`
	Amount       int64      `db:"amount" json:"amount"`
	BalanceAfter int64      `db:"balance_after" json:"balance_after"`
	Type         CreditType `db:"type" json:"type"`
	Description  string     `db:"description" json:"description"`
	ActorID      string     `db:"actor_id" json:"actor_id"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Student carries the per-student entitlement balances granted by payments.
type Student struct {
	ID               string    `db:"id" json:"id"`
	OrgID            string    `db:"org_id" json:"org_id"`
	Name             string    `db:"name" json:"name"`
	CreditHours      float64   `db:"credit_hours" json:"credit_hours"`
	RemainingMinutes int64     `db:"remaining_minutes" json:"remaining_minutes"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

type Payment struct {
	ID                  string        `db:"id" json:"id"`
	OrgID               string        `db:"org_id" json:"org_id"`
	StudentID           string        `db:"student_id" json:"student_id"`
	StudentName         string        `db:"student_name" json:"student_name"`
	Amount              int64         `db:"amount" json:"amount"`
	PaymentMethod       string        `db:"payment_method" json:"payment_method"`
	RevenueCategoryID   *string       `db:"revenue_category_id" json:"revenue_category_id,omitempty"`
	RevenueCategoryName *string       `db:"revenue_category_name" json:"revenue_category_name,omitempty"`
	GrantedClassHours   float64       `db:"granted_class_hours" json:"granted_class_hours"`
	GrantedPassType     *PassType     `db:"granted_pass_type" json:"granted_pass_type,omitempty"`
	GrantedPassAmount   *int64        `db:"granted_pass_amount" json:"granted_pass_amount,omitempty"`
	GrantedPassMinutes  int64         `db:"granted_pass_minutes" json:"granted_pass_minutes"`
	Status              PaymentStatus `db:"status" json:"status"`
	Notes               *string       `db:"notes" json:"notes,omitempty"`
	CreatedBy           string        `db:"created_by" json:"created_by"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	RefundedAt          *time.Time    `db:"refunded_at" json:"refunded_at,omitempty"`
}

type PaymentFilter struct {
	StudentID string
	Status    PaymentStatus
	Page      int64
	Size      int64
}

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionCancel AuditAction = "cancel"
	AuditActionAdjust AuditAction = "adjust"
)

type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	ActorID    string          `db:"actor_id" json:"actor_id"`
	OrgID      *string         `db:"org_id" json:"org_id,omitempty"`
	Action     AuditAction     `db:"action" json:"action"`
	TargetType string          `db:"target_type" json:"target_type"`
	TargetID   string          `db:"target_id" json:"target_id"`
	Changes    json.RawMessage `db:"changes" json:"changes,omitempty"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// Scope is the resolved caller for a tenant scoped request.
type Scope struct {
	UserID   string
	TenantID string
	Role     Role
	// Service marks server-to-server calls resolved from an explicit tenant slug.
	Service bool
}

func (s *Scope) IsSuperAdmin() bool {
	return s != nil && s.Role == RoleSuperAdmin
}

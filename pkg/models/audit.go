package models

import "time"

type AuditEvent string

const (
	AuditApiCreated         AuditEvent = "API_CREATED"
	AuditApiUpdated         AuditEvent = "API_UPDATED"
	AuditApiDeleted         AuditEvent = "API_DELETED"
	AuditMembershipCreated  AuditEvent = "MEMBERSHIP_CREATED"
	AuditPlanCreated        AuditEvent = "PLAN_CREATED"
	AuditPlanUpdated        AuditEvent = "PLAN_UPDATED"
	AuditPageCreated        AuditEvent = "PAGE_CREATED"
	AuditPageUpdated        AuditEvent = "PAGE_UPDATED"
	AuditSubscriptionClosed AuditEvent = "SUBSCRIPTION_CLOSED"
)

// Audit property keys, referencing the secondary resource of an event.
const (
	AuditPropertyUser        = "USER"
	AuditPropertyPlan        = "PLAN"
	AuditPropertyPage        = "PAGE"
	AuditPropertyApplication = "APPLICATION"
)

const AuditReferenceApi = "API"

// AuditEntry is one immutable line of the audit trail.
type AuditEntry struct {
	ID             string            `db:"id" json:"id"`
	OrganizationID string            `db:"organization_id" json:"organization_id"`
	EnvironmentID  string            `db:"environment_id" json:"environment_id"`
	ReferenceType  string            `db:"reference_type" json:"reference_type"`
	ReferenceID    string            `db:"reference_id" json:"reference_id"`
	User           string            `db:"user_id" json:"user"`
	Event          AuditEvent        `db:"event" json:"event"`
	Properties     map[string]string `db:"-" json:"properties,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
}

// AuditInfo identifies the actor on whose behalf an operation runs.
type AuditInfo struct {
	OrganizationID string `json:"organization_id"`
	EnvironmentID  string `json:"environment_id"`
	UserID         string `json:"user_id"`
}

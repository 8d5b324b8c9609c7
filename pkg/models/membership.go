package models

import "time"

type PrimaryOwnerMode string

const (
	PrimaryOwnerModeUser   PrimaryOwnerMode = "USER"
	PrimaryOwnerModeGroup  PrimaryOwnerMode = "GROUP"
	PrimaryOwnerModeHybrid PrimaryOwnerMode = "HYBRID"
)

const MembershipSourceSystem = "system"

// Membership grants a member a role on a catalog resource. Ingestion creates
// the primary owner membership for the initiating user.
type Membership struct {
	ID            string    `db:"id" json:"id"`
	MemberID      string    `db:"member_id" json:"member_id"`
	MemberType    string    `db:"member_type" json:"member_type"`
	ReferenceType string    `db:"reference_type" json:"reference_type"`
	ReferenceID   string    `db:"reference_id" json:"reference_id"`
	RoleID        string    `db:"role_id" json:"role_id"`
	Source        string    `db:"source" json:"source"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ApiPrimaryOwnerRoleID is the scoped role granted to the primary owner of an
// API within an organization.
func ApiPrimaryOwnerRoleID(organizationID string) string {
	return "api-primary-owner-" + organizationID
}

// NewPrimaryOwnerMembership builds the primary owner membership created when
// an API is ingested on behalf of a user.
func NewPrimaryOwnerMembership(id, apiID, userID, organizationID string, now time.Time) Membership {
	return Membership{
		ID:            id,
		MemberID:      userID,
		MemberType:    "USER",
		ReferenceType: AuditReferenceApi,
		ReferenceID:   apiID,
		RoleID:        ApiPrimaryOwnerRoleID(organizationID),
		Source:        MembershipSourceSystem,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

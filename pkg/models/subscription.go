package models

import "time"

type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "PENDING"
	SubscriptionStatusAccepted SubscriptionStatus = "ACCEPTED"
	SubscriptionStatusPaused   SubscriptionStatus = "PAUSED"
	SubscriptionStatusRejected SubscriptionStatus = "REJECTED"
	SubscriptionStatusClosed   SubscriptionStatus = "CLOSED"
)

// Subscription links an application to a plan of a federated API.
type Subscription struct {
	ID            string             `db:"id" json:"id"`
	ApiID         string             `db:"api_id" json:"api_id"`
	PlanID        string             `db:"plan_id" json:"plan_id"`
	ApplicationID string             `db:"application_id" json:"application_id"`
	Status        SubscriptionStatus `db:"status" json:"status"`
	ClosedAt      *time.Time         `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the subscription still grants access and must be
// closed before its API can be retracted.
func (s Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusAccepted || s.Status == SubscriptionStatusPaused
}

// Close transitions the subscription to CLOSED.
func (s Subscription) Close(now time.Time) Subscription {
	closed := s
	closed.Status = SubscriptionStatusClosed
	closed.ClosedAt = &now
	closed.UpdatedAt = now
	return closed
}

// ApiKey is a credential issued for a subscription.
type ApiKey struct {
	ID             string     `db:"id" json:"id"`
	SubscriptionID string     `db:"subscription_id" json:"subscription_id"`
	Key            string     `db:"key" json:"key"`
	Revoked        bool       `db:"revoked" json:"revoked"`
	RevokedAt      *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

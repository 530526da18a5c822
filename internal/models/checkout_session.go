package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/multitest-app/backend/internal/billing"
)

// SessionStatus is the lifecycle state of a checkout attempt. The only legal
// forward transition is pending -> completed; there is no transition out of
// completed. The transition is performed with a conditional update so that
// concurrent reconciliations cannot both record it.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// CheckoutSession is this service's own ledger entry for a checkout attempt,
// keyed by the processor-issued session ID and reconciled against the
// processor's record. Rows are never deleted; the table doubles as an audit
// trail.
type CheckoutSession struct {
	SessionID       string           `gorm:"primaryKey;size:255" json:"session_id"`
	UserID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	UserEmail       string           `gorm:"size:255" json:"user_email"`
	ProductID       string           `gorm:"size:100;not null;index" json:"product_id"`
	ProductName     string           `gorm:"size:255" json:"product_name"`
	PriceID         string           `gorm:"size:255;not null" json:"price_id"`
	Plan            billing.PlanTier `gorm:"size:20;not null" json:"plan"`
	Status          SessionStatus    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CustomerRef     string           `gorm:"size:255" json:"customer_ref"`
	SubscriptionRef string           `gorm:"size:255;index" json:"subscription_ref"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

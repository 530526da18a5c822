package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/multitest-app/backend/internal/billing"
)

type EntitlementStatus string

const (
	EntitlementActive    EntitlementStatus = "active"
	EntitlementCancelled EntitlementStatus = "cancelled"
)

// Entitlement records that a user holds (or held) paid access to a product.
// At most one row exists per (user, product) pair. Rows are never deleted:
// cancellation flips Status and zeroes the plan instead.
type Entitlement struct {
	ID              uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_entitlements_user_product" json:"user_id"`
	ProductID       string            `gorm:"size:100;not null;uniqueIndex:idx_entitlements_user_product" json:"product_id"`
	ProductName     string            `gorm:"size:255" json:"product_name"`
	Plan            billing.PlanTier  `gorm:"size:20;not null;default:'none'" json:"plan"`
	Status          EntitlementStatus `gorm:"size:20;not null;default:'active';index" json:"status"`
	UsageCounter    int               `gorm:"not null;default:0" json:"usage_counter"`
	CustomerRef     string            `gorm:"size:255" json:"customer_ref"`
	SubscriptionRef string            `gorm:"size:255;index" json:"subscription_ref"`
	ActivatedAt     *time.Time        `json:"activated_at,omitempty"`
	CancelledAt     *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

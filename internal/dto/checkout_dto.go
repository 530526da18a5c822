package dto

import (
	"time"

	"github.com/multitest-app/backend/internal/billing"
)

// The checkout and subscription DTOs use camelCase field names: the frontend
// contract predates this service and is fixed.

type CreateCheckoutRequest struct {
	PriceID     string `json:"priceId"`
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
}

type CreateCheckoutResponse struct {
	SessionID string `json:"sessionId"`
	Success   bool   `json:"success"`
}

type VerifyPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

type VerifyPaymentResponse struct {
	Success  bool             `json:"success"`
	Plan     billing.PlanTier `json:"plan"`
	Category string           `json:"category"`
}

type PaymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	ID           string `json:"id"`
}

type SubscriptionResponse struct {
	ProductID    string           `json:"productId"`
	ProductName  string           `json:"productName"`
	Plan         billing.PlanTier `json:"plan"`
	Status       string           `json:"status"`
	UsageCounter int              `json:"usageCounter"`
	ActivatedAt  *time.Time       `json:"activatedAt,omitempty"`
	CancelledAt  *time.Time       `json:"cancelledAt,omitempty"`
}

type UsageResponse struct {
	ProductID    string `json:"productId"`
	UsageCounter int    `json:"usageCounter"`
}

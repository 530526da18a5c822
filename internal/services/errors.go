package services

import "errors"

// Typed errors surfaced by the checkout and reconciliation services. Handlers
// map these to stable HTTP codes so the frontend can branch on them.
var (
	ErrUnauthenticated     = errors.New("caller identity is required")
	ErrInvalidArgument     = errors.New("missing or invalid request data")
	ErrPaymentNotCompleted = errors.New("payment has not completed for this session")
	ErrPermissionDenied    = errors.New("checkout session belongs to a different user")
	ErrSessionNotFound     = errors.New("checkout session not found")
	ErrSubscriptionMissing = errors.New("no subscription for this product")
	ErrSubscriptionExpired = errors.New("subscription is not active")
)

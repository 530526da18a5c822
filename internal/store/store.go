// Package store persists the session ledger and the entitlement records.
// The interfaces exist so the reconciliation logic can be exercised against
// in-memory implementations; production wiring uses the gorm-backed ones.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/multitest-app/backend/internal/models"
)

var (
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrEntitlementNotFound  = errors.New("entitlement not found")
	ErrEntitlementNotActive = errors.New("entitlement is not active")
)

// SessionStore is the durable ledger of checkout attempts.
type SessionStore interface {
	// Create writes a new ledger entry. The session ID is the primary key;
	// one entry exists per checkout attempt.
	Create(ctx context.Context, entry *models.CheckoutSession) error

	// Get returns the ledger entry for a session ID, or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*models.CheckoutSession, error)

	// MarkCompleted atomically transitions the entry from pending to
	// completed, stamping completedAt and the processor references. Returns
	// false when the entry was no longer pending, which is how a concurrent
	// reconciliation of the same session loses the race exactly once.
	MarkCompleted(ctx context.Context, sessionID, customerRef, subscriptionRef string, completedAt time.Time) (bool, error)

	// FindBySubscriptionRef returns the ledger entry linked to a processor
	// subscription, or ErrSessionNotFound when no linkage exists.
	FindBySubscriptionRef(ctx context.Context, subscriptionRef string) (*models.CheckoutSession, error)
}

// EntitlementStore holds the per-(user, product) entitlement records.
type EntitlementStore interface {
	Get(ctx context.Context, userID uuid.UUID, productID string) (*models.Entitlement, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Entitlement, error)

	// Activate upserts the entitlement for (UserID, ProductID), keeping at
	// most one row per pair.
	Activate(ctx context.Context, ent *models.Entitlement) error

	// Cancel flips the entitlement to cancelled with plan none. The record
	// is created in cancelled state if it does not exist yet, mirroring the
	// merge-write the processor-driven cancellation performs.
	Cancel(ctx context.Context, userID uuid.UUID, productID string, at time.Time) error

	// IncrementUsage bumps the usage counter of an active entitlement and
	// returns the new value. Returns ErrEntitlementNotFound or
	// ErrEntitlementNotActive.
	IncrementUsage(ctx context.Context, userID uuid.UUID, productID string) (int, error)
}

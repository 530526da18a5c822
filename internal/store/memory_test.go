package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multitest-app/backend/internal/billing"
	"github.com/multitest-app/backend/internal/models"
)

func TestMemorySessionStore_MarkCompletedOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()
	userID := uuid.New()

	require.NoError(t, s.Create(ctx, &models.CheckoutSession{
		SessionID: "cs_1",
		UserID:    userID,
		ProductID: "prod_a",
		Plan:      billing.PlanMonthly,
		Status:    models.SessionPending,
	}))

	now := time.Now().UTC()

	won, err := s.MarkCompleted(ctx, "cs_1", "cus_1", "sub_1", now)
	require.NoError(t, err)
	assert.True(t, won)

	// A second completion of the same session must lose.
	won, err = s.MarkCompleted(ctx, "cs_1", "cus_other", "sub_other", now)
	require.NoError(t, err)
	assert.False(t, won)

	entry, err := s.Get(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, entry.Status)
	assert.Equal(t, "cus_1", entry.CustomerRef)
	assert.Equal(t, "sub_1", entry.SubscriptionRef)
	require.NotNil(t, entry.CompletedAt)
}

func TestMemorySessionStore_MarkCompletedUnknownSession(t *testing.T) {
	s := NewMemorySessionStore()

	won, err := s.MarkCompleted(context.Background(), "cs_missing", "cus_1", "sub_1", time.Now())
	require.NoError(t, err)
	assert.False(t, won)
}

func TestMemorySessionStore_GetNotFound(t *testing.T) {
	s := NewMemorySessionStore()

	_, err := s.Get(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStore_FindBySubscriptionRef(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySessionStore()
	userID := uuid.New()

	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()

	require.NoError(t, s.Create(ctx, &models.CheckoutSession{
		SessionID: "cs_old", UserID: userID, ProductID: "prod_a",
		SubscriptionRef: "sub_1", CreatedAt: older,
	}))
	require.NoError(t, s.Create(ctx, &models.CheckoutSession{
		SessionID: "cs_new", UserID: userID, ProductID: "prod_b",
		SubscriptionRef: "sub_1", CreatedAt: newer,
	}))

	entry, err := s.FindBySubscriptionRef(ctx, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "cs_new", entry.SessionID)

	_, err = s.FindBySubscriptionRef(ctx, "sub_unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = s.FindBySubscriptionRef(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryEntitlementStore_ActivateUpserts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryEntitlementStore()
	userID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, s.Activate(ctx, &models.Entitlement{
		UserID: userID, ProductID: "prod_a", ProductName: "Analysis",
		Plan: billing.PlanMonthly, Status: models.EntitlementActive,
		ActivatedAt: &now,
	}))

	first, err := s.Get(ctx, userID, "prod_a")
	require.NoError(t, err)
	assert.Equal(t, billing.PlanMonthly, first.Plan)

	// Re-activation with a new plan keeps the identity, replaces the state.
	require.NoError(t, s.Activate(ctx, &models.Entitlement{
		UserID: userID, ProductID: "prod_a", ProductName: "Analysis",
		Plan: billing.PlanYearly, Status: models.EntitlementActive,
		ActivatedAt: &now,
	}))

	second, err := s.Get(ctx, userID, "prod_a")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, billing.PlanYearly, second.Plan)

	ents, err := s.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, ents, 1)
}

func TestMemoryEntitlementStore_Cancel(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryEntitlementStore()
	userID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, s.Activate(ctx, &models.Entitlement{
		UserID: userID, ProductID: "prod_a",
		Plan: billing.PlanMonthly, Status: models.EntitlementActive,
	}))

	require.NoError(t, s.Cancel(ctx, userID, "prod_a", now))

	ent, err := s.Get(ctx, userID, "prod_a")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementCancelled, ent.Status)
	assert.Equal(t, billing.PlanNone, ent.Plan)
	require.NotNil(t, ent.CancelledAt)

	// Cancelling an unknown pair records the terminal state anyway.
	require.NoError(t, s.Cancel(ctx, userID, "prod_b", now))
	ent, err = s.Get(ctx, userID, "prod_b")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementCancelled, ent.Status)
}

func TestMemoryEntitlementStore_IncrementUsage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryEntitlementStore()
	userID := uuid.New()

	_, err := s.IncrementUsage(ctx, userID, "prod_a")
	assert.ErrorIs(t, err, ErrEntitlementNotFound)

	require.NoError(t, s.Activate(ctx, &models.Entitlement{
		UserID: userID, ProductID: "prod_a",
		Plan: billing.PlanMonthly, Status: models.EntitlementActive,
	}))

	used, err := s.IncrementUsage(ctx, userID, "prod_a")
	require.NoError(t, err)
	assert.Equal(t, 1, used)

	used, err = s.IncrementUsage(ctx, userID, "prod_a")
	require.NoError(t, err)
	assert.Equal(t, 2, used)

	require.NoError(t, s.Cancel(ctx, userID, "prod_a", time.Now().UTC()))

	_, err = s.IncrementUsage(ctx, userID, "prod_a")
	assert.ErrorIs(t, err, ErrEntitlementNotActive)
}

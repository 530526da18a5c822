package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multitest-app/backend/internal/billing"
	"github.com/multitest-app/backend/internal/models"
	"github.com/multitest-app/backend/internal/store"
)

func TestListSubscriptions(t *testing.T) {
	ctx := context.Background()
	entitlements := store.NewMemoryEntitlementStore()
	svc := NewEntitlementService(entitlements)
	userID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, entitlements.Activate(ctx, &models.Entitlement{
		UserID: userID, ProductID: "prod_analysis", ProductName: "Analysis",
		Plan: billing.PlanMonthly, Status: models.EntitlementActive,
		UsageCounter: 3, ActivatedAt: &now,
	}))
	require.NoError(t, entitlements.Activate(ctx, &models.Entitlement{
		UserID: userID, ProductID: "prod_reports", ProductName: "Reports",
		Plan: billing.PlanYearly, Status: models.EntitlementActive,
		ActivatedAt: &now,
	}))
	// Someone else's entitlement must not leak into the listing.
	require.NoError(t, entitlements.Activate(ctx, &models.Entitlement{
		UserID: uuid.New(), ProductID: "prod_analysis",
		Plan: billing.PlanMonthly, Status: models.EntitlementActive,
	}))

	subs, err := svc.ListSubscriptions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "prod_analysis", subs[0].ProductID)
	assert.Equal(t, 3, subs[0].UsageCounter)
	assert.Equal(t, "prod_reports", subs[1].ProductID)
	assert.Equal(t, billing.PlanYearly, subs[1].Plan)
}

func TestListSubscriptions_Empty(t *testing.T) {
	svc := NewEntitlementService(store.NewMemoryEntitlementStore())

	subs, err := svc.ListSubscriptions(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, err = svc.ListSubscriptions(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestConsumeUsage(t *testing.T) {
	ctx := context.Background()
	entitlements := store.NewMemoryEntitlementStore()
	svc := NewEntitlementService(entitlements)
	userID := uuid.New()

	require.NoError(t, entitlements.Activate(ctx, &models.Entitlement{
		UserID: userID, ProductID: "prod_analysis",
		Plan: billing.PlanMonthly, Status: models.EntitlementActive,
	}))

	resp, err := svc.ConsumeUsage(ctx, userID, "prod_analysis")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.UsageCounter)

	resp, err = svc.ConsumeUsage(ctx, userID, "prod_analysis")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.UsageCounter)
}

func TestConsumeUsage_Errors(t *testing.T) {
	ctx := context.Background()
	entitlements := store.NewMemoryEntitlementStore()
	svc := NewEntitlementService(entitlements)
	userID := uuid.New()

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := svc.ConsumeUsage(ctx, uuid.Nil, "prod_analysis")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("missing product id", func(t *testing.T) {
		_, err := svc.ConsumeUsage(ctx, userID, "")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("no subscription", func(t *testing.T) {
		_, err := svc.ConsumeUsage(ctx, userID, "prod_analysis")
		assert.ErrorIs(t, err, ErrSubscriptionMissing)
	})

	t.Run("cancelled subscription", func(t *testing.T) {
		require.NoError(t, entitlements.Activate(ctx, &models.Entitlement{
			UserID: userID, ProductID: "prod_analysis",
			Plan: billing.PlanMonthly, Status: models.EntitlementActive,
		}))
		require.NoError(t, entitlements.Cancel(ctx, userID, "prod_analysis", time.Now().UTC()))

		_, err := svc.ConsumeUsage(ctx, userID, "prod_analysis")
		assert.ErrorIs(t, err, ErrSubscriptionExpired)
	})
}

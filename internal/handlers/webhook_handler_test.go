package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multitest-app/backend/internal/billing"
	"github.com/multitest-app/backend/internal/models"
	"github.com/multitest-app/backend/internal/services"
	"github.com/multitest-app/backend/internal/store"
)

const webhookTestSecret = "whsec_handler_test"

func signWebhookPayload(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type webhookFixture struct {
	app          *fiber.App
	sessions     *store.MemorySessionStore
	entitlements *store.MemoryEntitlementStore
	userID       uuid.UUID
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	provider, err := billing.NewStripeProvider(billing.StripeConfig{
		APIKey:        "sk_test_dummy",
		WebhookSecret: webhookTestSecret,
		SuccessURL:    "https://app.example.com/success.html",
		CancelURL:     "https://app.example.com/cancel.html",
	})
	require.NoError(t, err)

	plans := billing.NewPlanResolver(map[string]billing.PlanTier{
		"price_monthly": billing.PlanMonthly,
	})

	f := &webhookFixture{
		sessions:     store.NewMemorySessionStore(),
		entitlements: store.NewMemoryEntitlementStore(),
		userID:       uuid.New(),
	}

	reconciler := services.NewReconcileService(provider, plans, f.sessions, f.entitlements)
	handler := NewWebhookHandler(provider, reconciler)

	f.app = fiber.New()
	f.app.Post("/api/webhooks/stripe", handler.HandleStripe)
	return f
}

func (f *webhookFixture) deliver(t *testing.T, payload []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func checkoutCompletedPayload(sessionID string, userID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": %q,
				"payment_status": "paid",
				"customer": "cus_1",
				"subscription": "sub_1",
				"metadata": {
					"userId": %q,
					"productId": "prod_analysis",
					"productName": "Analysis",
					"priceId": "price_monthly"
				}
			}
		}
	}`, sessionID, userID))
}

func TestHandleStripe_CheckoutCompleted(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.Create(ctx, &models.CheckoutSession{
		SessionID:   "cs_1",
		UserID:      f.userID,
		ProductID:   "prod_analysis",
		ProductName: "Analysis",
		PriceID:     "price_monthly",
		Plan:        billing.PlanMonthly,
		Status:      models.SessionPending,
	}))

	payload := checkoutCompletedPayload("cs_1", f.userID)
	resp := f.deliver(t, payload, signWebhookPayload(payload, webhookTestSecret, time.Now()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["received"])

	ent, err := f.entitlements.Get(ctx, f.userID, "prod_analysis")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementActive, ent.Status)
	assert.Equal(t, billing.PlanMonthly, ent.Plan)
}

func TestHandleStripe_RejectsInvalidSignature(t *testing.T) {
	f := newWebhookFixture(t)
	payload := checkoutCompletedPayload("cs_1", f.userID)

	t.Run("tampered payload", func(t *testing.T) {
		signature := signWebhookPayload(payload, webhookTestSecret, time.Now())
		tampered := bytes.Replace(payload, []byte("prod_analysis"), []byte("prod_premium1"), 1)
		resp := f.deliver(t, tampered, signature)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		resp := f.deliver(t, payload, signWebhookPayload(payload, "whsec_wrong", time.Now()))
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing header", func(t *testing.T) {
		resp := f.deliver(t, payload, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	// Nothing was granted by any of the rejected deliveries.
	_, err := f.entitlements.Get(context.Background(), f.userID, "prod_analysis")
	assert.ErrorIs(t, err, store.ErrEntitlementNotFound)
}

func TestHandleStripe_UnknownSessionAcknowledged(t *testing.T) {
	f := newWebhookFixture(t)

	// Valid signature, but no ledger entry and no usable metadata: a foreign
	// event gets a 200 so the processor stops redelivering.
	payload := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_foreign", "payment_status": "paid"}}
	}`)
	resp := f.deliver(t, payload, signWebhookPayload(payload, webhookTestSecret, time.Now()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandleStripe_IgnoredEventType(t *testing.T) {
	f := newWebhookFixture(t)

	payload := []byte(`{
		"id": "evt_3",
		"type": "invoice.payment_succeeded",
		"data": {"object": {"id": "in_1"}}
	}`)
	resp := f.deliver(t, payload, signWebhookPayload(payload, webhookTestSecret, time.Now()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHandleStripe_SubscriptionDeleted(t *testing.T) {
	f := newWebhookFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.Create(ctx, &models.CheckoutSession{
		SessionID:       "cs_1",
		UserID:          f.userID,
		ProductID:       "prod_analysis",
		Plan:            billing.PlanMonthly,
		Status:          models.SessionCompleted,
		SubscriptionRef: "sub_1",
	}))
	require.NoError(t, f.entitlements.Activate(ctx, &models.Entitlement{
		UserID: f.userID, ProductID: "prod_analysis",
		Plan: billing.PlanMonthly, Status: models.EntitlementActive,
		SubscriptionRef: "sub_1",
	}))

	payload := []byte(`{
		"id": "evt_4",
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "status": "canceled"}}
	}`)
	resp := f.deliver(t, payload, signWebhookPayload(payload, webhookTestSecret, time.Now()))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	ent, err := f.entitlements.Get(ctx, f.userID, "prod_analysis")
	require.NoError(t, err)
	assert.Equal(t, models.EntitlementCancelled, ent.Status)
}

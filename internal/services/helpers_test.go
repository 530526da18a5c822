package services

import (
	"context"
	"errors"

	"github.com/multitest-app/backend/internal/billing"
)

// fakeProvider implements billing.Provider with pluggable behavior, so the
// services can be exercised without network calls.
type fakeProvider struct {
	createSessionFn func(ctx context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error)
	getSessionFn    func(ctx context.Context, sessionID string) (*billing.CheckoutSession, error)
	createIntentFn  func(ctx context.Context, params billing.PaymentIntentParams) (*billing.PaymentIntent, error)

	createSessionCalls int
	getSessionCalls    int
}

func (p *fakeProvider) CreateCheckoutSession(ctx context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	p.createSessionCalls++
	if p.createSessionFn == nil {
		return nil, errors.New("createSessionFn not set")
	}
	return p.createSessionFn(ctx, params)
}

func (p *fakeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*billing.CheckoutSession, error) {
	p.getSessionCalls++
	if p.getSessionFn == nil {
		return nil, errors.New("getSessionFn not set")
	}
	return p.getSessionFn(ctx, sessionID)
}

func (p *fakeProvider) CreatePaymentIntent(ctx context.Context, params billing.PaymentIntentParams) (*billing.PaymentIntent, error) {
	if p.createIntentFn == nil {
		return nil, errors.New("createIntentFn not set")
	}
	return p.createIntentFn(ctx, params)
}

func (p *fakeProvider) ParseWebhookEvent(payload []byte, signature string) (*billing.Event, error) {
	return nil, errors.New("not used in service tests")
}

func testPlans() *billing.PlanResolver {
	return billing.NewPlanResolver(map[string]billing.PlanTier{
		"price_monthly": billing.PlanMonthly,
		"price_yearly":  billing.PlanYearly,
	})
}

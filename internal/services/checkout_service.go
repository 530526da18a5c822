package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/multitest-app/backend/internal/billing"
	"github.com/multitest-app/backend/internal/dto"
	"github.com/multitest-app/backend/internal/models"
	"github.com/multitest-app/backend/internal/store"
)

// CheckoutService opens checkout sessions with the payment processor and
// records each attempt in the session ledger.
type CheckoutService struct {
	provider billing.Provider
	plans    *billing.PlanResolver
	sessions store.SessionStore
}

func NewCheckoutService(provider billing.Provider, plans *billing.PlanResolver, sessions store.SessionStore) *CheckoutService {
	return &CheckoutService{provider: provider, plans: plans, sessions: sessions}
}

// InitiateCheckout validates the request, opens a processor-hosted checkout
// session and writes a pending ledger entry. The processor session is created
// first: a lost ledger write is recoverable from the session metadata later,
// while the processor accepting payment never depends on our write.
func (s *CheckoutService) InitiateCheckout(ctx context.Context, userID uuid.UUID, email string, req *dto.CreateCheckoutRequest) (*dto.CreateCheckoutResponse, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if req.PriceID == "" || req.ProductID == "" || req.ProductName == "" {
		return nil, fmt.Errorf("%w: priceId, productId and productName are required", ErrInvalidArgument)
	}

	plan, err := s.plans.Resolve(req.PriceID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown price %q", ErrInvalidArgument, req.PriceID)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutParams{
		PriceID:     req.PriceID,
		UserID:      userID.String(),
		UserEmail:   email,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	entry := &models.CheckoutSession{
		SessionID:   session.ID,
		UserID:      userID,
		UserEmail:   email,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		PriceID:     req.PriceID,
		Plan:        plan,
		Status:      models.SessionPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, entry); err != nil {
		// The session already exists at the processor; the reconciler can
		// fall back to the metadata embedded on it.
		slog.Error("ledger write failed after session creation",
			"session_id", session.ID, "user_id", userID, "error", err)
	} else {
		slog.Info("checkout session created",
			"session_id", session.ID, "user_id", userID, "product_id", req.ProductID, "plan", plan)
	}

	return &dto.CreateCheckoutResponse{SessionID: session.ID, Success: true}, nil
}

// CreatePaymentIntent opens a one-off payment intent for the caller.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, userID uuid.UUID, req *dto.PaymentIntentRequest) (*dto.PaymentIntentResponse, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}

	currency := req.Currency
	if currency == "" {
		currency = "eur"
	}

	intent, err := s.provider.CreatePaymentIntent(ctx, billing.PaymentIntentParams{
		AmountCents: req.Amount,
		Currency:    currency,
		UserID:      userID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return &dto.PaymentIntentResponse{ClientSecret: intent.ClientSecret, ID: intent.ID}, nil
}

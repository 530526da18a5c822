package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/multitest-app/backend/internal/billing"
	"github.com/multitest-app/backend/internal/dto"
	"github.com/multitest-app/backend/internal/models"
	"github.com/multitest-app/backend/internal/store"
)

// ReconcileService converts confirmed payments into durable entitlements
// exactly once. Both entry points — the synchronous verify call and the
// asynchronous webhook — converge on applyCompletedSession, so the
// idempotence guard lives in one place.
type ReconcileService struct {
	provider     billing.Provider
	plans        *billing.PlanResolver
	sessions     store.SessionStore
	entitlements store.EntitlementStore
}

func NewReconcileService(provider billing.Provider, plans *billing.PlanResolver, sessions store.SessionStore, entitlements store.EntitlementStore) *ReconcileService {
	return &ReconcileService{provider: provider, plans: plans, sessions: sessions, entitlements: entitlements}
}

// VerifyPayment is the synchronous path. The payment status is re-fetched
// from the processor; a client-asserted "paid" is never trusted.
func (s *ReconcileService) VerifyPayment(ctx context.Context, userID uuid.UUID, sessionID string) (*dto.VerifyPaymentResponse, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidArgument)
	}

	remote, err := s.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, billing.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("fetch checkout session: %w", err)
	}

	entry, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load ledger entry: %w", err)
	}

	if remote.PaymentStatus != billing.PaymentStatusPaid {
		return nil, ErrPaymentNotCompleted
	}
	if entry.UserID != userID {
		return nil, ErrPermissionDenied
	}

	reconciled, err := s.applyCompletedSession(ctx, entry, remote)
	if err != nil {
		return nil, err
	}

	return &dto.VerifyPaymentResponse{
		Success:  true,
		Plan:     reconciled.Plan,
		Category: reconciled.ProductID,
	}, nil
}

// HandleEvent is the asynchronous path, fed by signature-verified processor
// events. A returned error tells the webhook handler to fail the delivery so
// the processor redelivers; benign outcomes (unknown session, duplicate,
// ignored event type) return nil to stop redelivery.
func (s *ReconcileService) HandleEvent(ctx context.Context, event *billing.Event) error {
	switch event.Type {
	case billing.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event.Session)

	case billing.EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(ctx, event.SubscriptionRef)

	case billing.EventInvoicePaid:
		// Renewal invoices need no entitlement change: the subscription
		// stays active until a deletion event arrives.
		slog.Info("invoice payment succeeded", "invoice_ref", event.InvoiceRef)
		return nil

	case billing.EventPaymentIntentSucceeded:
		slog.Info("payment intent succeeded", "payment_intent_ref", event.PaymentIntentRef)
		return nil

	case billing.EventPaymentIntentFailed:
		slog.Warn("payment intent failed", "payment_intent_ref", event.PaymentIntentRef)
		return nil

	default:
		slog.Info("ignoring webhook event", "event_type", event.Type)
		return nil
	}
}

func (s *ReconcileService) handleCheckoutCompleted(ctx context.Context, session *billing.CheckoutSession) error {
	if session == nil {
		return fmt.Errorf("%w: completed event without session object", ErrInvalidArgument)
	}

	// A completed checkout does not imply a settled payment (deferred
	// payment methods). The paid invoice arrives later; nothing to do yet.
	if session.PaymentStatus != billing.PaymentStatusPaid {
		slog.Info("checkout completed but not paid yet", "session_id", session.ID, "payment_status", session.PaymentStatus)
		return nil
	}

	entry, err := s.sessions.Get(ctx, session.ID)
	if errors.Is(err, store.ErrSessionNotFound) {
		entry, err = s.entryFromMetadata(session)
		if err != nil {
			return err
		}
		if entry == nil {
			// Not a session this deployment opened. Acknowledge it so the
			// processor stops redelivering.
			slog.Warn("no ledger entry for completed session", "session_id", session.ID)
			return nil
		}
		if err := s.sessions.Create(ctx, entry); err != nil {
			return fmt.Errorf("recreate ledger entry from metadata: %w", err)
		}
		slog.Info("ledger entry recovered from session metadata", "session_id", session.ID, "user_id", entry.UserID)
	} else if err != nil {
		return fmt.Errorf("load ledger entry: %w", err)
	}

	_, err = s.applyCompletedSession(ctx, entry, session)
	return err
}

// applyCompletedSession is the idempotent core. Guard first: a completed
// ledger entry short-circuits with the previously recorded result and no
// writes. Otherwise the entitlement upsert happens before the ledger CAS, so
// a crash between the two is recovered by replaying the whole algorithm.
func (s *ReconcileService) applyCompletedSession(ctx context.Context, entry *models.CheckoutSession, remote *billing.CheckoutSession) (*models.CheckoutSession, error) {
	if entry.Status == models.SessionCompleted {
		return entry, nil
	}

	now := time.Now().UTC()

	// The plan comes from the ledger entry, not from the payment amount:
	// re-deriving it would drift if pricing changed after session creation.
	ent := &models.Entitlement{
		UserID:          entry.UserID,
		ProductID:       entry.ProductID,
		ProductName:     entry.ProductName,
		Plan:            entry.Plan,
		Status:          models.EntitlementActive,
		UsageCounter:    0,
		CustomerRef:     remote.CustomerRef,
		SubscriptionRef: remote.SubscriptionRef,
		ActivatedAt:     &now,
	}
	if err := s.entitlements.Activate(ctx, ent); err != nil {
		return nil, fmt.Errorf("activate entitlement: %w", err)
	}

	won, err := s.sessions.MarkCompleted(ctx, entry.SessionID, remote.CustomerRef, remote.SubscriptionRef, now)
	if err != nil {
		return nil, fmt.Errorf("mark session completed: %w", err)
	}
	if !won {
		// A concurrent reconciliation of the same session got there first.
		// Return what it recorded; no further mutation.
		return s.sessions.Get(ctx, entry.SessionID)
	}

	slog.Info("subscription activated",
		"session_id", entry.SessionID, "user_id", entry.UserID,
		"product_id", entry.ProductID, "plan", entry.Plan)

	entry.Status = models.SessionCompleted
	entry.CompletedAt = &now
	entry.CustomerRef = remote.CustomerRef
	entry.SubscriptionRef = remote.SubscriptionRef
	return entry, nil
}

func (s *ReconcileService) handleSubscriptionDeleted(ctx context.Context, subscriptionRef string) error {
	entry, err := s.sessions.FindBySubscriptionRef(ctx, subscriptionRef)
	if errors.Is(err, store.ErrSessionNotFound) {
		// Without a ledger linkage the (user, product) pair is unknown,
		// so there is nothing to cancel.
		slog.Warn("subscription deleted with no ledger linkage", "subscription_ref", subscriptionRef)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find ledger entry by subscription: %w", err)
	}

	if err := s.entitlements.Cancel(ctx, entry.UserID, entry.ProductID, time.Now().UTC()); err != nil {
		return fmt.Errorf("cancel entitlement: %w", err)
	}

	slog.Info("subscription cancelled",
		"subscription_ref", subscriptionRef, "user_id", entry.UserID, "product_id", entry.ProductID)
	return nil
}

// entryFromMetadata rebuilds a pending ledger entry from the metadata the
// checkout initiator embedded on the session. Returns (nil, nil) when the
// metadata is absent or unusable, in which case the event is not ours.
func (s *ReconcileService) entryFromMetadata(session *billing.CheckoutSession) (*models.CheckoutSession, error) {
	rawUserID := session.Metadata["userId"]
	productID := session.Metadata["productId"]
	priceID := session.Metadata["priceId"]
	if rawUserID == "" || productID == "" || priceID == "" {
		return nil, nil
	}

	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		slog.Warn("completed session carries unparseable userId metadata", "session_id", session.ID, "error", err)
		return nil, nil
	}

	plan, err := s.plans.Resolve(priceID)
	if err != nil {
		// Metadata we wrote referencing a price no longer in the table is a
		// configuration problem; let the delivery retry until it is fixed.
		return nil, fmt.Errorf("resolve plan for recovered session %s: %w", session.ID, err)
	}

	return &models.CheckoutSession{
		SessionID:   session.ID,
		UserID:      userID,
		UserEmail:   session.CustomerEmail,
		ProductID:   productID,
		ProductName: session.Metadata["productName"],
		PriceID:     priceID,
		Plan:        plan,
		Status:      models.SessionPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

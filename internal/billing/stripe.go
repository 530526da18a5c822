package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"
)

// apiTimeout bounds every outbound Stripe call.
const apiTimeout = 30 * time.Second

const (
	metaUserID      = "userId"
	metaProductID   = "productId"
	metaProductName = "productName"
	metaPriceID     = "priceId"
)

// StripeConfig holds the Stripe credentials and redirect targets. Both keys
// come from the environment; nothing here is ever hardcoded.
type StripeConfig struct {
	APIKey        string // sk_test_... / sk_live_...
	WebhookSecret string // whsec_...
	SuccessURL    string
	CancelURL     string
}

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	cfg StripeConfig
}

func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookKey
	}

	stripe.Key = cfg.APIKey

	return &StripeProvider{cfg: cfg}, nil
}

// CreateCheckoutSession opens a subscription-mode hosted checkout. The
// reconciliation metadata is embedded on both the session and its underlying
// subscription object on purpose: the subscription copy survives even when
// the session ledger write is lost.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	meta := map[string]string{
		metaUserID:      params.UserID,
		metaProductID:   params.ProductID,
		metaProductName: params.ProductName,
		metaPriceID:     params.PriceID,
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(params.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.successURL(params.ProductID)),
		CancelURL:  stripe.String(p.cancelURL(params.ProductID)),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	}
	sessionParams.Context = ctx
	sessionParams.Metadata = meta

	if params.UserEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.UserEmail)
	}

	created, err := session.New(sessionParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return normalizeSession(created), nil
}

// GetCheckoutSession fetches the authoritative session state. Payment status
// is always taken from here, never from a client-asserted value.
func (p *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	fetched, err := session.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil, ErrSessionNotFound
		}
		return nil, wrapStripeError(err)
	}

	return normalizeSession(fetched), nil
}

func (p *StripeProvider) CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	intentParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountCents),
		Currency: stripe.String(strings.ToLower(params.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	intentParams.Context = ctx
	if params.UserID != "" {
		intentParams.Metadata = map[string]string{metaUserID: params.UserID}
	}

	intent, err := paymentintent.New(intentParams)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return &PaymentIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// ParseWebhookEvent verifies the signature over the raw payload bytes and
// normalizes the event. IgnoreAPIVersionMismatch keeps verification working
// when Stripe delivers events pinned to a different API version than the
// SDK; the signature check itself is unaffected.
func (p *StripeProvider) ParseWebhookEvent(payload []byte, signature string) (*Event, error) {
	if len(payload) == 0 || signature == "" {
		return nil, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrInvalidSignature, err)
	}

	normalized := &Event{ID: event.ID, Type: EventType(event.Type)}

	switch normalized.Type {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, errors.Join(ErrMalformedEvent, err)
		}
		normalized.Session = normalizeSession(&s)

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrMalformedEvent, err)
		}
		normalized.SubscriptionRef = sub.ID

	case EventInvoicePaid:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, errors.Join(ErrMalformedEvent, err)
		}
		normalized.InvoiceRef = inv.ID

	case EventPaymentIntentSucceeded, EventPaymentIntentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, errors.Join(ErrMalformedEvent, err)
		}
		normalized.PaymentIntentRef = intent.ID
	}

	return normalized, nil
}

func (p *StripeProvider) successURL(productID string) string {
	return fmt.Sprintf("%s?session_id={CHECKOUT_SESSION_ID}&product_id=%s", p.cfg.SuccessURL, url.QueryEscape(productID))
}

func (p *StripeProvider) cancelURL(productID string) string {
	return fmt.Sprintf("%s?product_id=%s", p.cfg.CancelURL, url.QueryEscape(productID))
}

func normalizeSession(s *stripe.CheckoutSession) *CheckoutSession {
	if s == nil {
		return nil
	}

	normalized := &CheckoutSession{
		ID:            s.ID,
		PaymentStatus: PaymentStatus(s.PaymentStatus),
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
	}

	if s.Customer != nil {
		normalized.CustomerRef = s.Customer.ID
	}
	if s.Subscription != nil {
		normalized.SubscriptionRef = s.Subscription.ID
	}
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		normalized.CustomerEmail = s.CustomerDetails.Email
	}

	return normalized
}

func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("stripe: %s (code=%s)", stripeErr.Msg, stripeErr.Code)
	}
	return err
}

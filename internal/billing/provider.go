package billing

import "context"

// Provider is the minimal surface of the payment processor this service
// depends on. The processor hosts the checkout flow, is the source of truth
// for payment state, and signs the asynchronous events it delivers.
// Abstracting it keeps the reconciliation logic testable without network
// calls and avoids vendor lock-in in the domain layer.
type Provider interface {
	// CreateCheckoutSession opens a hosted checkout session.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	// GetCheckoutSession fetches the authoritative state of a session.
	// Returns ErrSessionNotFound for unknown session IDs.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// CreatePaymentIntent creates a one-off payment intent.
	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (*PaymentIntent, error)

	// ParseWebhookEvent verifies the signature against the raw, unparsed
	// payload bytes and returns the normalized event. Returns
	// ErrInvalidSignature or ErrMalformedEvent on failure; neither outcome
	// may reach the reconciler.
	ParseWebhookEvent(payload []byte, signature string) (*Event, error)
}

// CheckoutParams carries everything needed to open a checkout session.
// UserID, ProductID, ProductName and PriceID are embedded as metadata on
// both the session and its underlying subscription so that a completed
// payment can be reconciled even if the local ledger write was lost.
type CheckoutParams struct {
	PriceID     string
	UserID      string
	UserEmail   string
	ProductID   string
	ProductName string
}

// PaymentStatus is the processor-side payment state of a checkout session.
type PaymentStatus string

const (
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

// CheckoutSession is the provider-side view of a checkout session,
// normalized away from SDK types.
type CheckoutSession struct {
	ID              string
	PaymentStatus   PaymentStatus
	CustomerRef     string
	SubscriptionRef string
	CustomerEmail   string
	Metadata        map[string]string
}

type PaymentIntentParams struct {
	AmountCents int64
	Currency    string
	UserID      string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// EventType is the processor event name. Only the types below drive state
// transitions; everything else is logged and acknowledged.
type EventType string

const (
	EventCheckoutCompleted      EventType = "checkout.session.completed"
	EventInvoicePaid            EventType = "invoice.payment_succeeded"
	EventSubscriptionDeleted    EventType = "customer.subscription.deleted"
	EventPaymentIntentSucceeded EventType = "payment_intent.succeeded"
	EventPaymentIntentFailed    EventType = "payment_intent.payment_failed"
)

// Event is a signature-verified processor event.
type Event struct {
	ID   string
	Type EventType

	// Session is set for EventCheckoutCompleted.
	Session *CheckoutSession
	// SubscriptionRef is set for EventSubscriptionDeleted.
	SubscriptionRef string
	// InvoiceRef is set for EventInvoicePaid.
	InvoiceRef string
	// PaymentIntentRef is set for the payment_intent.* events.
	PaymentIntentRef string
}

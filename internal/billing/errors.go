package billing

import "errors"

var (
	ErrUnknownPrice      = errors.New("price ID is not mapped to any plan")
	ErrMissingAPIKey     = errors.New("payment provider API key is required")
	ErrMissingWebhookKey = errors.New("payment provider webhook secret is required")
	ErrInvalidSignature  = errors.New("webhook signature verification failed")
	ErrMalformedEvent    = errors.New("webhook event payload is malformed")
	ErrSessionNotFound   = errors.New("checkout session not found at provider")
)

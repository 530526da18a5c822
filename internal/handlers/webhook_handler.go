package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/multitest-app/backend/internal/billing"
	"github.com/multitest-app/backend/internal/dto"
	"github.com/multitest-app/backend/internal/services"
)

type WebhookHandler struct {
	provider         billing.Provider
	reconcileService *services.ReconcileService
}

func NewWebhookHandler(provider billing.Provider, reconcileService *services.ReconcileService) *WebhookHandler {
	return &WebhookHandler{provider: provider, reconcileService: reconcileService}
}

// HandleStripe receives processor events. The signature is verified against
// the raw body bytes — c.Body() is untouched by any parsing middleware, and
// no structured decoding happens before verification. 400 rejects the
// delivery permanently (bad signature, malformed payload); 500 makes the
// processor redeliver; 200 acknowledges everything else, including events we
// deliberately ignore.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get("Stripe-Signature")

	event, err := h.provider.ParseWebhookEvent(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) || errors.Is(err, billing.ErrMalformedEvent) {
			slog.Warn("webhook rejected", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Webhook verification failed",
			})
		}
		slog.Error("webhook parsing failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhook verification failed",
		})
	}

	if err := h.reconcileService.HandleEvent(c.UserContext(), event); err != nil {
		slog.Error("webhook processing failed", "event_id", event.ID, "event_type", event.Type, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	slog.Info("webhook processed", "event_id", event.ID, "event_type", event.Type)
	return c.JSON(fiber.Map{"received": true})
}

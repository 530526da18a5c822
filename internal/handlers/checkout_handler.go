package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/multitest-app/backend/internal/dto"
	"github.com/multitest-app/backend/internal/identity"
	"github.com/multitest-app/backend/internal/services"
)

type CheckoutHandler struct {
	checkoutService  *services.CheckoutService
	reconcileService *services.ReconcileService
}

func NewCheckoutHandler(checkoutService *services.CheckoutService, reconcileService *services.ReconcileService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, reconcileService: reconcileService}
}

func (h *CheckoutHandler) CreateSession(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CreateCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.checkoutService.InitiateCheckout(c.UserContext(), userID, identity.Email(c), &req)
	if err != nil {
		return h.checkoutError(c, err)
	}

	return c.JSON(resp)
}

func (h *CheckoutHandler) VerifyPayment(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.reconcileService.VerifyPayment(c.UserContext(), userID, req.SessionID)
	if err != nil {
		return h.checkoutError(c, err)
	}

	return c.JSON(resp)
}

func (h *CheckoutHandler) CreatePaymentIntent(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.PaymentIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	resp, err := h.checkoutService.CreatePaymentIntent(c.UserContext(), userID, &req)
	if err != nil {
		return h.checkoutError(c, err)
	}

	return c.JSON(resp)
}

// checkoutError maps the service error taxonomy onto stable HTTP codes so
// the frontend can branch on them.
func (h *CheckoutHandler) checkoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidArgument):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrPaymentNotCompleted):
		return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	default:
		slog.Error("checkout request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
}

package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/multitest-app/backend/internal/dto"
	"github.com/multitest-app/backend/internal/identity"
	"github.com/multitest-app/backend/internal/services"
)

type SubscriptionHandler struct {
	entitlementService *services.EntitlementService
}

func NewSubscriptionHandler(entitlementService *services.EntitlementService) *SubscriptionHandler {
	return &SubscriptionHandler{entitlementService: entitlementService}
}

func (h *SubscriptionHandler) List(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	resp, err := h.entitlementService.ListSubscriptions(c.UserContext(), userID)
	if err != nil {
		slog.Error("listing subscriptions failed", "user_id", userID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}

	return c.JSON(resp)
}

func (h *SubscriptionHandler) ConsumeUsage(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	resp, err := h.entitlementService.ConsumeUsage(c.UserContext(), userID, c.Params("productId"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidArgument):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrSubscriptionMissing):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		case errors.Is(err, services.ErrSubscriptionExpired):
			return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{
				Error: true, Message: err.Error(),
			})
		default:
			slog.Error("usage consumption failed", "user_id", userID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Internal server error",
			})
		}
	}

	return c.JSON(resp)
}

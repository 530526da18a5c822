package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/multitest-app/backend/internal/dto"
	"github.com/multitest-app/backend/internal/store"
)

// EntitlementService exposes the caller-facing read and consumption
// operations on entitlements. All mutations that grant or revoke access go
// through the ReconcileService instead.
type EntitlementService struct {
	entitlements store.EntitlementStore
}

func NewEntitlementService(entitlements store.EntitlementStore) *EntitlementService {
	return &EntitlementService{entitlements: entitlements}
}

func (s *EntitlementService) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]dto.SubscriptionResponse, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	ents, err := s.entitlements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entitlements: %w", err)
	}

	resp := make([]dto.SubscriptionResponse, 0, len(ents))
	for _, ent := range ents {
		resp = append(resp, dto.SubscriptionResponse{
			ProductID:    ent.ProductID,
			ProductName:  ent.ProductName,
			Plan:         ent.Plan,
			Status:       string(ent.Status),
			UsageCounter: ent.UsageCounter,
			ActivatedAt:  ent.ActivatedAt,
			CancelledAt:  ent.CancelledAt,
		})
	}
	return resp, nil
}

// ConsumeUsage atomically bumps the usage counter of an active entitlement.
func (s *EntitlementService) ConsumeUsage(ctx context.Context, userID uuid.UUID, productID string) (*dto.UsageResponse, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	if productID == "" {
		return nil, fmt.Errorf("%w: productId is required", ErrInvalidArgument)
	}

	used, err := s.entitlements.IncrementUsage(ctx, userID, productID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEntitlementNotFound):
			return nil, ErrSubscriptionMissing
		case errors.Is(err, store.ErrEntitlementNotActive):
			return nil, ErrSubscriptionExpired
		default:
			return nil, fmt.Errorf("increment usage: %w", err)
		}
	}

	return &dto.UsageResponse{ProductID: productID, UsageCounter: used}, nil
}

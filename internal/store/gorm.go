package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/multitest-app/backend/internal/billing"
	"github.com/multitest-app/backend/internal/models"
)

type GormSessionStore struct {
	db *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

func (s *GormSessionStore) Create(ctx context.Context, entry *models.CheckoutSession) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormSessionStore) Get(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	var entry models.CheckoutSession
	if err := s.db.WithContext(ctx).First(&entry, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// MarkCompleted is the compare-and-swap on the ledger status. The WHERE on
// status makes the pending -> completed transition happen at most once no
// matter how many reconciliations race on the same session.
func (s *GormSessionStore) MarkCompleted(ctx context.Context, sessionID, customerRef, subscriptionRef string, completedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("session_id = ? AND status = ?", sessionID, models.SessionPending).
		Updates(map[string]interface{}{
			"status":           models.SessionCompleted,
			"completed_at":     completedAt,
			"customer_ref":     customerRef,
			"subscription_ref": subscriptionRef,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormSessionStore) FindBySubscriptionRef(ctx context.Context, subscriptionRef string) (*models.CheckoutSession, error) {
	if subscriptionRef == "" {
		return nil, ErrSessionNotFound
	}

	var entry models.CheckoutSession
	err := s.db.WithContext(ctx).
		Where("subscription_ref = ?", subscriptionRef).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &entry, nil
}

type GormEntitlementStore struct {
	db *gorm.DB
}

func NewGormEntitlementStore(db *gorm.DB) *GormEntitlementStore {
	return &GormEntitlementStore{db: db}
}

func (s *GormEntitlementStore) Get(ctx context.Context, userID uuid.UUID, productID string) (*models.Entitlement, error) {
	var ent models.Entitlement
	err := s.db.WithContext(ctx).
		First(&ent, "user_id = ? AND product_id = ?", userID, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntitlementNotFound
		}
		return nil, err
	}
	return &ent, nil
}

func (s *GormEntitlementStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Entitlement, error) {
	var ents []models.Entitlement
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("product_id").
		Find(&ents).Error
	return ents, err
}

func (s *GormEntitlementStore) Activate(ctx context.Context, ent *models.Entitlement) error {
	if ent.ID == uuid.Nil {
		ent.ID = uuid.New()
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_name", "plan", "status", "usage_counter",
				"customer_ref", "subscription_ref", "activated_at", "updated_at",
			}),
		}).
		Create(ent).Error
}

func (s *GormEntitlementStore) Cancel(ctx context.Context, userID uuid.UUID, productID string, at time.Time) error {
	ent := &models.Entitlement{
		ID:          uuid.New(),
		UserID:      userID,
		ProductID:   productID,
		Plan:        billing.PlanNone,
		Status:      models.EntitlementCancelled,
		CancelledAt: &at,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "cancelled_at", "updated_at"}),
		}).
		Create(ent).Error
}

func (s *GormEntitlementStore) IncrementUsage(ctx context.Context, userID uuid.UUID, productID string) (int, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Entitlement{}).
		Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, models.EntitlementActive).
		UpdateColumn("usage_counter", gorm.Expr("usage_counter + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		// Distinguish missing from cancelled.
		if _, err := s.Get(ctx, userID, productID); err != nil {
			return 0, err
		}
		return 0, ErrEntitlementNotActive
	}

	ent, err := s.Get(ctx, userID, productID)
	if err != nil {
		return 0, err
	}
	return ent.UsageCounter, nil
}

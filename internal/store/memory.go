package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/multitest-app/backend/internal/billing"
	"github.com/multitest-app/backend/internal/models"
)

// MemorySessionStore is a mutex-guarded in-memory SessionStore for tests and
// local development. Copies go in and out so callers cannot mutate stored
// state behind the lock.
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]models.CheckoutSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]models.CheckoutSession)}
}

func (s *MemorySessionStore) Create(_ context.Context, entry *models.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.entries[entry.SessionID] = *entry
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (*models.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &entry, nil
}

func (s *MemorySessionStore) MarkCompleted(_ context.Context, sessionID, customerRef, subscriptionRef string, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[sessionID]
	if !ok || entry.Status != models.SessionPending {
		return false, nil
	}
	entry.Status = models.SessionCompleted
	entry.CompletedAt = &completedAt
	entry.CustomerRef = customerRef
	entry.SubscriptionRef = subscriptionRef
	s.entries[sessionID] = entry
	return true, nil
}

func (s *MemorySessionStore) FindBySubscriptionRef(_ context.Context, subscriptionRef string) (*models.CheckoutSession, error) {
	if subscriptionRef == "" {
		return nil, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *models.CheckoutSession
	for _, entry := range s.entries {
		if entry.SubscriptionRef != subscriptionRef {
			continue
		}
		if found == nil || entry.CreatedAt.After(found.CreatedAt) {
			copied := entry
			found = &copied
		}
	}
	if found == nil {
		return nil, ErrSessionNotFound
	}
	return found, nil
}

type entitlementKey struct {
	userID    uuid.UUID
	productID string
}

// MemoryEntitlementStore is the in-memory EntitlementStore counterpart.
type MemoryEntitlementStore struct {
	mu      sync.Mutex
	entries map[entitlementKey]models.Entitlement
}

func NewMemoryEntitlementStore() *MemoryEntitlementStore {
	return &MemoryEntitlementStore{entries: make(map[entitlementKey]models.Entitlement)}
}

func (s *MemoryEntitlementStore) Get(_ context.Context, userID uuid.UUID, productID string) (*models.Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.entries[entitlementKey{userID, productID}]
	if !ok {
		return nil, ErrEntitlementNotFound
	}
	return &ent, nil
}

func (s *MemoryEntitlementStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ents []models.Entitlement
	for key, ent := range s.entries {
		if key.userID == userID {
			ents = append(ents, ent)
		}
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i].ProductID < ents[j].ProductID })
	return ents, nil
}

func (s *MemoryEntitlementStore) Activate(_ context.Context, ent *models.Entitlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entitlementKey{ent.UserID, ent.ProductID}
	if existing, ok := s.entries[key]; ok {
		ent.ID = existing.ID
		ent.CreatedAt = existing.CreatedAt
	} else if ent.ID == uuid.Nil {
		ent.ID = uuid.New()
	}
	s.entries[key] = *ent
	return nil
}

func (s *MemoryEntitlementStore) Cancel(_ context.Context, userID uuid.UUID, productID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entitlementKey{userID, productID}
	ent, ok := s.entries[key]
	if !ok {
		ent = models.Entitlement{ID: uuid.New(), UserID: userID, ProductID: productID}
	}
	ent.Status = models.EntitlementCancelled
	ent.Plan = billing.PlanNone
	ent.CancelledAt = &at
	s.entries[key] = ent
	return nil
}

func (s *MemoryEntitlementStore) IncrementUsage(_ context.Context, userID uuid.UUID, productID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := entitlementKey{userID, productID}
	ent, ok := s.entries[key]
	if !ok {
		return 0, ErrEntitlementNotFound
	}
	if ent.Status != models.EntitlementActive {
		return 0, ErrEntitlementNotActive
	}
	ent.UsageCounter++
	s.entries[key] = ent
	return ent.UsageCounter, nil
}

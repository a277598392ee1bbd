package testutil

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/billingplan"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// InMemoryBillingPlanStore implements billingplan.Repository with a Seed
// helper for loading catalog fixtures.
type InMemoryBillingPlanStore struct {
	*InMemoryStore[*billingplan.BillingPlan]
}

func NewInMemoryBillingPlanStore() *InMemoryBillingPlanStore {
	return &InMemoryBillingPlanStore{
		InMemoryStore: NewInMemoryStore[*billingplan.BillingPlan](),
	}
}

// Seed loads a catalog entry, overwriting any entry with the same id.
func (s *InMemoryBillingPlanStore) Seed(ctx context.Context, plan *billingplan.BillingPlan) {
	if plan.ID == "" {
		plan.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_PLAN)
	}
	s.InMemoryStore.Set(ctx, plan.ID, plan)
}

func (s *InMemoryBillingPlanStore) Get(ctx context.Context, id string) (*billingplan.BillingPlan, error) {
	plan, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Billing plan not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return plan, nil
}

func (s *InMemoryBillingPlanStore) GetByTier(ctx context.Context, provider types.PaymentProvider, tier types.PlanTier, currency string) (*billingplan.BillingPlan, error) {
	plans, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, plan *billingplan.BillingPlan, _ interface{}) bool {
		return plan.Provider == provider && plan.PlanTier == tier && plan.Currency == currency
	}, nil)
	if len(plans) == 0 {
		return nil, ierr.NewError("billing plan not found").
			WithHintf("No catalog entry for tier %s via %s in %s", tier, provider, currency).
			Mark(ierr.ErrNotFound)
	}
	return plans[0], nil
}

func (s *InMemoryBillingPlanStore) List(ctx context.Context) ([]*billingplan.BillingPlan, error) {
	return s.InMemoryStore.List(ctx, nil, nil, nil)
}

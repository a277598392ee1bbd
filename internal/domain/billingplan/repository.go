package billingplan

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// Repository is the read-only catalog lookup
type Repository interface {
	Get(ctx context.Context, id string) (*BillingPlan, error)
	// GetByTier resolves the catalog entry selling the given tier through
	// the given provider in the given currency.
	GetByTier(ctx context.Context, provider types.PaymentProvider, tier types.PlanTier, currency string) (*BillingPlan, error)
	List(ctx context.Context) ([]*BillingPlan, error)
}

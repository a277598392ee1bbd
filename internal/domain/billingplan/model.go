package billingplan

import (
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/shopspring/decimal"
)

// BillingPlan is a catalog entry mapping a plan tier to a provider-side
// plan and price. The catalog is read-only reference data from the core's
// perspective; it is modeled as an injected repository, not a singleton
// cache, so the lifecycle manager stays testable in isolation.
type BillingPlan struct {
	// Unique identifier for this catalog entry
	ID string `json:"id"`
	// The provider this entry is priced for
	Provider types.PaymentProvider `json:"provider"`
	// The plan tier this entry sells
	PlanTier types.PlanTier `json:"plan_tier"`
	// The renewal cadence
	Period types.BillingPeriod `json:"period"`
	// The currency of the price
	Currency string `json:"currency"`
	// The price in the given currency
	Price decimal.Decimal `json:"price"`
	// The provider_plan_id is the provider-side plan identifier required by
	// the billing-agreement flow (optional)
	ProviderPlanID *string `json:"provider_plan_id,omitempty"`

	types.BaseModel
}

// TableName returns the table name for the billing plan
func (p *BillingPlan) TableName() string {
	return "billing_plans"
}

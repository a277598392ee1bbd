package provider

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/shopspring/decimal"
)

// CheckoutIntent is what the orchestrator hands an adapter to start
// collection for an already-created payment.
type CheckoutIntent struct {
	PaymentID   string
	PayerUserID string
	PayerEmail  string
	Amount      decimal.Decimal
	Currency    string
	Description string
	// Tier and ProviderPlanID are only meaningful for the agreement path
	Tier           types.PlanTier
	ProviderPlanID string
}

// CheckoutSession is the canonical result of starting a checkout: where to
// send the payer plus whichever correlation keys the provider assigned.
// The raw provider response is preserved as opaque audit data.
type CheckoutSession struct {
	Provider     types.PaymentProvider
	ExternalID   *string
	AgreementID  *string
	Token        *string
	BillingToken *string
	RedirectURL  string
	Raw          types.Metadata
}

// Adapter is the capability every payment provider integration offers:
// turn a checkout intent into an external redirect. The two concrete
// adapters layer their own callback surfaces on top (webhook parsing for
// the invoice provider, agreement execution for the billing-agreement
// provider).
type Adapter interface {
	Provider() types.PaymentProvider
	CreateCheckout(ctx context.Context, intent *CheckoutIntent) (*CheckoutSession, error)
}

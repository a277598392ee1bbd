package subscription

import (
	"time"

	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription is the entitlement record for a single user. There is at
// most one row per user, enforced by a store-level uniqueness constraint on
// owner_user_id rather than an in-process lock.
type Subscription struct {
	// Unique identifier for this subscription
	ID string `json:"id"`
	// The owner_user_id identifies the user this subscription entitles (1:1)
	OwnerUserID string `json:"owner_user_id"`
	// The plan_tier is the entitlement level granted while the subscription is live
	PlanTier types.PlanTier `json:"plan_tier"`
	// The subscription_status is the lifecycle state
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	// The started_at timestamp records when the subscription was first created
	StartedAt time.Time `json:"started_at"`
	// The trial_ends_at timestamp bounds the free trial (optional)
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	// The current_period_start marks the beginning of the paid period (optional)
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	// The current_period_end marks the end of the paid period (optional)
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	// The expires_at timestamp is the fallback expiry when no period is tracked (optional)
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// The cancelled_at timestamp records a user-initiated cancellation (optional)
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	// The auto_renew flag indicates whether the provider renews the period automatically
	AutoRenew bool `json:"auto_renew"`
	// The custom_price holds the negotiated per-seat price for enterprise seats (optional)
	CustomPrice *decimal.Decimal `json:"custom_price,omitempty"`
	// The custom_currency holds the currency of the negotiated price (optional)
	CustomCurrency *string `json:"custom_currency,omitempty"`
	// The organization_label_id groups enterprise beneficiaries under one label (optional)
	OrganizationLabelID *string `json:"organization_label_id,omitempty"`

	types.BaseModel
}

// Validate validates the subscription
func (s *Subscription) Validate() error {
	if s.OwnerUserID == "" {
		return ierr.NewError("invalid owner user id").
			WithHint("Owner user id is required").
			Mark(ierr.ErrValidation)
	}
	if err := s.PlanTier.Validate(); err != nil {
		return ierr.NewError("invalid plan tier").
			WithHint("Plan tier is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return ierr.NewError("invalid subscription status").
			WithHint("Subscription status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// EffectiveTrialEnd returns trial_ends_at, falling back to expires_at for
// records created before trial end tracking existed.
func (s *Subscription) EffectiveTrialEnd() *time.Time {
	if s.TrialEndsAt != nil {
		return s.TrialEndsAt
	}
	return s.ExpiresAt
}

// EffectivePeriodEnd returns current_period_end, falling back to expires_at.
func (s *Subscription) EffectivePeriodEnd() *time.Time {
	if s.CurrentPeriodEnd != nil {
		return s.CurrentPeriodEnd
	}
	return s.ExpiresAt
}

// IsPastDue reports whether an ACTIVE subscription's period has strictly
// elapsed at the given instant. Subscriptions without any tracked end never
// become past due; the sweep leaves them alone.
func (s *Subscription) IsPastDue(now time.Time) bool {
	if s.SubscriptionStatus != types.SubscriptionStatusActive {
		return false
	}
	end := s.EffectivePeriodEnd()
	if end == nil {
		return false
	}
	return end.Before(now)
}

// TableName returns the table name for the subscription
func (s *Subscription) TableName() string {
	return "subscriptions"
}

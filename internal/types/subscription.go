package types

import (
	"fmt"

	"github.com/samber/lo"
)

// PlanTier represents the entitlement level granted by a subscription
type PlanTier string

const (
	PlanTierTrial            PlanTier = "TRIAL"
	PlanTierPaidMonthly      PlanTier = "PAID_MONTHLY"
	PlanTierPaidYearly       PlanTier = "PAID_YEARLY"
	PlanTierEnterpriseCustom PlanTier = "ENTERPRISE_CUSTOM"
)

func (t PlanTier) String() string {
	return string(t)
}

func (t PlanTier) Validate() error {
	allowed := []PlanTier{
		PlanTierTrial,
		PlanTierPaidMonthly,
		PlanTierPaidYearly,
		PlanTierEnterpriseCustom,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid plan tier: %s", t)
	}
	return nil
}

// Rank returns the position of the tier in the privilege order
// TRIAL < PAID_MONTHLY < PAID_YEARLY < ENTERPRISE_CUSTOM. This is a
// privilege-level order, not a duration comparison: a yearly plan outranks
// a monthly one because it grants more, not because it lasts longer.
func (t PlanTier) Rank() int {
	switch t {
	case PlanTierTrial:
		return 0
	case PlanTierPaidMonthly:
		return 1
	case PlanTierPaidYearly:
		return 2
	case PlanTierEnterpriseCustom:
		return 3
	default:
		return -1
	}
}

// BillingPeriod returns the cadence a paid tier renews on. Tiers without a
// fixed cadence (TRIAL, ENTERPRISE_CUSTOM) return false.
func (t PlanTier) BillingPeriod() (BillingPeriod, bool) {
	switch t {
	case PlanTierPaidMonthly:
		return BILLING_PERIOD_MONTHLY, true
	case PlanTierPaidYearly:
		return BILLING_PERIOD_YEARLY, true
	default:
		return "", false
	}
}

// SubscriptionStatus represents the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "TRIAL"
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPaused    SubscriptionStatus = "PAUSED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusTrial,
		SubscriptionStatusActive,
		SubscriptionStatusPaused,
		SubscriptionStatusCancelled,
		SubscriptionStatusExpired,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid subscription status: %s", s)
	}
	return nil
}

// IsTerminal reports whether the status admits no further automatic
// transitions. There is no re-entry from CANCELLED or EXPIRED except an
// explicit new checkout or an org-invoice activation.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}

// BillingPeriod represents the renewal cadence of a subscription
type BillingPeriod string

const (
	BILLING_PERIOD_MONTHLY BillingPeriod = "MONTHLY"
	BILLING_PERIOD_YEARLY  BillingPeriod = "YEARLY"
)

func (p BillingPeriod) String() string {
	return string(p)
}

func (p BillingPeriod) Validate() error {
	allowed := []BillingPeriod{
		BILLING_PERIOD_MONTHLY,
		BILLING_PERIOD_YEARLY,
	}
	if !lo.Contains(allowed, p) {
		return fmt.Errorf("invalid billing period: %s", p)
	}
	return nil
}

// SweepResult reports the outcome of a scheduled sweep. One record's
// failure never aborts the sweep, so Succeeded may be less than Candidates.
type SweepResult struct {
	Candidates int `json:"candidates"`
	Succeeded  int `json:"succeeded"`
}

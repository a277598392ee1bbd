package service

import (
	"context"
	"time"

	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// EntitlementService decides whether a user may access a feature gated at
// a given plan tier. It is consulted on every protected access, so Evaluate
// is pure and allocation-free; Check does the repository lookups.
type EntitlementService interface {
	Check(ctx context.Context, userID string, required types.PlanTier) (bool, error)
	Evaluate(sub *subscription.Subscription, role types.UserRole, required types.PlanTier, now time.Time) bool
}

type entitlementService struct {
	ServiceParams
}

func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{ServiceParams: params}
}

// Check looks up the user's role and subscription and evaluates the access
// decision. A missing subscription is not an error, just a denial.
func (s *entitlementService) Check(ctx context.Context, userID string, required types.PlanTier) (bool, error) {
	if err := required.Validate(); err != nil {
		return false, ierr.WithError(err).
			WithHint("Required tier is invalid").
			Mark(ierr.ErrValidation)
	}

	u, err := s.UserRepo.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	sub, err := s.SubscriptionRepo.GetByOwner(ctx, userID)
	if err != nil && !ierr.IsNotFound(err) {
		return false, err
	}

	return s.Evaluate(sub, u.Role, required, time.Now().UTC()), nil
}

// Evaluate applies the entitlement rules:
//
//  1. Operator roles are granted unconditionally.
//  2. No subscription denies.
//  3. A live trial satisfies exactly the TRIAL tier and nothing above it,
//     even before it expires.
//  4. Otherwise the subscription must be ACTIVE with a future period end
//     and a plan rank at least the required rank.
func (s *entitlementService) Evaluate(sub *subscription.Subscription, role types.UserRole, required types.PlanTier, now time.Time) bool {
	if role.IsOperator() {
		return true
	}
	if sub == nil {
		return false
	}

	if sub.SubscriptionStatus == types.SubscriptionStatusTrial {
		end := sub.EffectiveTrialEnd()
		return end != nil && end.After(now) && required == types.PlanTierTrial
	}

	if sub.SubscriptionStatus != types.SubscriptionStatusActive {
		return false
	}
	end := sub.EffectivePeriodEnd()
	if end == nil || !end.After(now) {
		return false
	}
	return sub.PlanTier.Rank() >= required.Rank()
}

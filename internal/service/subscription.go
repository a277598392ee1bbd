package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/notification"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/samber/lo"
)

// SubscriptionService owns the subscription aggregate and its lifecycle:
// trial start, activation, cancellation, past-due expiry.
type SubscriptionService interface {
	StartTrial(ctx context.Context, userID string) (*subscription.Subscription, error)
	Activate(ctx context.Context, id string) (*subscription.Subscription, error)
	Cancel(ctx context.Context, id string, requesterID string) (*subscription.Subscription, error)
	ExpirePastDue(ctx context.Context) (types.SweepResult, error)
	Get(ctx context.Context, id string) (*subscription.Subscription, error)
	GetByOwner(ctx context.Context, userID string) (*subscription.Subscription, error)

	// ApplyPaidPeriod moves a subscription onto a freshly computed paid
	// period. Payment confirmation handlers are the only callers.
	ApplyPaidPeriod(ctx context.Context, id string, tier types.PlanTier, periodStart, periodEnd time.Time) (*subscription.Subscription, error)
	// ForceExpire expires the owner's subscription regardless of its period,
	// used when a linked payment fails or an org invoice is failed with
	// expiry requested.
	ForceExpire(ctx context.Context, ownerUserID string) error
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

// StartTrial starts a free trial for an eligible user. The operation is
// idempotent and never downgrades: an existing paid-plan record or a still
// valid trial is returned unchanged. An expired trial is also returned
// as-is; re-entry is only possible through an explicit new checkout.
func (s *subscriptionService) StartTrial(ctx context.Context, userID string) (*subscription.Subscription, error) {
	u, err := s.UserRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Operators never hold subscriptions; the call is a no-op for them.
	if u.Role.IsOperator() {
		return nil, nil
	}
	if !u.Role.TrialEligible() {
		return nil, ierr.NewError("role is not eligible for a trial").
			WithHintf("Role %s cannot start a trial", u.Role).
			Mark(ierr.ErrPermissionDenied)
	}

	existing, err := s.SubscriptionRepo.GetByOwner(ctx, userID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	trialEnd := now.AddDate(0, 0, s.trialDays())
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		OwnerUserID:        userID,
		PlanTier:           types.PlanTierTrial,
		SubscriptionStatus: types.SubscriptionStatusTrial,
		StartedAt:          now,
		TrialEndsAt:        lo.ToPtr(trialEnd),
		ExpiresAt:          lo.ToPtr(trialEnd),
		AutoRenew:          false,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	if err := s.SubscriptionRepo.Create(ctx, sub); err != nil {
		// A concurrent StartTrial for the same user may have won the race;
		// the store's uniqueness constraint decides, we return the winner.
		if ierr.IsAlreadyExists(err) {
			return s.SubscriptionRepo.GetByOwner(ctx, userID)
		}
		return nil, err
	}

	s.Logger.Infow("trial started",
		"subscription_id", sub.ID,
		"user_id", userID,
		"trial_ends_at", trialEnd)

	return sub, nil
}

// Activate transitions a TRIAL subscription to ACTIVE. Any other source
// status is an invalid operation.
func (s *subscriptionService) Activate(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.SubscriptionStatus != types.SubscriptionStatusTrial {
		return nil, ierr.NewError("subscription cannot be activated").
			WithHintf("Only trial subscriptions can be activated, current status is %s", sub.SubscriptionStatus).
			WithReportableDetails(map[string]any{
				"subscription_id": sub.ID,
				"status":          sub.SubscriptionStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.UpdatedAt = time.Now().UTC()
	sub.UpdatedBy = types.GetUserID(ctx)
	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Cancel ends a subscription at the owner's request. The record moves to
// CANCELLED, a terminal non-renewing state kept distinct from EXPIRED so
// reporting can tell churn from lapse. Cancelling twice is a no-op.
func (s *subscriptionService) Cancel(ctx context.Context, id string, requesterID string) (*subscription.Subscription, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if sub.OwnerUserID != requesterID {
		return nil, ierr.NewError("requester does not own this subscription").
			WithHint("Only the subscription owner can cancel it").
			Mark(ierr.ErrPermissionDenied)
	}

	if sub.SubscriptionStatus == types.SubscriptionStatusCancelled {
		return sub, nil
	}
	if sub.SubscriptionStatus == types.SubscriptionStatusExpired {
		return nil, ierr.NewError("subscription already expired").
			WithHint("An expired subscription cannot be cancelled").
			Mark(ierr.ErrInvalidOperation)
	}

	now := time.Now().UTC()
	sub.SubscriptionStatus = types.SubscriptionStatusCancelled
	sub.CancelledAt = lo.ToPtr(now)
	sub.AutoRenew = false
	sub.UpdatedAt = now
	sub.UpdatedBy = requesterID
	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription cancelled",
		"subscription_id", sub.ID,
		"user_id", requesterID)

	return sub, nil
}

// ExpirePastDue flips every ACTIVE subscription whose period has strictly
// elapsed to EXPIRED. Each record is handled independently; one failure is
// logged and counted but never blocks the rest of the sweep.
func (s *subscriptionService) ExpirePastDue(ctx context.Context) (types.SweepResult, error) {
	now := time.Now().UTC()
	candidates, err := s.SubscriptionRepo.ListPastDue(ctx, now)
	if err != nil {
		return types.SweepResult{}, err
	}

	result := types.SweepResult{Candidates: len(candidates)}
	for _, sub := range candidates {
		if err := s.expire(ctx, sub, now); err != nil {
			s.Logger.Errorw("failed to expire past-due subscription",
				"subscription_id", sub.ID,
				"error", err)
			continue
		}
		result.Succeeded++
	}

	s.Logger.Infow("past-due sweep completed",
		"candidates", result.Candidates,
		"succeeded", result.Succeeded)

	return result, nil
}

func (s *subscriptionService) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	return s.SubscriptionRepo.Get(ctx, id)
}

func (s *subscriptionService) GetByOwner(ctx context.Context, userID string) (*subscription.Subscription, error) {
	return s.SubscriptionRepo.GetByOwner(ctx, userID)
}

func (s *subscriptionService) ApplyPaidPeriod(ctx context.Context, id string, tier types.PlanTier, periodStart, periodEnd time.Time) (*subscription.Subscription, error) {
	sub, err := s.SubscriptionRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	sub.PlanTier = tier
	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.CurrentPeriodStart = lo.ToPtr(periodStart)
	sub.CurrentPeriodEnd = lo.ToPtr(periodEnd)
	sub.ExpiresAt = lo.ToPtr(periodEnd)
	sub.UpdatedAt = time.Now().UTC()
	sub.UpdatedBy = types.GetUserID(ctx)
	if err := s.SubscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription period applied",
		"subscription_id", sub.ID,
		"plan_tier", tier,
		"period_end", periodEnd)

	return sub, nil
}

func (s *subscriptionService) ForceExpire(ctx context.Context, ownerUserID string) error {
	sub, err := s.SubscriptionRepo.GetByOwner(ctx, ownerUserID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}
	if sub.SubscriptionStatus.IsTerminal() {
		return nil
	}
	return s.expire(ctx, sub, time.Now().UTC())
}

func (s *subscriptionService) expire(ctx context.Context, sub *subscription.Subscription, now time.Time) error {
	// Flip a copy so a failed write never leaves the caller's record
	// half-transitioned.
	expired := *sub
	expired.SubscriptionStatus = types.SubscriptionStatusExpired
	expired.UpdatedAt = now
	if err := s.SubscriptionRepo.Update(ctx, &expired); err != nil {
		return err
	}

	s.notify(ctx, &notification.Message{
		UserID:          sub.OwnerUserID,
		Type:            types.NotificationTypeSubscriptionExpired,
		Title:           "Your subscription has expired",
		Body:            fmt.Sprintf("Your %s subscription has expired. Renew to keep premium access.", sub.PlanTier),
		RelatedEntityID: sub.ID,
	})
	return nil
}

// notify dispatches fire-and-forget; failures are logged, never propagated.
func (s *subscriptionService) notify(ctx context.Context, msg *notification.Message) {
	if err := s.Notifier.Publish(ctx, msg); err != nil {
		s.Logger.Errorw("failed to publish notification",
			"user_id", msg.UserID,
			"type", msg.Type,
			"error", err)
	}
}

func (s *subscriptionService) trialDays() int {
	if s.Config != nil && s.Config.Subscription.TrialDays > 0 {
		return s.Config.Subscription.TrialDays
	}
	return 7
}

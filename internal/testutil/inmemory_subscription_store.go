package testutil

import (
	"context"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	// One row per owner, same as the unique index in the real store.
	if existing, _ := s.GetByOwner(ctx, sub.OwnerUserID); existing != nil {
		return ierr.NewError("subscription already exists for owner").
			WithHint("User already has a subscription").
			Mark(ierr.ErrAlreadyExists)
	}
	if err := s.InMemoryStore.Create(ctx, sub.ID, sub); err != nil {
		return ierr.WithError(err).
			WithHint("Subscription already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Subscription not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return sub, nil
}

func (s *InMemorySubscriptionStore) GetByOwner(ctx context.Context, ownerUserID string) (*subscription.Subscription, error) {
	subs, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.OwnerUserID == ownerUserID
	}, nil)
	if len(subs) == 0 {
		return nil, ierr.NewError("subscription not found for owner").
			WithHint("User has no subscription").
			WithReportableDetails(map[string]any{"owner_user_id": ownerUserID}).
			Mark(ierr.ErrNotFound)
	}
	return subs[0], nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if err := s.InMemoryStore.Update(ctx, sub.ID, sub); err != nil {
		return ierr.WithError(err).
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemorySubscriptionStore) UpsertByOwner(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	existing, err := s.GetByOwner(ctx, sub.OwnerUserID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		s.InMemoryStore.Set(ctx, sub.ID, sub)
		return sub, nil
	}

	// Keep the existing row's identity and creation audit.
	updated := *sub
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.CreatedBy = existing.CreatedBy
	s.InMemoryStore.Set(ctx, updated.ID, &updated)
	return &updated, nil
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *subscription.Filter) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, filter, subscriptionFilterFn, subscriptionSortFn)
}

func (s *InMemorySubscriptionStore) ListPastDue(ctx context.Context, asOf time.Time) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.IsPastDue(asOf)
	}, subscriptionSortFn)
}

func (s *InMemorySubscriptionStore) ListTrialEndingBetween(ctx context.Context, from, to time.Time) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription, _ interface{}) bool {
		if sub.SubscriptionStatus != types.SubscriptionStatusTrial {
			return false
		}
		end := sub.EffectiveTrialEnd()
		return end != nil && !end.Before(from) && end.Before(to)
	}, subscriptionSortFn)
}

func (s *InMemorySubscriptionStore) ListEnterpriseEndingBetween(ctx context.Context, from, to time.Time) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription, _ interface{}) bool {
		if sub.SubscriptionStatus != types.SubscriptionStatusActive ||
			sub.PlanTier != types.PlanTierEnterpriseCustom {
			return false
		}
		end := sub.EffectivePeriodEnd()
		return end != nil && !end.Before(from) && end.Before(to)
	}, subscriptionSortFn)
}

func subscriptionFilterFn(ctx context.Context, sub *subscription.Subscription, filter interface{}) bool {
	if sub == nil {
		return false
	}
	f, ok := filter.(*subscription.Filter)
	if !ok || f == nil {
		return true
	}
	if len(f.OwnerUserIDs) > 0 && !lo.Contains(f.OwnerUserIDs, sub.OwnerUserID) {
		return false
	}
	if f.PlanTier != nil && sub.PlanTier != *f.PlanTier {
		return false
	}
	if f.SubscriptionStatus != nil && sub.SubscriptionStatus != *f.SubscriptionStatus {
		return false
	}
	if f.OrganizationLabelID != nil &&
		(sub.OrganizationLabelID == nil || *sub.OrganizationLabelID != *f.OrganizationLabelID) {
		return false
	}
	return true
}

func subscriptionSortFn(i, j *subscription.Subscription) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

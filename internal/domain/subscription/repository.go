package subscription

import (
	"context"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// Repository defines the interface for subscription persistence
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByOwner(ctx context.Context, ownerUserID string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	// UpsertByOwner creates the subscription if the owner has none, else
	// overwrites the existing row in place keeping its id. Backed by the
	// store's uniqueness constraint on owner_user_id so concurrent upserts
	// for the same owner can never produce two rows.
	UpsertByOwner(ctx context.Context, sub *Subscription) (*Subscription, error)
	List(ctx context.Context, filter *Filter) ([]*Subscription, error)

	// Sweep queries. All bounds are half-open [from, to).
	ListPastDue(ctx context.Context, asOf time.Time) ([]*Subscription, error)
	ListTrialEndingBetween(ctx context.Context, from, to time.Time) ([]*Subscription, error)
	ListEnterpriseEndingBetween(ctx context.Context, from, to time.Time) ([]*Subscription, error)
}

// Filter narrows subscription listings
type Filter struct {
	OwnerUserIDs        []string
	PlanTier            *types.PlanTier
	SubscriptionStatus  *types.SubscriptionStatus
	OrganizationLabelID *string
}

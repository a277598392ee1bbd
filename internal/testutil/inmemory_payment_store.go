package testutil

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/payment"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/samber/lo"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	if p.ExternalID != nil {
		if existing, _ := s.GetByExternalID(ctx, *p.ExternalID); existing != nil {
			return ierr.NewError("payment already exists for external id").
				WithHint("External id is already mapped to a payment").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	if err := s.InMemoryStore.Create(ctx, p.ID, p); err != nil {
		return ierr.WithError(err).
			WithHint("Payment already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryPaymentStore) Get(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}

func (s *InMemoryPaymentStore) Update(ctx context.Context, p *payment.Payment) error {
	if err := s.InMemoryStore.Update(ctx, p.ID, p); err != nil {
		return ierr.WithError(err).
			WithHint("Payment not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryPaymentStore) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	return s.InMemoryStore.List(ctx, filter, paymentFilterFn, paymentSortFn)
}

func (s *InMemoryPaymentStore) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, paymentFilterFn)
}

func (s *InMemoryPaymentStore) GetByExternalID(ctx context.Context, externalID string) (*payment.Payment, error) {
	return s.findOne(ctx, "external_id", externalID, func(p *payment.Payment) bool {
		return p.ExternalID != nil && *p.ExternalID == externalID
	})
}

func (s *InMemoryPaymentStore) GetByCorrelationKey(ctx context.Context, key string) (*payment.Payment, error) {
	return s.findOne(ctx, "correlation_key", key, func(p *payment.Payment) bool {
		return (p.AgreementID != nil && *p.AgreementID == key) ||
			(p.Token != nil && *p.Token == key) ||
			(p.BillingToken != nil && *p.BillingToken == key)
	})
}

func (s *InMemoryPaymentStore) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	return s.findOne(ctx, "idempotency_key", key, func(p *payment.Payment) bool {
		return p.IdempotencyKey == key
	})
}

func (s *InMemoryPaymentStore) findOne(ctx context.Context, field, value string, match func(*payment.Payment) bool) (*payment.Payment, error) {
	payments, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, p *payment.Payment, _ interface{}) bool {
		return match(p)
	}, paymentSortFn)
	if len(payments) == 0 {
		return nil, ierr.NewError("payment not found").
			WithHint("No payment matches the given key").
			WithReportableDetails(map[string]any{field: value}).
			Mark(ierr.ErrNotFound)
	}
	return payments[0], nil
}

func paymentFilterFn(ctx context.Context, p *payment.Payment, filter interface{}) bool {
	if p == nil {
		return false
	}
	f, ok := filter.(*types.PaymentFilter)
	if !ok || f == nil {
		return true
	}
	if len(f.PaymentIDs) > 0 && !lo.Contains(f.PaymentIDs, p.ID) {
		return false
	}
	if f.PayerUserID != nil && p.PayerUserID != *f.PayerUserID {
		return false
	}
	if f.Provider != nil && p.Provider != *f.Provider {
		return false
	}
	if f.PaymentStatus != nil && p.PaymentStatus != *f.PaymentStatus {
		return false
	}
	if f.Kind != nil && p.Kind != *f.Kind {
		return false
	}
	if f.OrganizationLabelID != nil &&
		(p.OrganizationLabelID == nil || *p.OrganizationLabelID != *f.OrganizationLabelID) {
		return false
	}
	if f.Currency != nil && p.Currency != *f.Currency {
		return false
	}
	return true
}

func paymentSortFn(i, j *payment.Payment) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

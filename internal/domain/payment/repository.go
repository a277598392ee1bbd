package payment

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// Repository defines the interface for payment persistence
type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, payment *Payment) error
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
	Count(ctx context.Context, filter *types.PaymentFilter) (int, error)

	// Correlation lookups. GetByExternalID matches the invoice provider's
	// id; GetByCorrelationKey tries the agreement id, the short-lived token
	// and the long-lived billing token in that order.
	GetByExternalID(ctx context.Context, externalID string) (*Payment, error)
	GetByCorrelationKey(ctx context.Context, key string) (*Payment, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
}

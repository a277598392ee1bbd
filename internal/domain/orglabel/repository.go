package orglabel

import (
	"context"
)

// Repository defines the interface for organization label persistence
type Repository interface {
	Create(ctx context.Context, label *OrganizationLabel) error
	Get(ctx context.Context, id string) (*OrganizationLabel, error)
	GetByCode(ctx context.Context, code string) (*OrganizationLabel, error)
	List(ctx context.Context) ([]*OrganizationLabel, error)
}

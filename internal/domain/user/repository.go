package user

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// Repository is the read-only user lookup used to gate operator bypass and
// trial eligibility.
type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	ListByRole(ctx context.Context, role types.UserRole) ([]*User, error)
}

package testutil

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/user"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// InMemoryUserStore implements user.Repository with a Seed helper for
// loading user fixtures.
type InMemoryUserStore struct {
	*InMemoryStore[*user.User]
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		InMemoryStore: NewInMemoryStore[*user.User](),
	}
}

// Seed loads a user, overwriting any user with the same id.
func (s *InMemoryUserStore) Seed(ctx context.Context, u *user.User) {
	if u.ID == "" {
		u.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER)
	}
	s.InMemoryStore.Set(ctx, u.ID, u)
}

func (s *InMemoryUserStore) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("User not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return u, nil
}

func (s *InMemoryUserStore) ListByRole(ctx context.Context, role types.UserRole) ([]*user.User, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, u *user.User, _ interface{}) bool {
		return u.Role == role
	}, func(i, j *user.User) bool {
		return i.ID < j.ID
	})
}

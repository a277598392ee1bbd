package testutil

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/orglabel"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
)

// InMemoryOrgLabelStore implements orglabel.Repository
type InMemoryOrgLabelStore struct {
	*InMemoryStore[*orglabel.OrganizationLabel]
}

func NewInMemoryOrgLabelStore() *InMemoryOrgLabelStore {
	return &InMemoryOrgLabelStore{
		InMemoryStore: NewInMemoryStore[*orglabel.OrganizationLabel](),
	}
}

func (s *InMemoryOrgLabelStore) Create(ctx context.Context, label *orglabel.OrganizationLabel) error {
	if existing, _ := s.GetByCode(ctx, label.Code); existing != nil {
		return ierr.NewError("label code already taken").
			WithHint("Label code must be unique").
			Mark(ierr.ErrAlreadyExists)
	}
	if err := s.InMemoryStore.Create(ctx, label.ID, label); err != nil {
		return ierr.WithError(err).
			WithHint("Organization label already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryOrgLabelStore) Get(ctx context.Context, id string) (*orglabel.OrganizationLabel, error) {
	label, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Organization label not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return label, nil
}

func (s *InMemoryOrgLabelStore) GetByCode(ctx context.Context, code string) (*orglabel.OrganizationLabel, error) {
	labels, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, label *orglabel.OrganizationLabel, _ interface{}) bool {
		return label.Code == code
	}, nil)
	if len(labels) == 0 {
		return nil, ierr.NewError("organization label not found").
			WithHint("No label with the given code").
			WithReportableDetails(map[string]any{"code": code}).
			Mark(ierr.ErrNotFound)
	}
	return labels[0], nil
}

func (s *InMemoryOrgLabelStore) List(ctx context.Context) ([]*orglabel.OrganizationLabel, error) {
	return s.InMemoryStore.List(ctx, nil, nil, func(i, j *orglabel.OrganizationLabel) bool {
		return i.Name < j.Name
	})
}

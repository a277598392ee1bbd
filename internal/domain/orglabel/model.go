package orglabel

import (
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// OrganizationLabel groups beneficiaries and their enterprise subscriptions
// under one organization.
type OrganizationLabel struct {
	// Unique identifier for this label
	ID string `json:"id"`
	// Display name of the organization
	Name string `json:"name"`
	// Unique short code used in invoices and references
	Code string `json:"code"`

	types.BaseModel
}

// Validate validates the organization label
func (l *OrganizationLabel) Validate() error {
	if l.Name == "" {
		return ierr.NewError("invalid label name").
			WithHint("Label name is required").
			Mark(ierr.ErrValidation)
	}
	if l.Code == "" {
		return ierr.NewError("invalid label code").
			WithHint("Label code is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the organization label
func (l *OrganizationLabel) TableName() string {
	return "organization_labels"
}

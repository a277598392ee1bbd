package types

import (
	"fmt"

	"github.com/samber/lo"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending          PaymentStatus = "PENDING"
	PaymentStatusAwaitingApproval PaymentStatus = "AWAITING_APPROVAL"
	PaymentStatusPaid             PaymentStatus = "PAID"
	PaymentStatusFailed           PaymentStatus = "FAILED"
	PaymentStatusExpired          PaymentStatus = "EXPIRED"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusAwaitingApproval,
		PaymentStatusPaid,
		PaymentStatusFailed,
		PaymentStatusExpired,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid payment status: %s", s)
	}
	return nil
}

// PaymentProvider represents the collection path for a payment
type PaymentProvider string

const (
	// PaymentProviderInvoice is the hosted-invoice provider: fire-and-forget
	// creation, asynchronous webhook callbacks.
	PaymentProviderInvoice PaymentProvider = "INVOICE"
	// PaymentProviderBillingAgreement is the recurring billing-agreement
	// provider: two-phase create/execute with a user approval redirect.
	PaymentProviderBillingAgreement PaymentProvider = "BILLING_AGREEMENT"
	// PaymentProviderManual is the offline path; collection happens outside
	// the system and an operator confirms by hand.
	PaymentProviderManual PaymentProvider = "MANUAL"
)

func (p PaymentProvider) String() string {
	return string(p)
}

func (p PaymentProvider) Validate() error {
	allowed := []PaymentProvider{
		PaymentProviderInvoice,
		PaymentProviderBillingAgreement,
		PaymentProviderManual,
	}
	if !lo.Contains(allowed, p) {
		return fmt.Errorf("invalid payment provider: %s", p)
	}
	return nil
}

// PaymentKind discriminates the typed metadata payload carried by a payment
type PaymentKind string

const (
	// PaymentKindSubscription is a single-user subscription purchase.
	PaymentKindSubscription PaymentKind = "SUBSCRIPTION"
	// PaymentKindOrgInvoice is a bulk purchase covering many beneficiaries
	// under one organization label.
	PaymentKindOrgInvoice PaymentKind = "ORG_INVOICE"
)

func (k PaymentKind) String() string {
	return string(k)
}

func (k PaymentKind) Validate() error {
	allowed := []PaymentKind{
		PaymentKindSubscription,
		PaymentKindOrgInvoice,
	}
	if !lo.Contains(allowed, k) {
		return fmt.Errorf("invalid payment kind: %s", k)
	}
	return nil
}

// PaymentFilter represents the filter for listing payments
type PaymentFilter struct {
	PaymentIDs          []string         `form:"payment_ids"`
	PayerUserID         *string          `form:"payer_user_id"`
	Provider            *PaymentProvider `form:"provider"`
	PaymentStatus       *PaymentStatus   `form:"payment_status"`
	Kind                *PaymentKind     `form:"kind"`
	OrganizationLabelID *string          `form:"organization_label_id"`
	Currency            *string          `form:"currency"`
}

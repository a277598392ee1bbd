package payment

import (
	"encoding/json"
	"time"

	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/shopspring/decimal"
)

// The payment metadata map is schema-less at the storage layer but every
// workflow writes exactly one typed payload into it, keyed by the payment
// kind. The two variants below are the only shapes that ever appear.

const (
	metadataKeyKind    = "kind"
	metadataKeyPayload = "payload"
)

// OrgInvoiceMetadata is the payload carried by ORG_INVOICE payments
type OrgInvoiceMetadata struct {
	LabelID            string              `json:"label_id"`
	BeneficiaryUserIDs []string            `json:"beneficiary_user_ids"`
	PricePerUser       decimal.Decimal     `json:"price_per_user"`
	Period             types.BillingPeriod `json:"period"`
	ApprovalRequired   bool                `json:"approval_required"`
	// Approval audit trail
	ApprovedBy *string    `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	// Failure audit
	FailureReason *string `json:"failure_reason,omitempty"`
	// PreviousPaymentID links a renewal to the payment it renews
	PreviousPaymentID *string `json:"previous_payment_id,omitempty"`
}

// SubscriptionMetadata is the payload carried by single-user subscription
// payments, whichever provider collects them. ProviderPlanID is only set on
// the billing-agreement path.
type SubscriptionMetadata struct {
	PlanTier       types.PlanTier      `json:"plan_tier"`
	Period         types.BillingPeriod `json:"period,omitempty"`
	ProviderPlanID string              `json:"provider_plan_id,omitempty"`
}

// SetOrgInvoiceMetadata writes the typed org-invoice payload
func (p *Payment) SetOrgInvoiceMetadata(meta *OrgInvoiceMetadata) error {
	return p.setPayload(types.PaymentKindOrgInvoice, meta)
}

// OrgInvoiceMetadata reads the typed org-invoice payload. Payments of any
// other kind return an invalid-operation error.
func (p *Payment) OrgInvoiceMetadata() (*OrgInvoiceMetadata, error) {
	if p.Kind != types.PaymentKindOrgInvoice {
		return nil, ierr.NewError("payment is not an org invoice").
			WithHint("Payment does not carry an org invoice payload").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
				"kind":       p.Kind,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	var meta OrgInvoiceMetadata
	if err := p.payload(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// SetSubscriptionMetadata writes the typed subscription payload
func (p *Payment) SetSubscriptionMetadata(meta *SubscriptionMetadata) error {
	return p.setPayload(types.PaymentKindSubscription, meta)
}

// SubscriptionMetadata reads the typed subscription payload
func (p *Payment) SubscriptionMetadata() (*SubscriptionMetadata, error) {
	if p.Kind != types.PaymentKindSubscription {
		return nil, ierr.NewError("payment is not a subscription purchase").
			WithHint("Payment does not carry a subscription payload").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
				"kind":       p.Kind,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	var meta SubscriptionMetadata
	if err := p.payload(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (p *Payment) setPayload(kind types.PaymentKind, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode payment metadata").
			Mark(ierr.ErrValidation)
	}
	if p.Metadata == nil {
		p.Metadata = types.Metadata{}
	}
	p.Kind = kind
	p.Metadata[metadataKeyKind] = kind.String()
	p.Metadata[metadataKeyPayload] = string(raw)
	return nil
}

func (p *Payment) payload(target any) error {
	raw, ok := p.Metadata[metadataKeyPayload]
	if !ok {
		return ierr.NewError("payment has no metadata payload").
			WithHint("Payment metadata payload is missing").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
			}).
			Mark(ierr.ErrNotFound)
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to decode payment metadata").
			Mark(ierr.ErrValidation)
	}
	return nil
}

package payment

import (
	"time"

	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/shopspring/decimal"
)

// Payment represents a payment transaction
type Payment struct {
	// Unique identifier for this payment transaction
	ID string `json:"id"`
	// Unique key used to prevent duplicate payment processing
	IdempotencyKey string `json:"idempotency_key"`
	// The payer_user_id identifies who is paying
	PayerUserID string `json:"payer_user_id"`
	// The kind discriminates the typed metadata payload (subscription vs org invoice)
	Kind types.PaymentKind `json:"kind"`
	// The amount field specifies the payment value in the given currency
	Amount decimal.Decimal `json:"amount"`
	// The currency field uses a three-letter ISO code
	Currency string `json:"currency"`
	// The provider indicates the collection path (invoice, billing agreement, manual)
	Provider types.PaymentProvider `json:"provider"`
	// The payment_status shows the current state of this payment
	PaymentStatus types.PaymentStatus `json:"payment_status"`
	// The external_id is the identifier assigned by the invoice provider (optional)
	ExternalID *string `json:"external_id,omitempty"`
	// The agreement_id is the billing-agreement identifier (optional)
	AgreementID *string `json:"agreement_id,omitempty"`
	// The token is the short-lived approval token from the agreement provider (optional)
	Token *string `json:"token,omitempty"`
	// The billing_token is the long-lived agreement token (optional). The
	// provider is inconsistent about which token survives the approval
	// redirect, so all three correlation keys are kept.
	BillingToken *string `json:"billing_token,omitempty"`
	// The subscription_id links the payment to the subscription it activates
	// (optional; nil for org invoices until fan-out)
	SubscriptionID *string `json:"subscription_id,omitempty"`
	// The organization_label_id tags org-invoice payments (optional)
	OrganizationLabelID *string `json:"organization_label_id,omitempty"`
	// The redirect_url is where the payer is sent to complete payment (optional)
	RedirectURL *string `json:"redirect_url,omitempty"`
	// The metadata field carries the workflow-specific typed payload
	Metadata types.Metadata `json:"metadata,omitempty"`
	// The gateway_metadata field stores the raw provider response as opaque
	// audit data (optional)
	GatewayMetadata types.Metadata `json:"gateway_metadata,omitempty"`
	// The paid_at timestamp shows when this payment completed (optional)
	PaidAt *time.Time `json:"paid_at,omitempty"`
	// The failed_at timestamp indicates when this payment failed (optional)
	FailedAt *time.Time `json:"failed_at,omitempty"`
	// The error_message field provides details about why the payment failed (optional)
	ErrorMessage *string `json:"error_message,omitempty"`

	types.BaseModel
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if p.PayerUserID == "" {
		return ierr.NewError("invalid payer user id").
			WithHint("Payer user id is required").
			Mark(ierr.ErrValidation)
	}
	if p.Amount.IsZero() || p.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be greater than 0").
			Mark(ierr.ErrValidation)
	}
	if p.Currency == "" {
		return ierr.NewError("invalid currency").
			WithHint("Currency is required").
			Mark(ierr.ErrValidation)
	}
	if err := p.Provider.Validate(); err != nil {
		return ierr.NewError("invalid payment provider").
			WithHint("Payment provider is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := p.Kind.Validate(); err != nil {
		return ierr.NewError("invalid payment kind").
			WithHint("Payment kind is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsFinal reports whether the payment reached a settled state. A payment is
// immutable once PAID except for audit metadata.
func (p *Payment) IsFinal() bool {
	switch p.PaymentStatus {
	case types.PaymentStatusPaid, types.PaymentStatusFailed, types.PaymentStatusExpired:
		return true
	default:
		return false
	}
}

// TableName returns the table name for the payment
func (p *Payment) TableName() string {
	return "payments"
}

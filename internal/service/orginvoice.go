package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/payment"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/idempotency"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/notification"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CreateOrgInvoiceRequest opens a bulk invoice covering enterprise seats
// for every listed beneficiary of an organization label.
type CreateOrgInvoiceRequest struct {
	LabelID            string   `json:"label_id" validate:"required"`
	PayerUserID        string   `json:"payer_user_id" validate:"required"`
	BeneficiaryUserIDs []string `json:"beneficiary_user_ids" validate:"required,min=1"`
	// PricePerUser and TotalAmount are alternatives: when TotalAmount is
	// set it wins, otherwise the total is PricePerUser times the number of
	// beneficiaries.
	PricePerUser decimal.Decimal  `json:"price_per_user"`
	TotalAmount  *decimal.Decimal `json:"total_amount,omitempty"`
	Currency     string           `json:"currency"`
	Period       types.BillingPeriod `json:"period" validate:"required"`
	// Provider chooses how the money is collected: INVOICE goes through the
	// hosted-invoice provider, MANUAL records an offline transfer and
	// always requires operator approval.
	Provider         types.PaymentProvider `json:"provider"`
	ApprovalRequired bool                  `json:"approval_required"`
}

func (r *CreateOrgInvoiceRequest) Validate() error {
	if r.LabelID == "" || r.PayerUserID == "" {
		return ierr.NewError("invalid org invoice request").
			WithHint("Label id and payer user id are required").
			Mark(ierr.ErrValidation)
	}
	if len(r.BeneficiaryUserIDs) == 0 {
		return ierr.NewError("no beneficiaries").
			WithHint("At least one beneficiary is required").
			Mark(ierr.ErrValidation)
	}
	if err := r.Period.Validate(); err != nil {
		return ierr.NewError("invalid billing period").
			WithHintf("Period must be %s or %s", types.BILLING_PERIOD_MONTHLY, types.BILLING_PERIOD_YEARLY).
			Mark(ierr.ErrValidation)
	}
	if r.Provider != "" && r.Provider != types.PaymentProviderInvoice && r.Provider != types.PaymentProviderManual {
		return ierr.NewError("unsupported org invoice provider").
			WithHintf("Org invoices collect via %s or %s", types.PaymentProviderInvoice, types.PaymentProviderManual).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RenewOrgInvoiceOverrides adjusts a renewal relative to the invoice it
// renews. Nil fields inherit from the previous invoice.
type RenewOrgInvoiceOverrides struct {
	BeneficiaryUserIDs []string             `json:"beneficiary_user_ids,omitempty"`
	PricePerUser       *decimal.Decimal     `json:"price_per_user,omitempty"`
	TotalAmount        *decimal.Decimal     `json:"total_amount,omitempty"`
	Period             *types.BillingPeriod `json:"period,omitempty"`
}

// OrgInvoiceService runs the organization bulk-invoice workflow: open an
// invoice for many beneficiaries, collect or approve it, and fan paid seats
// out into enterprise subscriptions.
type OrgInvoiceService interface {
	Create(ctx context.Context, req *CreateOrgInvoiceRequest) (*payment.Payment, error)
	// Approve settles an AWAITING_APPROVAL invoice. Operators only.
	// Approving an already-paid invoice re-runs the fan-out, which repairs
	// beneficiaries missed by a partial earlier run.
	Approve(ctx context.Context, paymentID string) (*payment.Payment, error)
	// Fail closes an open invoice without payment. When expireSubscriptions
	// is set the beneficiaries' enterprise subscriptions are expired too.
	Fail(ctx context.Context, paymentID, reason string, expireSubscriptions bool) (*payment.Payment, error)
	// Renew opens a fresh invoice carrying over the previous invoice's
	// terms, linked back through the metadata audit trail.
	Renew(ctx context.Context, previousPaymentID string, overrides *RenewOrgInvoiceOverrides) (*payment.Payment, error)
	Get(ctx context.Context, paymentID string) (*payment.Payment, error)
}

type orgInvoiceService struct {
	ServiceParams
	idemGen *idempotency.Generator
}

func NewOrgInvoiceService(params ServiceParams) OrgInvoiceService {
	return &orgInvoiceService{
		ServiceParams: params,
		idemGen:       idempotency.NewGenerator(),
	}
}

func (s *orgInvoiceService) Create(ctx context.Context, req *CreateOrgInvoiceRequest) (*payment.Payment, error) {
	if err := s.requireOperator(ctx); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	label, err := s.OrgLabelRepo.Get(ctx, req.LabelID)
	if err != nil {
		return nil, err
	}

	prov := req.Provider
	if prov == "" {
		prov = types.PaymentProviderInvoice
	}
	// Offline transfers have no provider callback, so a human must confirm
	// the money arrived.
	approvalRequired := req.ApprovalRequired || prov == types.PaymentProviderManual

	total := req.PricePerUser.Mul(decimal.NewFromInt(int64(len(req.BeneficiaryUserIDs))))
	if req.TotalAmount != nil {
		total = *req.TotalAmount
	}
	if total.IsZero() || total.IsNegative() {
		return nil, ierr.NewError("invalid invoice total").
			WithHint("Invoice total must be greater than 0").
			Mark(ierr.ErrValidation)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.Config.Subscription.DefaultCurrency
	}

	status := types.PaymentStatusPending
	if approvalRequired {
		status = types.PaymentStatusAwaitingApproval
	}

	p := &payment.Payment{
		ID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		IdempotencyKey: s.idemGen.GenerateKey(idempotency.ScopeOrgInvoice, map[string]interface{}{
			"label_id":   req.LabelID,
			"payer":      req.PayerUserID,
			"period":     req.Period.String(),
			"created_at": time.Now().UTC().Format(time.RFC3339),
		}),
		PayerUserID:         req.PayerUserID,
		Amount:              total,
		Currency:            currency,
		Provider:            prov,
		PaymentStatus:       status,
		OrganizationLabelID: lo.ToPtr(label.ID),
		BaseModel:           types.GetDefaultBaseModel(ctx),
	}
	if err := p.SetOrgInvoiceMetadata(&payment.OrgInvoiceMetadata{
		LabelID:            label.ID,
		BeneficiaryUserIDs: req.BeneficiaryUserIDs,
		PricePerUser:       req.PricePerUser,
		Period:             req.Period,
		ApprovalRequired:   approvalRequired,
	}); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	// Approval-gated invoices never touch the provider; collection happens
	// after an operator confirms.
	if !approvalRequired && prov == types.PaymentProviderInvoice {
		u, err := s.UserRepo.Get(ctx, req.PayerUserID)
		if err != nil {
			return nil, err
		}
		session, err := s.InvoiceProvider.CreateCheckout(ctx, checkoutIntent(p, u.Email,
			fmt.Sprintf("Enterprise seats for %s (%d users)", label.Name, len(req.BeneficiaryUserIDs)),
			"", types.PlanTierEnterpriseCustom))
		if err != nil {
			s.markFailed(ctx, p, err.Error())
			return nil, err
		}
		p.ExternalID = session.ExternalID
		p.RedirectURL = lo.ToPtr(session.RedirectURL)
		p.GatewayMetadata = session.Raw
		p.UpdatedAt = time.Now().UTC()
		if err := s.PaymentRepo.Update(ctx, p); err != nil {
			return nil, err
		}
	}

	s.Logger.Infow("org invoice created",
		"payment_id", p.ID,
		"label_id", label.ID,
		"beneficiaries", len(req.BeneficiaryUserIDs),
		"total", total,
		"currency", currency,
		"approval_required", approvalRequired)

	return p, nil
}

func (s *orgInvoiceService) Approve(ctx context.Context, paymentID string) (*payment.Payment, error) {
	if err := s.requireOperator(ctx); err != nil {
		return nil, err
	}

	p, err := s.getOrgInvoice(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	// Re-approving a paid invoice only re-runs the fan-out.
	if p.PaymentStatus == types.PaymentStatusPaid {
		if err := fanOutOrgInvoice(ctx, s.ServiceParams, p); err != nil {
			return nil, err
		}
		return p, nil
	}

	if p.PaymentStatus != types.PaymentStatusAwaitingApproval {
		return nil, ierr.NewError("invoice is not awaiting approval").
			WithHintf("Cannot approve an invoice in status %s", p.PaymentStatus).
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
				"status":     p.PaymentStatus,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	meta, err := p.OrgInvoiceMetadata()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	meta.ApprovedBy = lo.ToPtr(types.GetUserID(ctx))
	meta.ApprovedAt = lo.ToPtr(now)
	if err := p.SetOrgInvoiceMetadata(meta); err != nil {
		return nil, err
	}

	p.PaymentStatus = types.PaymentStatusPaid
	p.PaidAt = lo.ToPtr(now)
	p.UpdatedAt = now
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("org invoice approved",
		"payment_id", p.ID,
		"approved_by", types.GetUserID(ctx))

	if err := fanOutOrgInvoice(ctx, s.ServiceParams, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *orgInvoiceService) Fail(ctx context.Context, paymentID, reason string, expireSubscriptions bool) (*payment.Payment, error) {
	if err := s.requireOperator(ctx); err != nil {
		return nil, err
	}

	p, err := s.getOrgInvoice(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.PaymentStatus == types.PaymentStatusPaid {
		return nil, ierr.NewError("invoice already paid").
			WithHint("A paid invoice cannot be failed").
			Mark(ierr.ErrInvalidOperation)
	}
	if p.PaymentStatus == types.PaymentStatusFailed {
		return p, nil
	}

	meta, err := p.OrgInvoiceMetadata()
	if err != nil {
		return nil, err
	}
	meta.FailureReason = lo.ToPtr(reason)
	if err := p.SetOrgInvoiceMetadata(meta); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p.PaymentStatus = types.PaymentStatusFailed
	p.FailedAt = lo.ToPtr(now)
	p.ErrorMessage = lo.ToPtr(reason)
	p.UpdatedAt = now
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	if expireSubscriptions {
		subSvc := NewSubscriptionService(s.ServiceParams)
		for _, userID := range meta.BeneficiaryUserIDs {
			if err := subSvc.ForceExpire(ctx, userID); err != nil {
				s.Logger.Errorw("failed to expire beneficiary subscription",
					"payment_id", p.ID,
					"user_id", userID,
					"error", err)
			}
		}
	}

	s.Logger.Infow("org invoice failed",
		"payment_id", p.ID,
		"reason", reason,
		"expire_subscriptions", expireSubscriptions)

	return p, nil
}

func (s *orgInvoiceService) Renew(ctx context.Context, previousPaymentID string, overrides *RenewOrgInvoiceOverrides) (*payment.Payment, error) {
	if err := s.requireOperator(ctx); err != nil {
		return nil, err
	}

	prev, err := s.getOrgInvoice(ctx, previousPaymentID)
	if err != nil {
		return nil, err
	}
	prevMeta, err := prev.OrgInvoiceMetadata()
	if err != nil {
		return nil, err
	}

	req := &CreateOrgInvoiceRequest{
		LabelID:            prevMeta.LabelID,
		PayerUserID:        prev.PayerUserID,
		BeneficiaryUserIDs: prevMeta.BeneficiaryUserIDs,
		PricePerUser:       prevMeta.PricePerUser,
		Currency:           prev.Currency,
		Period:             prevMeta.Period,
		Provider:           prev.Provider,
		ApprovalRequired:   prevMeta.ApprovalRequired,
	}
	if overrides != nil {
		if len(overrides.BeneficiaryUserIDs) > 0 {
			req.BeneficiaryUserIDs = overrides.BeneficiaryUserIDs
		}
		if overrides.PricePerUser != nil {
			req.PricePerUser = *overrides.PricePerUser
		}
		if overrides.TotalAmount != nil {
			req.TotalAmount = overrides.TotalAmount
		}
		if overrides.Period != nil {
			req.Period = *overrides.Period
		}
	}

	p, err := s.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	meta, err := p.OrgInvoiceMetadata()
	if err != nil {
		return nil, err
	}
	meta.PreviousPaymentID = lo.ToPtr(prev.ID)
	if err := p.SetOrgInvoiceMetadata(meta); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("org invoice renewed",
		"payment_id", p.ID,
		"previous_payment_id", prev.ID)

	return p, nil
}

func (s *orgInvoiceService) Get(ctx context.Context, paymentID string) (*payment.Payment, error) {
	return s.getOrgInvoice(ctx, paymentID)
}

func (s *orgInvoiceService) getOrgInvoice(ctx context.Context, paymentID string) (*payment.Payment, error) {
	p, err := s.PaymentRepo.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Kind != types.PaymentKindOrgInvoice {
		return nil, ierr.NewError("payment is not an org invoice").
			WithHintf("Payment %s is a %s payment", p.ID, p.Kind).
			Mark(ierr.ErrInvalidOperation)
	}
	return p, nil
}

func (s *orgInvoiceService) requireOperator(ctx context.Context) error {
	if !types.GetUserRole(ctx).IsOperator() {
		return ierr.NewError("operator role required").
			WithHint("Only admins can manage org invoices").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

func (s *orgInvoiceService) markFailed(ctx context.Context, p *payment.Payment, reason string) {
	now := time.Now().UTC()
	p.PaymentStatus = types.PaymentStatusFailed
	p.FailedAt = lo.ToPtr(now)
	p.ErrorMessage = lo.ToPtr(reason)
	p.UpdatedAt = now
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		s.Logger.Errorw("failed to mark org invoice failed",
			"payment_id", p.ID,
			"error", err)
	}
}

// fanOutOrgInvoice turns a paid org invoice into an active enterprise
// subscription for every beneficiary. Each beneficiary is upserted
// independently and best-effort: one failure is logged and the rest still
// get their seats, and the whole fan-out is safe to re-run.
func fanOutOrgInvoice(ctx context.Context, params ServiceParams, p *payment.Payment) error {
	meta, err := p.OrgInvoiceMetadata()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	periodEnd, err := types.PeriodEnd(now, meta.Period)
	if err != nil {
		return err
	}

	var failed int
	for _, userID := range meta.BeneficiaryUserIDs {
		sub := &subscription.Subscription{
			ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			OwnerUserID:         userID,
			PlanTier:            types.PlanTierEnterpriseCustom,
			SubscriptionStatus:  types.SubscriptionStatusActive,
			StartedAt:           now,
			CurrentPeriodStart:  lo.ToPtr(now),
			CurrentPeriodEnd:    lo.ToPtr(periodEnd),
			ExpiresAt:           lo.ToPtr(periodEnd),
			AutoRenew:           false,
			CustomPrice:         lo.ToPtr(meta.PricePerUser),
			CustomCurrency:      lo.ToPtr(p.Currency),
			OrganizationLabelID: lo.ToPtr(meta.LabelID),
			BaseModel:           types.GetDefaultBaseModel(ctx),
		}
		if _, err := params.SubscriptionRepo.UpsertByOwner(ctx, sub); err != nil {
			failed++
			params.Logger.Errorw("failed to grant enterprise seat",
				"payment_id", p.ID,
				"user_id", userID,
				"error", err)
			continue
		}

		msg := &notification.Message{
			UserID:          userID,
			Type:            types.NotificationTypeSubscriptionActivated,
			Title:           "Enterprise subscription activated",
			Body:            fmt.Sprintf("Your organization subscription is active until %s.", periodEnd.Format("2006-01-02")),
			RelatedEntityID: p.ID,
		}
		if err := params.Notifier.Publish(ctx, msg); err != nil {
			params.Logger.Errorw("failed to publish notification",
				"user_id", userID,
				"error", err)
		}
	}

	params.Logger.Infow("org invoice fan-out completed",
		"payment_id", p.ID,
		"beneficiaries", len(meta.BeneficiaryUserIDs),
		"failed", failed)

	return nil
}

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
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider"
	invoiceprovider "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider/invoice"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/samber/lo"
)

// CheckoutRequest starts collection for a single-user subscription purchase.
type CheckoutRequest struct {
	UserID string `json:"user_id" validate:"required"`
	// Tier must be one of the paid tiers; trials never go through checkout
	// and enterprise seats are sold through org invoices.
	Tier     types.PlanTier `json:"tier" validate:"required"`
	Currency string         `json:"currency"`
	// PreferredProvider forces the collection path. When empty the currency
	// routes: USD goes through the billing-agreement provider, anything
	// else through the hosted-invoice provider.
	PreferredProvider types.PaymentProvider `json:"preferred_provider,omitempty"`
	Description       string                `json:"description,omitempty"`
}

func (r *CheckoutRequest) Validate() error {
	if r.UserID == "" {
		return ierr.NewError("invalid user id").
			WithHint("User id is required").
			Mark(ierr.ErrValidation)
	}
	if r.Tier != types.PlanTierPaidMonthly && r.Tier != types.PlanTierPaidYearly {
		return ierr.NewError("tier is not purchasable through checkout").
			WithHintf("Tier %s cannot be bought directly", r.Tier).
			Mark(ierr.ErrValidation)
	}
	if r.PreferredProvider != "" {
		if err := r.PreferredProvider.Validate(); err != nil {
			return ierr.NewError("invalid preferred provider").
				WithHint("Preferred provider is invalid").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// PaymentService orchestrates payment collection across providers and
// applies confirmed payments to subscriptions. Providers never mutate
// subscriptions themselves; every state change funnels through here.
type PaymentService interface {
	Checkout(ctx context.Context, req *CheckoutRequest) (*payment.Payment, error)
	// HandleInvoiceCallback processes a webhook from the hosted-invoice
	// provider. Replays of already-settled payments are no-ops.
	HandleInvoiceCallback(ctx context.Context, callbackToken, eventType string, payload []byte) error
	// ExecuteAgreement finalizes a billing agreement after the payer
	// approved it on the provider side.
	ExecuteAgreement(ctx context.Context, token string) (*payment.Payment, error)
	Get(ctx context.Context, id string) (*payment.Payment, error)
	List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error)
}

type paymentService struct {
	ServiceParams
	idemGen *idempotency.Generator
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
		idemGen:       idempotency.NewGenerator(),
	}
}

func (s *paymentService) Checkout(ctx context.Context, req *CheckoutRequest) (*payment.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = s.Config.Subscription.DefaultCurrency
	}

	prov := types.PaymentProviderInvoice
	if req.PreferredProvider == types.PaymentProviderBillingAgreement || currency == "USD" {
		prov = types.PaymentProviderBillingAgreement
	}

	// An in-flight checkout for the same purchase is returned as-is so the
	// payer can be re-sent to the same redirect instead of paying twice.
	idemKey := s.idemGen.GenerateKey(idempotency.ScopeCheckout, map[string]interface{}{
		"user_id":  req.UserID,
		"tier":     req.Tier.String(),
		"currency": currency,
		"provider": prov.String(),
	})
	if existing, err := s.PaymentRepo.GetByIdempotencyKey(ctx, idemKey); err == nil && existing != nil {
		if !existing.IsFinal() {
			return existing, nil
		}
		// The previous attempt settled; salt the key so the new attempt
		// gets its own row.
		idemKey = s.idemGen.GenerateKey(idempotency.ScopeCheckout, map[string]interface{}{
			"user_id":  req.UserID,
			"tier":     req.Tier.String(),
			"currency": currency,
			"provider": prov.String(),
			"previous": existing.ID,
		})
	} else if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	switch prov {
	case types.PaymentProviderBillingAgreement:
		return s.checkoutAgreement(ctx, req, currency, idemKey)
	default:
		return s.checkoutInvoice(ctx, req, currency, idemKey)
	}
}

// checkoutInvoice is the fire-and-forget path: the payment row is created
// first so its id can serve as the provider-side external reference, then
// the hosted invoice is requested.
func (s *paymentService) checkoutInvoice(ctx context.Context, req *CheckoutRequest, currency, idemKey string) (*payment.Payment, error) {
	plan, err := s.BillingPlanRepo.GetByTier(ctx, types.PaymentProviderInvoice, req.Tier, currency)
	if err != nil {
		return nil, err
	}
	if plan.Price.IsZero() || plan.Price.IsNegative() {
		return nil, ierr.NewError("catalog price is not positive").
			WithHintf("No valid price for tier %s in %s", req.Tier, currency).
			Mark(ierr.ErrValidation)
	}

	p := &payment.Payment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		IdempotencyKey: idemKey,
		PayerUserID:    req.UserID,
		Amount:         plan.Price,
		Currency:       currency,
		Provider:       types.PaymentProviderInvoice,
		PaymentStatus:  types.PaymentStatusPending,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := p.SetSubscriptionMetadata(&payment.SubscriptionMetadata{
		PlanTier: req.Tier,
		Period:   plan.Period,
	}); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	u, err := s.UserRepo.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	session, err := s.InvoiceProvider.CreateCheckout(ctx, checkoutIntent(p, u.Email, req.Description, "", req.Tier))
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

	s.Logger.Infow("invoice checkout created",
		"payment_id", p.ID,
		"user_id", req.UserID,
		"tier", req.Tier,
		"amount", p.Amount,
		"currency", currency)

	return p, nil
}

// checkoutAgreement is the recurring path. The catalog entry must carry a
// provider-side plan id before anything is persisted; without it the
// agreement cannot be created and no payment row should exist.
func (s *paymentService) checkoutAgreement(ctx context.Context, req *CheckoutRequest, currency, idemKey string) (*payment.Payment, error) {
	plan, err := s.BillingPlanRepo.GetByTier(ctx, types.PaymentProviderBillingAgreement, req.Tier, currency)
	if err != nil {
		return nil, err
	}
	if plan.ProviderPlanID == nil || *plan.ProviderPlanID == "" {
		return nil, ierr.NewError("catalog entry has no provider plan id").
			WithHintf("Tier %s is not provisioned for recurring billing in %s", req.Tier, currency).
			WithReportableDetails(map[string]any{
				"tier":     req.Tier,
				"currency": currency,
			}).
			Mark(ierr.ErrValidation)
	}

	// The agreement only settles when the payer approves and the token is
	// executed, so the subscription is staged now and activated then.
	sub, err := s.SubscriptionRepo.GetByOwner(ctx, req.UserID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		sub = &subscription.Subscription{
			ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			OwnerUserID:        req.UserID,
			PlanTier:           types.PlanTierTrial,
			SubscriptionStatus: types.SubscriptionStatusTrial,
			StartedAt:          time.Now().UTC(),
			AutoRenew:          true,
			BaseModel:          types.GetDefaultBaseModel(ctx),
		}
		if sub, err = s.SubscriptionRepo.UpsertByOwner(ctx, sub); err != nil {
			return nil, err
		}
	}

	p := &payment.Payment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		IdempotencyKey: idemKey,
		PayerUserID:    req.UserID,
		Amount:         plan.Price,
		Currency:       currency,
		Provider:       types.PaymentProviderBillingAgreement,
		PaymentStatus:  types.PaymentStatusPending,
		SubscriptionID: lo.ToPtr(sub.ID),
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := p.SetSubscriptionMetadata(&payment.SubscriptionMetadata{
		PlanTier:       req.Tier,
		Period:         plan.Period,
		ProviderPlanID: *plan.ProviderPlanID,
	}); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	u, err := s.UserRepo.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	session, err := s.AgreementProvider.CreateCheckout(ctx, checkoutIntent(p, u.Email, req.Description, *plan.ProviderPlanID, req.Tier))
	if err != nil {
		s.markFailed(ctx, p, err.Error())
		return nil, err
	}

	p.AgreementID = session.AgreementID
	p.Token = session.Token
	p.BillingToken = session.BillingToken
	p.RedirectURL = lo.ToPtr(session.RedirectURL)
	p.GatewayMetadata = session.Raw
	p.UpdatedAt = time.Now().UTC()
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("billing agreement checkout created",
		"payment_id", p.ID,
		"user_id", req.UserID,
		"tier", req.Tier,
		"subscription_id", sub.ID)

	return p, nil
}

func (s *paymentService) HandleInvoiceCallback(ctx context.Context, callbackToken, eventType string, payload []byte) error {
	if !s.InvoiceProvider.VerifyCallbackToken(callbackToken) {
		return ierr.NewError("invalid callback token").
			WithHint("Callback token does not match").
			Mark(ierr.ErrPermissionDenied)
	}

	event, err := s.InvoiceProvider.ParseCallback(eventType, payload)
	if err != nil {
		return err
	}

	p, err := s.PaymentRepo.GetByExternalID(ctx, event.ExternalID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.NewError("callback references unknown payment").
				WithHintf("No payment for external id %s", event.ExternalID).
				WithReportableDetails(map[string]any{
					"external_id": event.ExternalID,
					"event":       string(event.Kind),
				}).
				Mark(ierr.ErrCorrelation)
		}
		return err
	}

	// Providers redeliver webhooks; a settled payment is never reopened.
	if p.PaymentStatus == types.PaymentStatusPaid {
		s.Logger.Debugw("ignoring callback for already-paid payment",
			"payment_id", p.ID,
			"event", string(event.Kind))
		return nil
	}

	switch event.Kind {
	case invoiceprovider.EventPaid:
		return s.settlePaid(ctx, p, event.Raw)
	case invoiceprovider.EventExpired:
		return s.settleUnpaid(ctx, p, types.PaymentStatusExpired, "invoice expired before payment")
	case invoiceprovider.EventFailed:
		return s.settleUnpaid(ctx, p, types.PaymentStatusFailed, "invoice payment failed")
	default:
		return ierr.NewError("unhandled callback event").
			WithHintf("Event %s has no handler", event.Kind).
			Mark(ierr.ErrIntegration)
	}
}

func (s *paymentService) ExecuteAgreement(ctx context.Context, token string) (*payment.Payment, error) {
	result, err := s.AgreementProvider.ExecuteAgreement(ctx, token)
	if err != nil {
		return nil, err
	}

	// The provider is inconsistent about which identifier comes back from
	// the redirect, so correlation tries the executed agreement id first
	// and falls back to the approval token.
	p, err := s.PaymentRepo.GetByCorrelationKey(ctx, result.AgreementID)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		p, err = s.PaymentRepo.GetByCorrelationKey(ctx, token)
		if err != nil {
			if ierr.IsNotFound(err) {
				return nil, ierr.NewError("agreement execution matches no payment").
					WithHintf("No payment correlates to agreement %s", result.AgreementID).
					WithReportableDetails(map[string]any{
						"agreement_id": result.AgreementID,
						"token":        token,
					}).
					Mark(ierr.ErrCorrelation)
			}
			return nil, err
		}
	}

	if p.PaymentStatus == types.PaymentStatusPaid {
		return p, nil
	}

	p.AgreementID = lo.ToPtr(result.AgreementID)

	// Recurring prices live in the catalog; re-resolve at execution time in
	// case the entry changed between checkout and approval.
	if meta, err := p.SubscriptionMetadata(); err == nil {
		if plan, perr := s.BillingPlanRepo.GetByTier(ctx, types.PaymentProviderBillingAgreement, meta.PlanTier, p.Currency); perr == nil {
			p.Amount = plan.Price
		}
	}

	if err := s.settlePaid(ctx, p, result.Raw); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *paymentService) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return s.PaymentRepo.Get(ctx, id)
}

func (s *paymentService) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	return s.PaymentRepo.List(ctx, filter)
}

// settlePaid marks the payment PAID and applies its effect: org invoices
// fan out to every beneficiary, subscription purchases roll the owner onto
// a fresh paid period.
func (s *paymentService) settlePaid(ctx context.Context, p *payment.Payment, raw types.Metadata) error {
	now := time.Now().UTC()
	p.PaymentStatus = types.PaymentStatusPaid
	p.PaidAt = lo.ToPtr(now)
	p.GatewayMetadata = mergeMetadata(p.GatewayMetadata, raw)
	p.UpdatedAt = now
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return err
	}

	s.Logger.Infow("payment settled",
		"payment_id", p.ID,
		"kind", p.Kind,
		"provider", p.Provider,
		"amount", p.Amount,
		"currency", p.Currency)

	if p.Kind == types.PaymentKindOrgInvoice {
		return fanOutOrgInvoice(ctx, s.ServiceParams, p)
	}
	return s.applyPaidSubscription(ctx, p, now)
}

// applyPaidSubscription rolls the payer's subscription onto the period this
// payment bought. A linked subscription is updated in place; otherwise the
// owner's record is upserted, which also covers payers with no prior record.
func (s *paymentService) applyPaidSubscription(ctx context.Context, p *payment.Payment, now time.Time) error {
	meta, err := p.SubscriptionMetadata()
	if err != nil {
		return err
	}

	period := meta.Period
	if period == "" {
		if bp, ok := meta.PlanTier.BillingPeriod(); ok {
			period = bp
		}
	}
	var periodEnd time.Time
	if period != "" {
		if periodEnd, err = types.PeriodEnd(now, period); err != nil {
			return err
		}
	} else {
		// No resolvable cadence; a fixed month keeps access flowing until
		// the catalog is fixed.
		periodEnd = now.AddDate(0, 0, 30)
	}

	subSvc := NewSubscriptionService(s.ServiceParams)
	if p.SubscriptionID != nil {
		if _, err := subSvc.ApplyPaidPeriod(ctx, *p.SubscriptionID, meta.PlanTier, now, periodEnd); err != nil {
			return err
		}
	} else {
		sub := &subscription.Subscription{
			ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			OwnerUserID:        p.PayerUserID,
			PlanTier:           meta.PlanTier,
			SubscriptionStatus: types.SubscriptionStatusActive,
			StartedAt:          now,
			CurrentPeriodStart: lo.ToPtr(now),
			CurrentPeriodEnd:   lo.ToPtr(periodEnd),
			ExpiresAt:          lo.ToPtr(periodEnd),
			AutoRenew:          p.Provider == types.PaymentProviderBillingAgreement,
			BaseModel:          types.GetDefaultBaseModel(ctx),
		}
		upserted, err := s.SubscriptionRepo.UpsertByOwner(ctx, sub)
		if err != nil {
			return err
		}
		p.SubscriptionID = lo.ToPtr(upserted.ID)
		if err := s.PaymentRepo.Update(ctx, p); err != nil {
			return err
		}
	}

	s.notify(ctx, &notification.Message{
		UserID:          p.PayerUserID,
		Type:            types.NotificationTypeSubscriptionActivated,
		Title:           "Subscription activated",
		Body:            fmt.Sprintf("Your %s subscription is active until %s.", meta.PlanTier, periodEnd.Format("2006-01-02")),
		RelatedEntityID: p.ID,
	})
	return nil
}

// settleUnpaid marks the payment lost and expires the staged subscription
// if one was linked at checkout. Payments without a linked subscription
// leave the payer's existing record untouched.
func (s *paymentService) settleUnpaid(ctx context.Context, p *payment.Payment, status types.PaymentStatus, reason string) error {
	now := time.Now().UTC()
	p.PaymentStatus = status
	p.FailedAt = lo.ToPtr(now)
	p.ErrorMessage = lo.ToPtr(reason)
	p.UpdatedAt = now
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return err
	}

	if p.SubscriptionID != nil {
		subSvc := NewSubscriptionService(s.ServiceParams)
		if err := subSvc.ForceExpire(ctx, p.PayerUserID); err != nil {
			s.Logger.Errorw("failed to expire subscription after lost payment",
				"payment_id", p.ID,
				"subscription_id", *p.SubscriptionID,
				"error", err)
		}
	}

	s.notify(ctx, &notification.Message{
		UserID:          p.PayerUserID,
		Type:            types.NotificationTypePaymentFailed,
		Title:           "Payment unsuccessful",
		Body:            "Your payment could not be completed. Please try again.",
		RelatedEntityID: p.ID,
	})

	s.Logger.Infow("payment lost",
		"payment_id", p.ID,
		"status", status,
		"reason", reason)

	return nil
}

func (s *paymentService) markFailed(ctx context.Context, p *payment.Payment, reason string) {
	now := time.Now().UTC()
	p.PaymentStatus = types.PaymentStatusFailed
	p.FailedAt = lo.ToPtr(now)
	p.ErrorMessage = lo.ToPtr(reason)
	p.UpdatedAt = now
	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		s.Logger.Errorw("failed to mark payment failed",
			"payment_id", p.ID,
			"error", err)
	}
}

func (s *paymentService) notify(ctx context.Context, msg *notification.Message) {
	if err := s.Notifier.Publish(ctx, msg); err != nil {
		s.Logger.Errorw("failed to publish notification",
			"user_id", msg.UserID,
			"type", msg.Type,
			"error", err)
	}
}

func checkoutIntent(p *payment.Payment, email, description, providerPlanID string, tier types.PlanTier) *provider.CheckoutIntent {
	if description == "" {
		description = fmt.Sprintf("%s subscription", tier)
	}
	return &provider.CheckoutIntent{
		PaymentID:      p.ID,
		PayerUserID:    p.PayerUserID,
		PayerEmail:     email,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Description:    description,
		Tier:           tier,
		ProviderPlanID: providerPlanID,
	}
}

func mergeMetadata(dst, src types.Metadata) types.Metadata {
	out := dst.Copy()
	for k, v := range src {
		out[k] = v
	}
	return out
}

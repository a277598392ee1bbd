package service

import (
	"errors"
	"testing"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/billingplan"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/user"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/testutil"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PaymentService
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewPaymentService(s.params())
	s.setupTestData()
}

func (s *PaymentServiceSuite) params() ServiceParams {
	return ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		SubscriptionRepo:  s.GetStores().SubscriptionRepo,
		PaymentRepo:       s.GetStores().PaymentRepo,
		BillingPlanRepo:   s.GetStores().BillingPlanRepo,
		OrgLabelRepo:      s.GetStores().OrgLabelRepo,
		UserRepo:          s.GetStores().UserRepo,
		InvoiceProvider:   s.GetInvoiceProvider(),
		AgreementProvider: s.GetAgreementProvider(),
		Notifier:          s.GetNotifier(),
	}
}

func (s *PaymentServiceSuite) setupTestData() {
	users := s.GetStores().UserRepo.(*testutil.InMemoryUserStore)
	users.Seed(s.GetContext(), &user.User{
		ID:        "payer-1",
		Email:     "payer-1@example.com",
		Role:      types.UserRoleInvestor,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})

	plans := s.GetStores().BillingPlanRepo.(*testutil.InMemoryBillingPlanStore)
	plans.Seed(s.GetContext(), &billingplan.BillingPlan{
		Provider:  types.PaymentProviderInvoice,
		PlanTier:  types.PlanTierPaidMonthly,
		Period:    types.BILLING_PERIOD_MONTHLY,
		Currency:  "IDR",
		Price:     decimal.NewFromInt(150000),
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
	plans.Seed(s.GetContext(), &billingplan.BillingPlan{
		Provider:       types.PaymentProviderBillingAgreement,
		PlanTier:       types.PlanTierPaidMonthly,
		Period:         types.BILLING_PERIOD_MONTHLY,
		Currency:       "USD",
		Price:          decimal.NewFromInt(10),
		ProviderPlanID: lo.ToPtr("P-MONTHLY-USD"),
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	})
	plans.Seed(s.GetContext(), &billingplan.BillingPlan{
		Provider:  types.PaymentProviderBillingAgreement,
		PlanTier:  types.PlanTierPaidYearly,
		Period:    types.BILLING_PERIOD_YEARLY,
		Currency:  "USD",
		Price:     decimal.NewFromInt(100),
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
}

func (s *PaymentServiceSuite) TestInvoiceCheckout() {
	p, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID: "payer-1",
		Tier:   types.PlanTierPaidMonthly,
	})
	s.NoError(err)
	s.Equal(types.PaymentProviderInvoice, p.Provider)
	s.Equal(types.PaymentStatusPending, p.PaymentStatus)
	s.Equal("IDR", p.Currency)
	s.True(p.Amount.Equal(decimal.NewFromInt(150000)))
	s.NotNil(p.ExternalID)
	s.NotNil(p.RedirectURL)

	intent := s.GetInvoiceProvider().LastIntent()
	s.NotNil(intent)
	s.Equal(p.ID, intent.PaymentID)
	s.Equal("payer-1@example.com", intent.PayerEmail)
}

func (s *PaymentServiceSuite) TestCheckoutUSDRoutesToAgreement() {
	p, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID:   "payer-1",
		Tier:     types.PlanTierPaidMonthly,
		Currency: "USD",
	})
	s.NoError(err)
	s.Equal(types.PaymentProviderBillingAgreement, p.Provider)
	s.NotNil(p.Token)
	s.NotNil(p.SubscriptionID)

	// The agreement path stages a subscription record at checkout.
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), *p.SubscriptionID)
	s.NoError(err)
	s.Equal("payer-1", sub.OwnerUserID)
	s.Equal(types.SubscriptionStatusTrial, sub.SubscriptionStatus)
}

func (s *PaymentServiceSuite) TestAgreementCheckoutWithoutProviderPlanID() {
	_, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID:   "payer-1",
		Tier:     types.PlanTierPaidYearly,
		Currency: "USD",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	// Nothing may be persisted when the catalog entry is unusable.
	count, err := s.GetStores().PaymentRepo.Count(s.GetContext(), &types.PaymentFilter{})
	s.NoError(err)
	s.Zero(count)
}

func (s *PaymentServiceSuite) TestCheckoutReturnsInFlightPayment() {
	req := &CheckoutRequest{UserID: "payer-1", Tier: types.PlanTierPaidMonthly}

	first, err := s.service.Checkout(s.GetContext(), req)
	s.NoError(err)
	second, err := s.service.Checkout(s.GetContext(), req)
	s.NoError(err)
	s.Equal(first.ID, second.ID, "an open checkout must be reused, not duplicated")
}

func (s *PaymentServiceSuite) TestCheckoutAdapterFailureMarksPaymentFailed() {
	s.GetInvoiceProvider().CheckoutErr = errors.New("gateway down")

	_, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID: "payer-1",
		Tier:   types.PlanTierPaidMonthly,
	})
	s.Error(err)

	payments, err := s.GetStores().PaymentRepo.List(s.GetContext(), &types.PaymentFilter{})
	s.NoError(err)
	s.Len(payments, 1)
	s.Equal(types.PaymentStatusFailed, payments[0].PaymentStatus)
	s.NotNil(payments[0].ErrorMessage)
}

func (s *PaymentServiceSuite) TestCheckoutTrialTierRejected() {
	_, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID: "payer-1",
		Tier:   types.PlanTierTrial,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PaymentServiceSuite) TestHandleInvoiceCallbackPaid() {
	p, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID: "payer-1",
		Tier:   types.PlanTierPaidMonthly,
	})
	s.NoError(err)

	err = s.service.HandleInvoiceCallback(s.GetContext(), testutil.FakeCallbackToken,
		"invoice.paid", []byte(*p.ExternalID))
	s.NoError(err)

	settled, err := s.service.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusPaid, settled.PaymentStatus)
	s.NotNil(settled.PaidAt)

	sub, err := s.GetStores().SubscriptionRepo.GetByOwner(s.GetContext(), "payer-1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.Equal(types.PlanTierPaidMonthly, sub.PlanTier)
	s.NotNil(sub.CurrentPeriodEnd)

	msgs := s.GetNotifier().MessagesOfType(types.NotificationTypeSubscriptionActivated)
	s.Len(msgs, 1)
}

func (s *PaymentServiceSuite) TestHandleInvoiceCallbackReplayIsNoOp() {
	p, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID: "payer-1",
		Tier:   types.PlanTierPaidMonthly,
	})
	s.NoError(err)

	s.NoError(s.service.HandleInvoiceCallback(s.GetContext(), testutil.FakeCallbackToken,
		"invoice.paid", []byte(*p.ExternalID)))
	s.NoError(s.service.HandleInvoiceCallback(s.GetContext(), testutil.FakeCallbackToken,
		"invoice.paid", []byte(*p.ExternalID)))

	// Only one activation was sent despite the redelivery.
	msgs := s.GetNotifier().MessagesOfType(types.NotificationTypeSubscriptionActivated)
	s.Len(msgs, 1)
}

func (s *PaymentServiceSuite) TestHandleInvoiceCallbackUnknownExternalID() {
	err := s.service.HandleInvoiceCallback(s.GetContext(), testutil.FakeCallbackToken,
		"invoice.paid", []byte("ext_unknown"))
	s.Error(err)
	s.True(ierr.IsCorrelation(err))
}

func (s *PaymentServiceSuite) TestHandleInvoiceCallbackBadToken() {
	err := s.service.HandleInvoiceCallback(s.GetContext(), "wrong-token",
		"invoice.paid", []byte("ext_whatever"))
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *PaymentServiceSuite) TestHandleInvoiceCallbackExpired() {
	p, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID: "payer-1",
		Tier:   types.PlanTierPaidMonthly,
	})
	s.NoError(err)

	err = s.service.HandleInvoiceCallback(s.GetContext(), testutil.FakeCallbackToken,
		"invoice.expired", []byte(*p.ExternalID))
	s.NoError(err)

	settled, err := s.service.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusExpired, settled.PaymentStatus)

	msgs := s.GetNotifier().MessagesOfType(types.NotificationTypePaymentFailed)
	s.Len(msgs, 1)
	s.Equal("payer-1", msgs[0].UserID)
}

func (s *PaymentServiceSuite) TestExecuteAgreement() {
	p, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID:   "payer-1",
		Tier:     types.PlanTierPaidMonthly,
		Currency: "USD",
	})
	s.NoError(err)

	settled, err := s.service.ExecuteAgreement(s.GetContext(), *p.Token)
	s.NoError(err)
	s.Equal(types.PaymentStatusPaid, settled.PaymentStatus)
	s.NotNil(settled.AgreementID)

	sub, err := s.GetStores().SubscriptionRepo.GetByOwner(s.GetContext(), "payer-1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.Equal(types.PlanTierPaidMonthly, sub.PlanTier)
	s.NotNil(sub.CurrentPeriodEnd)
}

func (s *PaymentServiceSuite) TestExecuteAgreementIdempotent() {
	p, err := s.service.Checkout(s.GetContext(), &CheckoutRequest{
		UserID:   "payer-1",
		Tier:     types.PlanTierPaidMonthly,
		Currency: "USD",
	})
	s.NoError(err)

	first, err := s.service.ExecuteAgreement(s.GetContext(), *p.Token)
	s.NoError(err)
	second, err := s.service.ExecuteAgreement(s.GetContext(), *p.Token)
	s.NoError(err)
	s.Equal(first.ID, second.ID)
	s.Equal(types.PaymentStatusPaid, second.PaymentStatus)
}

func (s *PaymentServiceSuite) TestExecuteAgreementUnknownToken() {
	_, err := s.service.ExecuteAgreement(s.GetContext(), "tok_unknown")
	s.Error(err)
	s.True(ierr.IsCorrelation(err))
}

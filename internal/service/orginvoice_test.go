package service

import (
	"testing"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/orglabel"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/user"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/testutil"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type OrgInvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service OrgInvoiceService
	label   *orglabel.OrganizationLabel
}

func TestOrgInvoiceService(t *testing.T) {
	suite.Run(t, new(OrgInvoiceServiceSuite))
}

func (s *OrgInvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	// Org invoices are an operator workflow.
	s.SetContext(testutil.SetupContextWith("admin-1", types.UserRoleAdmin))
	s.service = NewOrgInvoiceService(s.params())
	s.setupTestData()
}

func (s *OrgInvoiceServiceSuite) params() ServiceParams {
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

func (s *OrgInvoiceServiceSuite) setupTestData() {
	users := s.GetStores().UserRepo.(*testutil.InMemoryUserStore)
	for _, u := range []*user.User{
		{ID: "admin-1", Email: "admin@example.com", Role: types.UserRoleAdmin},
		{ID: "owner-1", Email: "owner@example.com", Role: types.UserRoleBusinessOwner},
		{ID: "ben-1", Email: "ben-1@example.com", Role: types.UserRoleInvestor},
		{ID: "ben-2", Email: "ben-2@example.com", Role: types.UserRoleInvestor},
		{ID: "ben-3", Email: "ben-3@example.com", Role: types.UserRoleInvestor},
	} {
		u.BaseModel = types.GetDefaultBaseModel(s.GetContext())
		users.Seed(s.GetContext(), u)
	}

	s.label = &orglabel.OrganizationLabel{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORG_LABEL),
		Name:      "PT Layang Digital",
		Code:      "LAYANG",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().OrgLabelRepo.Create(s.GetContext(), s.label))
}

func (s *OrgInvoiceServiceSuite) createRequest() *CreateOrgInvoiceRequest {
	return &CreateOrgInvoiceRequest{
		LabelID:            s.label.ID,
		PayerUserID:        "owner-1",
		BeneficiaryUserIDs: []string{"ben-1", "ben-2", "ben-3"},
		PricePerUser:       decimal.NewFromInt(100000),
		Currency:           "IDR",
		Period:             types.BILLING_PERIOD_MONTHLY,
		Provider:           types.PaymentProviderInvoice,
	}
}

func (s *OrgInvoiceServiceSuite) TestCreateCollectsThroughInvoiceProvider() {
	p, err := s.service.Create(s.GetContext(), s.createRequest())
	s.NoError(err)
	s.Equal(types.PaymentKindOrgInvoice, p.Kind)
	s.Equal(types.PaymentStatusPending, p.PaymentStatus)
	s.True(p.Amount.Equal(decimal.NewFromInt(300000)), "total is price per user times beneficiaries")
	s.NotNil(p.ExternalID)
	s.NotNil(p.RedirectURL)
}

func (s *OrgInvoiceServiceSuite) TestCreateWithTotalOverride() {
	req := s.createRequest()
	req.TotalAmount = lo.ToPtr(decimal.NewFromInt(250000))

	p, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)
	s.True(p.Amount.Equal(decimal.NewFromInt(250000)))
}

func (s *OrgInvoiceServiceSuite) TestCreateManualRequiresApproval() {
	req := s.createRequest()
	req.Provider = types.PaymentProviderManual

	p, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)
	s.Equal(types.PaymentStatusAwaitingApproval, p.PaymentStatus)
	s.Nil(p.ExternalID, "approval-gated invoices never touch the provider")

	meta, err := p.OrgInvoiceMetadata()
	s.NoError(err)
	s.True(meta.ApprovalRequired)
}

func (s *OrgInvoiceServiceSuite) TestCreateRequiresOperator() {
	s.SetContext(testutil.SetupContextWith("owner-1", types.UserRoleBusinessOwner))

	_, err := s.service.Create(s.GetContext(), s.createRequest())
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *OrgInvoiceServiceSuite) TestApproveFansOutSeats() {
	req := s.createRequest()
	req.Provider = types.PaymentProviderManual

	p, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)

	approved, err := s.service.Approve(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusPaid, approved.PaymentStatus)

	meta, err := approved.OrgInvoiceMetadata()
	s.NoError(err)
	s.NotNil(meta.ApprovedBy)
	s.Equal("admin-1", *meta.ApprovedBy)
	s.NotNil(meta.ApprovedAt)

	// Every beneficiary holds an active enterprise seat.
	for _, userID := range []string{"ben-1", "ben-2", "ben-3"} {
		sub, err := s.GetStores().SubscriptionRepo.GetByOwner(s.GetContext(), userID)
		s.NoError(err)
		s.Equal(types.PlanTierEnterpriseCustom, sub.PlanTier)
		s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
		s.NotNil(sub.OrganizationLabelID)
		s.Equal(s.label.ID, *sub.OrganizationLabelID)
		s.NotNil(sub.CustomPrice)
		s.True(sub.CustomPrice.Equal(decimal.NewFromInt(100000)))
	}

	msgs := s.GetNotifier().MessagesOfType(types.NotificationTypeSubscriptionActivated)
	s.Len(msgs, 3)
}

func (s *OrgInvoiceServiceSuite) TestApproveReplaysFanOut() {
	req := s.createRequest()
	req.Provider = types.PaymentProviderManual

	p, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)

	_, err = s.service.Approve(s.GetContext(), p.ID)
	s.NoError(err)

	// A beneficiary's seat disappearing (row deleted, partial fan-out) is
	// repaired by re-approving.
	_, err = s.service.Approve(s.GetContext(), p.ID)
	s.NoError(err)

	sub, err := s.GetStores().SubscriptionRepo.GetByOwner(s.GetContext(), "ben-1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
}

func (s *OrgInvoiceServiceSuite) TestApprovePendingInvoiceIsInvalid() {
	p, err := s.service.Create(s.GetContext(), s.createRequest())
	s.NoError(err)

	_, err = s.service.Approve(s.GetContext(), p.ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *OrgInvoiceServiceSuite) TestFanOutUpgradesExistingSubscription() {
	// ben-1 already holds a trial subscription before the org invoice lands.
	subSvc := NewSubscriptionService(s.params())
	trial, err := subSvc.StartTrial(testutil.SetupContextWith("ben-1", types.UserRoleInvestor), "ben-1")
	s.NoError(err)
	s.NotNil(trial)

	req := s.createRequest()
	req.Provider = types.PaymentProviderManual
	p, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)
	_, err = s.service.Approve(s.GetContext(), p.ID)
	s.NoError(err)

	sub, err := s.GetStores().SubscriptionRepo.GetByOwner(s.GetContext(), "ben-1")
	s.NoError(err)
	s.Equal(trial.ID, sub.ID, "the owner's existing row is upserted, not duplicated")
	s.Equal(types.PlanTierEnterpriseCustom, sub.PlanTier)
}

func (s *OrgInvoiceServiceSuite) TestFailWithExpiry() {
	req := s.createRequest()
	req.Provider = types.PaymentProviderManual
	p, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)
	_, err = s.service.Approve(s.GetContext(), p.ID)
	s.NoError(err)

	// Raise and fail a renewal, expiring the seats granted above.
	renewal, err := s.service.Renew(s.GetContext(), p.ID, nil)
	s.NoError(err)

	failed, err := s.service.Fail(s.GetContext(), renewal.ID, "payment never arrived", true)
	s.NoError(err)
	s.Equal(types.PaymentStatusFailed, failed.PaymentStatus)

	meta, err := failed.OrgInvoiceMetadata()
	s.NoError(err)
	s.NotNil(meta.FailureReason)
	s.NotNil(meta.PreviousPaymentID)
	s.Equal(p.ID, *meta.PreviousPaymentID)

	for _, userID := range []string{"ben-1", "ben-2", "ben-3"} {
		sub, err := s.GetStores().SubscriptionRepo.GetByOwner(s.GetContext(), userID)
		s.NoError(err)
		s.Equal(types.SubscriptionStatusExpired, sub.SubscriptionStatus)
	}
}

func (s *OrgInvoiceServiceSuite) TestFailPaidInvoiceIsInvalid() {
	req := s.createRequest()
	req.Provider = types.PaymentProviderManual
	p, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)
	_, err = s.service.Approve(s.GetContext(), p.ID)
	s.NoError(err)

	_, err = s.service.Fail(s.GetContext(), p.ID, "too late", false)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *OrgInvoiceServiceSuite) TestRenewInheritsAndOverrides() {
	req := s.createRequest()
	req.Provider = types.PaymentProviderManual
	p, err := s.service.Create(s.GetContext(), req)
	s.NoError(err)

	renewal, err := s.service.Renew(s.GetContext(), p.ID, &RenewOrgInvoiceOverrides{
		BeneficiaryUserIDs: []string{"ben-1", "ben-2"},
		PricePerUser:       lo.ToPtr(decimal.NewFromInt(120000)),
	})
	s.NoError(err)
	s.True(renewal.Amount.Equal(decimal.NewFromInt(240000)))

	meta, err := renewal.OrgInvoiceMetadata()
	s.NoError(err)
	s.Equal([]string{"ben-1", "ben-2"}, meta.BeneficiaryUserIDs)
	s.Equal(p.ID, *meta.PreviousPaymentID)
	s.Equal(types.BILLING_PERIOD_MONTHLY, meta.Period)
}

func (s *OrgInvoiceServiceSuite) TestInvoicePaidCallbackFansOut() {
	// An org invoice collected through the hosted-invoice provider fans
	// out on the provider callback instead of operator approval.
	p, err := s.service.Create(s.GetContext(), s.createRequest())
	s.NoError(err)

	paymentSvc := NewPaymentService(s.params())
	err = paymentSvc.HandleInvoiceCallback(s.GetContext(), testutil.FakeCallbackToken,
		"invoice.paid", []byte(*p.ExternalID))
	s.NoError(err)

	for _, userID := range []string{"ben-1", "ben-2", "ben-3"} {
		sub, err := s.GetStores().SubscriptionRepo.GetByOwner(s.GetContext(), userID)
		s.NoError(err)
		s.Equal(types.PlanTierEnterpriseCustom, sub.PlanTier)
	}
}

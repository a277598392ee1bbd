package service

import (
	"testing"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/user"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/testutil"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type EntitlementServiceSuite struct {
	testutil.BaseServiceTestSuite
	service EntitlementService
}

func TestEntitlementService(t *testing.T) {
	suite.Run(t, new(EntitlementServiceSuite))
}

func (s *EntitlementServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewEntitlementService(s.params())
}

func (s *EntitlementServiceSuite) params() ServiceParams {
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

func (s *EntitlementServiceSuite) seedUser(id string, role types.UserRole) {
	s.GetStores().UserRepo.(*testutil.InMemoryUserStore).Seed(s.GetContext(), &user.User{
		ID:        id,
		Email:     id + "@example.com",
		Role:      role,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
}

func (s *EntitlementServiceSuite) activeSub(userID string, tier types.PlanTier, end time.Time) *subscription.Subscription {
	return &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		OwnerUserID:        userID,
		PlanTier:           tier,
		SubscriptionStatus: types.SubscriptionStatusActive,
		StartedAt:          s.GetNow().AddDate(0, -1, 0),
		CurrentPeriodStart: lo.ToPtr(s.GetNow().AddDate(0, -1, 0)),
		CurrentPeriodEnd:   lo.ToPtr(end),
		ExpiresAt:          lo.ToPtr(end),
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
}

func (s *EntitlementServiceSuite) TestOperatorBypassesSubscriptionCheck() {
	s.seedUser("admin-1", types.UserRoleAdmin)

	allowed, err := s.service.Check(s.GetContext(), "admin-1", types.PlanTierEnterpriseCustom)
	s.NoError(err)
	s.True(allowed)
}

func (s *EntitlementServiceSuite) TestNoSubscriptionDenies() {
	s.seedUser("investor-1", types.UserRoleInvestor)

	allowed, err := s.service.Check(s.GetContext(), "investor-1", types.PlanTierTrial)
	s.NoError(err)
	s.False(allowed)
}

func (s *EntitlementServiceSuite) TestActiveSubscriptionSatisfiesLowerTier() {
	s.seedUser("investor-2", types.UserRoleInvestor)
	sub := s.activeSub("investor-2", types.PlanTierPaidYearly, s.GetNow().AddDate(0, 6, 0))
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))

	for _, tier := range []types.PlanTier{types.PlanTierTrial, types.PlanTierPaidMonthly, types.PlanTierPaidYearly} {
		allowed, err := s.service.Check(s.GetContext(), "investor-2", tier)
		s.NoError(err)
		s.True(allowed, "tier %s should be allowed", tier)
	}

	allowed, err := s.service.Check(s.GetContext(), "investor-2", types.PlanTierEnterpriseCustom)
	s.NoError(err)
	s.False(allowed, "yearly plan must not satisfy enterprise")
}

func (s *EntitlementServiceSuite) TestTrialSatisfiesOnlyTrialTier() {
	s.seedUser("investor-3", types.UserRoleInvestor)
	trialEnd := s.GetNow().AddDate(0, 0, 3)
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		OwnerUserID:        "investor-3",
		PlanTier:           types.PlanTierTrial,
		SubscriptionStatus: types.SubscriptionStatusTrial,
		StartedAt:          s.GetNow(),
		TrialEndsAt:        lo.ToPtr(trialEnd),
		ExpiresAt:          lo.ToPtr(trialEnd),
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))

	allowed, err := s.service.Check(s.GetContext(), "investor-3", types.PlanTierTrial)
	s.NoError(err)
	s.True(allowed)

	allowed, err = s.service.Check(s.GetContext(), "investor-3", types.PlanTierPaidMonthly)
	s.NoError(err)
	s.False(allowed, "a live trial must not satisfy paid tiers")
}

func (s *EntitlementServiceSuite) TestExpiredPeriodDenies() {
	s.seedUser("investor-4", types.UserRoleInvestor)
	sub := s.activeSub("investor-4", types.PlanTierPaidMonthly, s.GetNow().Add(-time.Hour))
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))

	allowed, err := s.service.Check(s.GetContext(), "investor-4", types.PlanTierPaidMonthly)
	s.NoError(err)
	s.False(allowed, "elapsed period must deny even while status is still ACTIVE")
}

func (s *EntitlementServiceSuite) TestEvaluateBoundaryExactlyAtPeriodEnd() {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sub := s.activeSub("u", types.PlanTierPaidMonthly, now)

	// end == now is already expired; one nanosecond later still allows.
	s.False(s.service.Evaluate(sub, types.UserRoleInvestor, types.PlanTierPaidMonthly, now))
	s.True(s.service.Evaluate(sub, types.UserRoleInvestor, types.PlanTierPaidMonthly, now.Add(-time.Nanosecond)))
}

func (s *EntitlementServiceSuite) TestEvaluateCancelledAndExpiredDeny() {
	sub := s.activeSub("u", types.PlanTierPaidYearly, s.GetNow().AddDate(1, 0, 0))

	sub.SubscriptionStatus = types.SubscriptionStatusCancelled
	s.False(s.service.Evaluate(sub, types.UserRoleInvestor, types.PlanTierTrial, s.GetNow()))

	sub.SubscriptionStatus = types.SubscriptionStatusExpired
	s.False(s.service.Evaluate(sub, types.UserRoleInvestor, types.PlanTierTrial, s.GetNow()))
}

func (s *EntitlementServiceSuite) TestCheckInvalidTier() {
	s.seedUser("investor-5", types.UserRoleInvestor)
	_, err := s.service.Check(s.GetContext(), "investor-5", types.PlanTier("PLATINUM"))
	s.Error(err)
}

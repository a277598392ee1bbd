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

type JobsServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  JobsService
	tomorrow time.Time
}

func TestJobsService(t *testing.T) {
	suite.Run(t, new(JobsServiceSuite))
}

func (s *JobsServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewJobsService(s.params())
	// The sweeps window on the next calendar day relative to wall-clock
	// time, so the fixtures anchor on real now.
	s.tomorrow = time.Now().UTC().AddDate(0, 0, 1)
}

func (s *JobsServiceSuite) params() ServiceParams {
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

func (s *JobsServiceSuite) seedSubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub.ID == "" {
		sub.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION)
	}
	sub.BaseModel = types.GetDefaultBaseModel(s.GetContext())
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *JobsServiceSuite) TestTrialEndingSweepWarnsTomorrowOnly() {
	ending := s.seedSubscription(&subscription.Subscription{
		OwnerUserID:        "investor-1",
		PlanTier:           types.PlanTierTrial,
		SubscriptionStatus: types.SubscriptionStatusTrial,
		TrialEndsAt:        lo.ToPtr(s.tomorrow),
	})
	// Ends the day after tomorrow, outside the window.
	s.seedSubscription(&subscription.Subscription{
		OwnerUserID:        "investor-2",
		PlanTier:           types.PlanTierTrial,
		SubscriptionStatus: types.SubscriptionStatusTrial,
		TrialEndsAt:        lo.ToPtr(s.tomorrow.AddDate(0, 0, 1)),
	})
	// Cancelled trials are not warned even inside the window.
	s.seedSubscription(&subscription.Subscription{
		OwnerUserID:        "investor-3",
		PlanTier:           types.PlanTierTrial,
		SubscriptionStatus: types.SubscriptionStatusCancelled,
		TrialEndsAt:        lo.ToPtr(s.tomorrow),
	})

	result, err := s.service.TrialEndingSweep(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.Candidates)
	s.Equal(1, result.Succeeded)

	msgs := s.GetNotifier().MessagesOfType(types.NotificationTypeTrialEnding)
	s.Len(msgs, 1)
	s.Equal("investor-1", msgs[0].UserID)
	s.Equal(ending.ID, msgs[0].RelatedEntityID)
}

func (s *JobsServiceSuite) TestTrialEndingSweepFallsBackToExpiresAt() {
	s.seedSubscription(&subscription.Subscription{
		OwnerUserID:        "investor-1",
		PlanTier:           types.PlanTierTrial,
		SubscriptionStatus: types.SubscriptionStatusTrial,
		ExpiresAt:          lo.ToPtr(s.tomorrow),
	})

	result, err := s.service.TrialEndingSweep(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.Succeeded)
}

func (s *JobsServiceSuite) TestTrialEndingSweepEmptyWindow() {
	result, err := s.service.TrialEndingSweep(s.GetContext())
	s.NoError(err)
	s.Equal(types.SweepResult{}, result)
	s.Empty(s.GetNotifier().Messages())
}

func (s *JobsServiceSuite) TestPastDueSweepExpires() {
	overdue := s.seedSubscription(&subscription.Subscription{
		OwnerUserID:        "investor-1",
		PlanTier:           types.PlanTierPaidMonthly,
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodEnd:   lo.ToPtr(time.Now().UTC().Add(-time.Hour)),
	})
	s.seedSubscription(&subscription.Subscription{
		OwnerUserID:        "investor-2",
		PlanTier:           types.PlanTierPaidMonthly,
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodEnd:   lo.ToPtr(s.tomorrow),
	})

	result, err := s.service.PastDueSweep(s.GetContext())
	s.NoError(err)
	s.Equal(types.SweepResult{Candidates: 1, Succeeded: 1}, result)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), overdue.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusExpired, sub.SubscriptionStatus)
}

func (s *JobsServiceSuite) TestEnterpriseEndingSweepNotifiesOwnerAndOperators() {
	users := s.GetStores().UserRepo.(*testutil.InMemoryUserStore)
	for _, u := range []*user.User{
		{ID: "admin-1", Email: "admin@example.com", Role: types.UserRoleAdmin},
		{ID: "super-1", Email: "super@example.com", Role: types.UserRoleSuperAdmin},
		{ID: "investor-1", Email: "i1@example.com", Role: types.UserRoleInvestor},
	} {
		u.BaseModel = types.GetDefaultBaseModel(s.GetContext())
		users.Seed(s.GetContext(), u)
	}

	ending := s.seedSubscription(&subscription.Subscription{
		OwnerUserID:        "investor-1",
		PlanTier:           types.PlanTierEnterpriseCustom,
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodEnd:   lo.ToPtr(s.tomorrow),
	})
	// Non-enterprise subscription ending tomorrow stays out of this sweep.
	s.seedSubscription(&subscription.Subscription{
		OwnerUserID:        "investor-2",
		PlanTier:           types.PlanTierPaidMonthly,
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodEnd:   lo.ToPtr(s.tomorrow),
	})

	result, err := s.service.EnterpriseEndingSweep(s.GetContext())
	s.NoError(err)
	s.Equal(types.SweepResult{Candidates: 1, Succeeded: 1}, result)

	msgs := s.GetNotifier().MessagesOfType(types.NotificationTypeEnterpriseEnding)
	s.Len(msgs, 3, "owner plus both operators")
	recipients := make(map[string]bool, len(msgs))
	for _, m := range msgs {
		recipients[m.UserID] = true
		s.Equal(ending.ID, m.RelatedEntityID)
	}
	s.True(recipients["investor-1"])
	s.True(recipients["admin-1"])
	s.True(recipients["super-1"])
}

func (s *JobsServiceSuite) TestEnterpriseEndingSweepWithoutOperators() {
	s.seedSubscription(&subscription.Subscription{
		OwnerUserID:        "investor-1",
		PlanTier:           types.PlanTierEnterpriseCustom,
		SubscriptionStatus: types.SubscriptionStatusActive,
		CurrentPeriodEnd:   lo.ToPtr(s.tomorrow),
	})

	result, err := s.service.EnterpriseEndingSweep(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.Succeeded)

	msgs := s.GetNotifier().MessagesOfType(types.NotificationTypeEnterpriseEnding)
	s.Len(msgs, 1)
	s.Equal("investor-1", msgs[0].UserID)
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/user"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/notification"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// JobsService holds the scheduled sweeps. Every sweep selects by calendar
// day in UTC, handles each record independently, and reports how many
// candidates it saw versus how many it processed.
type JobsService interface {
	// TrialEndingSweep warns users whose trial ends tomorrow.
	TrialEndingSweep(ctx context.Context) (types.SweepResult, error)
	// PastDueSweep expires subscriptions whose period has elapsed.
	PastDueSweep(ctx context.Context) (types.SweepResult, error)
	// EnterpriseEndingSweep warns beneficiaries and operators about
	// enterprise subscriptions ending tomorrow, so renewals can be raised
	// before access lapses.
	EnterpriseEndingSweep(ctx context.Context) (types.SweepResult, error)
}

type jobsService struct {
	ServiceParams
}

func NewJobsService(params ServiceParams) JobsService {
	return &jobsService{ServiceParams: params}
}

func (s *jobsService) TrialEndingSweep(ctx context.Context) (types.SweepResult, error) {
	from, to := types.CalendarDayWindow(time.Now().UTC(), 1)
	candidates, err := s.SubscriptionRepo.ListTrialEndingBetween(ctx, from, to)
	if err != nil {
		return types.SweepResult{}, err
	}

	result := types.SweepResult{Candidates: len(candidates)}
	for _, sub := range candidates {
		if sub.SubscriptionStatus != types.SubscriptionStatusTrial {
			continue
		}
		if err := s.Notifier.Publish(ctx, &notification.Message{
			UserID:          sub.OwnerUserID,
			Type:            types.NotificationTypeTrialEnding,
			Title:           "Your trial ends tomorrow",
			Body:            "Your free trial ends tomorrow. Subscribe to keep premium access.",
			RelatedEntityID: sub.ID,
		}); err != nil {
			s.Logger.Errorw("failed to publish trial-ending notification",
				"subscription_id", sub.ID,
				"user_id", sub.OwnerUserID,
				"error", err)
			continue
		}
		result.Succeeded++
	}

	s.Logger.Infow("trial-ending sweep completed",
		"window_start", from,
		"window_end", to,
		"candidates", result.Candidates,
		"succeeded", result.Succeeded)

	return result, nil
}

func (s *jobsService) PastDueSweep(ctx context.Context) (types.SweepResult, error) {
	return NewSubscriptionService(s.ServiceParams).ExpirePastDue(ctx)
}

func (s *jobsService) EnterpriseEndingSweep(ctx context.Context) (types.SweepResult, error) {
	from, to := types.CalendarDayWindow(time.Now().UTC(), 1)
	candidates, err := s.SubscriptionRepo.ListEnterpriseEndingBetween(ctx, from, to)
	if err != nil {
		return types.SweepResult{}, err
	}

	operators, err := s.listOperators(ctx)
	if err != nil {
		s.Logger.Errorw("failed to list operators for enterprise sweep", "error", err)
		operators = nil
	}

	result := types.SweepResult{Candidates: len(candidates)}
	for _, sub := range candidates {
		if err := s.notifyEnterpriseEnding(ctx, sub, operators); err != nil {
			s.Logger.Errorw("failed to notify enterprise ending",
				"subscription_id", sub.ID,
				"error", err)
			continue
		}
		result.Succeeded++
	}

	s.Logger.Infow("enterprise-ending sweep completed",
		"window_start", from,
		"window_end", to,
		"candidates", result.Candidates,
		"succeeded", result.Succeeded)

	return result, nil
}

func (s *jobsService) notifyEnterpriseEnding(ctx context.Context, sub *subscription.Subscription, operators []*user.User) error {
	end := sub.EffectivePeriodEnd()
	body := "An enterprise subscription ends tomorrow."
	if end != nil {
		body = fmt.Sprintf("Enterprise subscription access ends on %s.", end.Format("2006-01-02"))
	}

	if err := s.Notifier.Publish(ctx, &notification.Message{
		UserID:          sub.OwnerUserID,
		Type:            types.NotificationTypeEnterpriseEnding,
		Title:           "Your enterprise access ends tomorrow",
		Body:            body,
		RelatedEntityID: sub.ID,
	}); err != nil {
		return err
	}

	// Operators get a copy so a renewal invoice can be raised in time.
	for _, op := range operators {
		if err := s.Notifier.Publish(ctx, &notification.Message{
			UserID:          op.ID,
			Type:            types.NotificationTypeEnterpriseEnding,
			Title:           "Enterprise subscription ending",
			Body:            fmt.Sprintf("Enterprise subscription for user %s ends tomorrow.", sub.OwnerUserID),
			RelatedEntityID: sub.ID,
		}); err != nil {
			s.Logger.Errorw("failed to notify operator",
				"operator_id", op.ID,
				"subscription_id", sub.ID,
				"error", err)
		}
	}
	return nil
}

func (s *jobsService) listOperators(ctx context.Context) ([]*user.User, error) {
	admins, err := s.UserRepo.ListByRole(ctx, types.UserRoleAdmin)
	if err != nil {
		return nil, err
	}
	supers, err := s.UserRepo.ListByRole(ctx, types.UserRoleSuperAdmin)
	if err != nil {
		return nil, err
	}
	return append(admins, supers...), nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	pg "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type subscriptionRepository struct {
	client *pg.Client
	logger *logger.Logger
}

func NewSubscriptionRepository(client *pg.Client, log *logger.Logger) subscription.Repository {
	return &subscriptionRepository{client: client, logger: log}
}

const subscriptionColumns = `
	id, owner_user_id, plan_tier, subscription_status, started_at,
	trial_ends_at, current_period_start, current_period_end, expires_at,
	cancelled_at, auto_renew, custom_price, custom_currency,
	organization_label_id, status, created_at, updated_at, created_by, updated_by`

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	_, err := r.client.Pool.Exec(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		sub.ID, sub.OwnerUserID, sub.PlanTier, sub.SubscriptionStatus, sub.StartedAt,
		sub.TrialEndsAt, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.ExpiresAt,
		sub.CancelledAt, sub.AutoRenew, sub.CustomPrice, sub.CustomCurrency,
		sub.OrganizationLabelID, sub.Status, sub.CreatedAt, sub.UpdatedAt, sub.CreatedBy, sub.UpdatedBy)
	if err != nil {
		if isUniqueViolation(err) {
			return alreadyExists("Subscription", err)
		}
		return storeErr("create subscription", err)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	return r.scanOne(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
}

func (r *subscriptionRepository) GetByOwner(ctx context.Context, ownerUserID string) (*subscription.Subscription, error) {
	return r.scanOne(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE owner_user_id = $1`, ownerUserID)
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	tag, err := r.client.Pool.Exec(ctx, `
		UPDATE subscriptions SET
			plan_tier=$2, subscription_status=$3, started_at=$4, trial_ends_at=$5,
			current_period_start=$6, current_period_end=$7, expires_at=$8,
			cancelled_at=$9, auto_renew=$10, custom_price=$11, custom_currency=$12,
			organization_label_id=$13, status=$14, updated_at=$15, updated_by=$16
		WHERE id=$1`,
		sub.ID, sub.PlanTier, sub.SubscriptionStatus, sub.StartedAt, sub.TrialEndsAt,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.ExpiresAt,
		sub.CancelledAt, sub.AutoRenew, sub.CustomPrice, sub.CustomCurrency,
		sub.OrganizationLabelID, sub.Status, sub.UpdatedAt, sub.UpdatedBy)
	if err != nil {
		return storeErr("update subscription", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("Subscription", sub.ID, pgx.ErrNoRows)
	}
	return nil
}

// UpsertByOwner leans on the unique index on owner_user_id: a concurrent
// insert for the same owner resolves to one row, with the existing row's id
// preserved on conflict.
func (r *subscriptionRepository) UpsertByOwner(ctx context.Context, sub *subscription.Subscription) (*subscription.Subscription, error) {
	row := r.client.Pool.QueryRow(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (owner_user_id) DO UPDATE SET
			plan_tier=EXCLUDED.plan_tier,
			subscription_status=EXCLUDED.subscription_status,
			started_at=EXCLUDED.started_at,
			trial_ends_at=EXCLUDED.trial_ends_at,
			current_period_start=EXCLUDED.current_period_start,
			current_period_end=EXCLUDED.current_period_end,
			expires_at=EXCLUDED.expires_at,
			cancelled_at=EXCLUDED.cancelled_at,
			auto_renew=EXCLUDED.auto_renew,
			custom_price=EXCLUDED.custom_price,
			custom_currency=EXCLUDED.custom_currency,
			organization_label_id=EXCLUDED.organization_label_id,
			updated_at=EXCLUDED.updated_at,
			updated_by=EXCLUDED.updated_by
		RETURNING `+subscriptionColumns,
		sub.ID, sub.OwnerUserID, sub.PlanTier, sub.SubscriptionStatus, sub.StartedAt,
		sub.TrialEndsAt, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.ExpiresAt,
		sub.CancelledAt, sub.AutoRenew, sub.CustomPrice, sub.CustomCurrency,
		sub.OrganizationLabelID, sub.Status, sub.CreatedAt, sub.UpdatedAt, sub.CreatedBy, sub.UpdatedBy)

	out, err := scanSubscription(row)
	if err != nil {
		return nil, storeErr("upsert subscription", err)
	}
	return out, nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *subscription.Filter) ([]*subscription.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filter != nil {
		if len(filter.OwnerUserIDs) > 0 {
			query += fmt.Sprintf(` AND owner_user_id = ANY($%d)`, idx)
			args = append(args, filter.OwnerUserIDs)
			idx++
		}
		if filter.PlanTier != nil {
			query += fmt.Sprintf(` AND plan_tier = $%d`, idx)
			args = append(args, *filter.PlanTier)
			idx++
		}
		if filter.SubscriptionStatus != nil {
			query += fmt.Sprintf(` AND subscription_status = $%d`, idx)
			args = append(args, *filter.SubscriptionStatus)
			idx++
		}
		if filter.OrganizationLabelID != nil {
			query += fmt.Sprintf(` AND organization_label_id = $%d`, idx)
			args = append(args, *filter.OrganizationLabelID)
			idx++
		}
	}
	query += ` ORDER BY created_at DESC`

	return r.scanMany(ctx, query, args...)
}

func (r *subscriptionRepository) ListPastDue(ctx context.Context, asOf time.Time) ([]*subscription.Subscription, error) {
	return r.scanMany(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE subscription_status = 'ACTIVE'
		  AND COALESCE(current_period_end, expires_at) < $1`, asOf)
}

func (r *subscriptionRepository) ListTrialEndingBetween(ctx context.Context, from, to time.Time) ([]*subscription.Subscription, error) {
	return r.scanMany(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE subscription_status = 'TRIAL'
		  AND COALESCE(trial_ends_at, expires_at) >= $1
		  AND COALESCE(trial_ends_at, expires_at) < $2`, from, to)
}

func (r *subscriptionRepository) ListEnterpriseEndingBetween(ctx context.Context, from, to time.Time) ([]*subscription.Subscription, error) {
	return r.scanMany(ctx, `
		SELECT `+subscriptionColumns+` FROM subscriptions
		WHERE subscription_status = 'ACTIVE'
		  AND plan_tier = 'ENTERPRISE_CUSTOM'
		  AND COALESCE(current_period_end, expires_at) >= $1
		  AND COALESCE(current_period_end, expires_at) < $2`, from, to)
}

func (r *subscriptionRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*subscription.Subscription, error) {
	row := r.client.Pool.QueryRow(ctx, query, args...)
	sub, err := scanSubscription(row)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("Subscription", fmt.Sprint(args[0]), err)
		}
		return nil, storeErr("get subscription", err)
	}
	return sub, nil
}

func (r *subscriptionRepository) scanMany(ctx context.Context, query string, args ...interface{}) ([]*subscription.Subscription, error) {
	rows, err := r.client.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list subscriptions", err)
	}
	defer rows.Close()

	var out []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, storeErr("scan subscription", err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list subscriptions", err)
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := row.Scan(
		&sub.ID, &sub.OwnerUserID, &sub.PlanTier, &sub.SubscriptionStatus, &sub.StartedAt,
		&sub.TrialEndsAt, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.ExpiresAt,
		&sub.CancelledAt, &sub.AutoRenew, &sub.CustomPrice, &sub.CustomCurrency,
		&sub.OrganizationLabelID, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt, &sub.CreatedBy, &sub.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

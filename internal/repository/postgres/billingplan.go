package postgres

import (
	"context"
	"fmt"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/billingplan"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	pg "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/postgres"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/jackc/pgx/v5"
)

type billingPlanRepository struct {
	client *pg.Client
	logger *logger.Logger
}

func NewBillingPlanRepository(client *pg.Client, log *logger.Logger) billingplan.Repository {
	return &billingPlanRepository{client: client, logger: log}
}

const billingPlanColumns = `
	id, provider, plan_tier, period, currency, price, provider_plan_id,
	status, created_at, updated_at, created_by, updated_by`

func (r *billingPlanRepository) Get(ctx context.Context, id string) (*billingplan.BillingPlan, error) {
	return r.scanOne(ctx,
		`SELECT `+billingPlanColumns+` FROM billing_plans WHERE id = $1`, id)
}

func (r *billingPlanRepository) GetByTier(ctx context.Context, provider types.PaymentProvider, tier types.PlanTier, currency string) (*billingplan.BillingPlan, error) {
	row := r.client.Pool.QueryRow(ctx, `
		SELECT `+billingPlanColumns+` FROM billing_plans
		WHERE provider = $1 AND plan_tier = $2 AND currency = $3 AND status = $4`,
		provider, tier, currency, types.StatusPublished)
	plan, err := scanBillingPlan(row)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("Billing plan",
				fmt.Sprintf("%s/%s/%s", provider, tier, currency), err)
		}
		return nil, storeErr("get billing plan", err)
	}
	return plan, nil
}

func (r *billingPlanRepository) List(ctx context.Context) ([]*billingplan.BillingPlan, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT `+billingPlanColumns+` FROM billing_plans ORDER BY plan_tier, currency`)
	if err != nil {
		return nil, storeErr("list billing plans", err)
	}
	defer rows.Close()

	var out []*billingplan.BillingPlan
	for rows.Next() {
		plan, err := scanBillingPlan(rows)
		if err != nil {
			return nil, storeErr("scan billing plan", err)
		}
		out = append(out, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list billing plans", err)
	}
	return out, nil
}

func (r *billingPlanRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*billingplan.BillingPlan, error) {
	row := r.client.Pool.QueryRow(ctx, query, args...)
	plan, err := scanBillingPlan(row)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("Billing plan", fmt.Sprint(args[0]), err)
		}
		return nil, storeErr("get billing plan", err)
	}
	return plan, nil
}

func scanBillingPlan(row pgx.Row) (*billingplan.BillingPlan, error) {
	var plan billingplan.BillingPlan
	err := row.Scan(
		&plan.ID, &plan.Provider, &plan.PlanTier, &plan.Period, &plan.Currency,
		&plan.Price, &plan.ProviderPlanID,
		&plan.Status, &plan.CreatedAt, &plan.UpdatedAt, &plan.CreatedBy, &plan.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

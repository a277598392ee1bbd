package postgres

import (
	"context"
	"fmt"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/payment"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	pg "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/postgres"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/jackc/pgx/v5"
)

type paymentRepository struct {
	client *pg.Client
	logger *logger.Logger
}

func NewPaymentRepository(client *pg.Client, log *logger.Logger) payment.Repository {
	return &paymentRepository{client: client, logger: log}
}

const paymentColumns = `
	id, idempotency_key, payer_user_id, kind, amount, currency, provider,
	payment_status, external_id, agreement_id, token, billing_token,
	subscription_id, organization_label_id, redirect_url, metadata,
	gateway_metadata, paid_at, failed_at, error_message,
	status, created_at, updated_at, created_by, updated_by`

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.client.Pool.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
		p.ID, p.IdempotencyKey, p.PayerUserID, p.Kind, p.Amount, p.Currency, p.Provider,
		p.PaymentStatus, p.ExternalID, p.AgreementID, p.Token, p.BillingToken,
		p.SubscriptionID, p.OrganizationLabelID, p.RedirectURL, p.Metadata,
		p.GatewayMetadata, p.PaidAt, p.FailedAt, p.ErrorMessage,
		p.Status, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy)
	if err != nil {
		if isUniqueViolation(err) {
			return alreadyExists("Payment", err)
		}
		return storeErr("create payment", err)
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*payment.Payment, error) {
	return r.scanOne(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	tag, err := r.client.Pool.Exec(ctx, `
		UPDATE payments SET
			payment_status=$2, external_id=$3, agreement_id=$4, token=$5,
			billing_token=$6, subscription_id=$7, redirect_url=$8, metadata=$9,
			gateway_metadata=$10, paid_at=$11, failed_at=$12, error_message=$13,
			amount=$14, currency=$15, status=$16, updated_at=$17, updated_by=$18
		WHERE id=$1`,
		p.ID, p.PaymentStatus, p.ExternalID, p.AgreementID, p.Token,
		p.BillingToken, p.SubscriptionID, p.RedirectURL, p.Metadata,
		p.GatewayMetadata, p.PaidAt, p.FailedAt, p.ErrorMessage,
		p.Amount, p.Currency, p.Status, p.UpdatedAt, p.UpdatedBy)
	if err != nil {
		return storeErr("update payment", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("Payment", p.ID, pgx.ErrNoRows)
	}
	return nil
}

func (r *paymentRepository) List(ctx context.Context, filter *types.PaymentFilter) ([]*payment.Payment, error) {
	query, args := buildPaymentFilter(`SELECT `+paymentColumns+` FROM payments`, filter)
	query += ` ORDER BY created_at DESC`

	rows, err := r.client.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	defer rows.Close()

	var out []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, storeErr("scan payment", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list payments", err)
	}
	return out, nil
}

func (r *paymentRepository) Count(ctx context.Context, filter *types.PaymentFilter) (int, error) {
	query, args := buildPaymentFilter(`SELECT COUNT(*) FROM payments`, filter)

	var count int
	if err := r.client.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, storeErr("count payments", err)
	}
	return count, nil
}

func (r *paymentRepository) GetByExternalID(ctx context.Context, externalID string) (*payment.Payment, error) {
	return r.scanOne(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE external_id = $1`, externalID)
}

// GetByCorrelationKey resolves whichever identifier the agreement provider
// happened to return: agreement id, approval token or billing token.
func (r *paymentRepository) GetByCorrelationKey(ctx context.Context, key string) (*payment.Payment, error) {
	return r.scanOne(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE agreement_id = $1 OR token = $1 OR billing_token = $1
		ORDER BY created_at DESC
		LIMIT 1`, key)
}

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*payment.Payment, error) {
	return r.scanOne(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE idempotency_key = $1`, key)
}

func (r *paymentRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*payment.Payment, error) {
	row := r.client.Pool.QueryRow(ctx, query, args...)
	p, err := scanPayment(row)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("Payment", fmt.Sprint(args[0]), err)
		}
		return nil, storeErr("get payment", err)
	}
	return p, nil
}

func buildPaymentFilter(base string, filter *types.PaymentFilter) (string, []interface{}) {
	query := base + ` WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filter == nil {
		return query, args
	}
	if len(filter.PaymentIDs) > 0 {
		query += fmt.Sprintf(` AND id = ANY($%d)`, idx)
		args = append(args, filter.PaymentIDs)
		idx++
	}
	if filter.PayerUserID != nil {
		query += fmt.Sprintf(` AND payer_user_id = $%d`, idx)
		args = append(args, *filter.PayerUserID)
		idx++
	}
	if filter.Provider != nil {
		query += fmt.Sprintf(` AND provider = $%d`, idx)
		args = append(args, *filter.Provider)
		idx++
	}
	if filter.PaymentStatus != nil {
		query += fmt.Sprintf(` AND payment_status = $%d`, idx)
		args = append(args, *filter.PaymentStatus)
		idx++
	}
	if filter.Kind != nil {
		query += fmt.Sprintf(` AND kind = $%d`, idx)
		args = append(args, *filter.Kind)
		idx++
	}
	if filter.OrganizationLabelID != nil {
		query += fmt.Sprintf(` AND organization_label_id = $%d`, idx)
		args = append(args, *filter.OrganizationLabelID)
		idx++
	}
	if filter.Currency != nil {
		query += fmt.Sprintf(` AND currency = $%d`, idx)
		args = append(args, *filter.Currency)
		idx++
	}
	return query, args
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(
		&p.ID, &p.IdempotencyKey, &p.PayerUserID, &p.Kind, &p.Amount, &p.Currency, &p.Provider,
		&p.PaymentStatus, &p.ExternalID, &p.AgreementID, &p.Token, &p.BillingToken,
		&p.SubscriptionID, &p.OrganizationLabelID, &p.RedirectURL, &p.Metadata,
		&p.GatewayMetadata, &p.PaidAt, &p.FailedAt, &p.ErrorMessage,
		&p.Status, &p.CreatedAt, &p.UpdatedAt, &p.CreatedBy, &p.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

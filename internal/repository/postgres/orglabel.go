package postgres

import (
	"context"
	"fmt"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/orglabel"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	pg "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type orgLabelRepository struct {
	client *pg.Client
	logger *logger.Logger
}

func NewOrgLabelRepository(client *pg.Client, log *logger.Logger) orglabel.Repository {
	return &orgLabelRepository{client: client, logger: log}
}

const orgLabelColumns = `
	id, name, code, status, created_at, updated_at, created_by, updated_by`

func (r *orgLabelRepository) Create(ctx context.Context, label *orglabel.OrganizationLabel) error {
	_, err := r.client.Pool.Exec(ctx, `
		INSERT INTO organization_labels (`+orgLabelColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		label.ID, label.Name, label.Code,
		label.Status, label.CreatedAt, label.UpdatedAt, label.CreatedBy, label.UpdatedBy)
	if err != nil {
		if isUniqueViolation(err) {
			return alreadyExists("Organization label", err)
		}
		return storeErr("create organization label", err)
	}
	return nil
}

func (r *orgLabelRepository) Get(ctx context.Context, id string) (*orglabel.OrganizationLabel, error) {
	return r.scanOne(ctx,
		`SELECT `+orgLabelColumns+` FROM organization_labels WHERE id = $1`, id)
}

func (r *orgLabelRepository) GetByCode(ctx context.Context, code string) (*orglabel.OrganizationLabel, error) {
	return r.scanOne(ctx,
		`SELECT `+orgLabelColumns+` FROM organization_labels WHERE code = $1`, code)
}

func (r *orgLabelRepository) List(ctx context.Context) ([]*orglabel.OrganizationLabel, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT `+orgLabelColumns+` FROM organization_labels ORDER BY name`)
	if err != nil {
		return nil, storeErr("list organization labels", err)
	}
	defer rows.Close()

	var out []*orglabel.OrganizationLabel
	for rows.Next() {
		label, err := scanOrgLabel(rows)
		if err != nil {
			return nil, storeErr("scan organization label", err)
		}
		out = append(out, label)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list organization labels", err)
	}
	return out, nil
}

func (r *orgLabelRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*orglabel.OrganizationLabel, error) {
	row := r.client.Pool.QueryRow(ctx, query, args...)
	label, err := scanOrgLabel(row)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("Organization label", fmt.Sprint(args[0]), err)
		}
		return nil, storeErr("get organization label", err)
	}
	return label, nil
}

func scanOrgLabel(row pgx.Row) (*orglabel.OrganizationLabel, error) {
	var label orglabel.OrganizationLabel
	err := row.Scan(
		&label.ID, &label.Name, &label.Code,
		&label.Status, &label.CreatedAt, &label.UpdatedAt, &label.CreatedBy, &label.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &label, nil
}

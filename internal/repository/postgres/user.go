package postgres

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/user"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	pg "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/postgres"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/jackc/pgx/v5"
)

type userRepository struct {
	client *pg.Client
	logger *logger.Logger
}

func NewUserRepository(client *pg.Client, log *logger.Logger) user.Repository {
	return &userRepository{client: client, logger: log}
}

const userColumns = `
	id, email, role, status, created_at, updated_at, created_by, updated_by`

func (r *userRepository) Get(ctx context.Context, id string) (*user.User, error) {
	row := r.client.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, notFound("User", id, err)
		}
		return nil, storeErr("get user", err)
	}
	return u, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role types.UserRole) ([]*user.User, error) {
	rows, err := r.client.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = $1`, role)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer rows.Close()

	var out []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeErr("scan user", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list users", err)
	}
	return out, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Role,
		&u.Status, &u.CreatedAt, &u.UpdatedAt, &u.CreatedBy, &u.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

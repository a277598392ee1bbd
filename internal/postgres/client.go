package postgres

import (
	"context"
	"fmt"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/config"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Client wraps the pgx connection pool shared by all repositories.
type Client struct {
	Pool   *pgxpool.Pool
	logger *logger.Logger
}

func NewClient(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Infow("connected to postgres",
		"host", cfg.Postgres.Host,
		"database", cfg.Postgres.DBName)

	return &Client{Pool: pool, logger: log}, nil
}

func (c *Client) Close() {
	c.Pool.Close()
}

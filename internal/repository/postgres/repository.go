package postgres

import (
	"errors"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/billingplan"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/orglabel"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/payment"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/user"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	pg "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repositories bundles every postgres-backed repository behind the domain
// interfaces so wiring stays a single constructor call.
type Repositories struct {
	Subscription subscription.Repository
	Payment      payment.Repository
	BillingPlan  billingplan.Repository
	OrgLabel     orglabel.Repository
	User         user.Repository
}

func NewRepositories(client *pg.Client, log *logger.Logger) *Repositories {
	return &Repositories{
		Subscription: NewSubscriptionRepository(client, log),
		Payment:      NewPaymentRepository(client, log),
		BillingPlan:  NewBillingPlanRepository(client, log),
		OrgLabel:     NewOrgLabelRepository(client, log),
		User:         NewUserRepository(client, log),
	}
}

const uniqueViolation = "23505"

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(entity, key string, err error) error {
	return ierr.WithError(err).
		WithHintf("%s not found", entity).
		WithReportableDetails(map[string]any{"key": key}).
		Mark(ierr.ErrNotFound)
}

func alreadyExists(entity string, err error) error {
	return ierr.WithError(err).
		WithHintf("%s already exists", entity).
		Mark(ierr.ErrAlreadyExists)
}

func storeErr(op string, err error) error {
	return ierr.WithError(err).
		WithHintf("Failed to %s", op).
		Mark(ierr.ErrDatabase)
}

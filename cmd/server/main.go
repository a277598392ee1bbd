package main

import (
	"context"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/config"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/notification"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/postgres"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider/agreement"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider/invoice"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/pubsub"
	pubsubmemory "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/pubsub/memory"
	repo "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/repository/postgres"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/scheduler"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/service"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	_ = godotenv.Load()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,

			providePostgresClient,
			repo.NewRepositories,

			pubsubmemory.NewPubSub,
			provideNotifier,

			invoice.NewAdapter,
			agreement.NewAdapter,
			provideInvoiceConfig,
			provideAgreementConfig,

			provideServiceParams,
			service.NewSubscriptionService,
			service.NewPaymentService,
			service.NewOrgInvoiceService,
			service.NewEntitlementService,
			service.NewJobsService,

			provideScheduler,
		),
		fx.Invoke(runMigrations),
		fx.Invoke(registerScheduler),
	)

	app.Run()
}

func providePostgresClient(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) (*postgres.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := postgres.NewClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			client.Close()
			return nil
		},
	})
	return client, nil
}

func runMigrations(client *postgres.Client, log *logger.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	return repo.NewMigrator(client, log).Migrate(ctx)
}

func provideNotifier(bus pubsub.PubSub, log *logger.Logger) notification.Publisher {
	return notification.NewPublisher(bus, log)
}

func provideInvoiceConfig(cfg *config.Configuration) config.InvoiceConfig {
	return cfg.Invoice
}

func provideAgreementConfig(cfg *config.Configuration) config.AgreementConfig {
	return cfg.Agreement
}

func provideServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	repos *repo.Repositories,
	invoiceAdapter *invoice.Adapter,
	agreementAdapter *agreement.Adapter,
	notifier notification.Publisher,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:            log,
		Config:            cfg,
		SubscriptionRepo:  repos.Subscription,
		PaymentRepo:       repos.Payment,
		BillingPlanRepo:   repos.BillingPlan,
		OrgLabelRepo:      repos.OrgLabel,
		UserRepo:          repos.User,
		InvoiceProvider:   invoiceAdapter,
		AgreementProvider: agreementAdapter,
		Notifier:          notifier,
	}
}

func provideScheduler(cfg *config.Configuration, jobs service.JobsService, log *logger.Logger) *scheduler.Scheduler {
	return scheduler.New(cfg.Scheduler, jobs, log)
}

func registerScheduler(lc fx.Lifecycle, sched *scheduler.Scheduler, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sched.Start()
		},
		OnStop: func(ctx context.Context) error {
			sched.Stop()
			return nil
		},
	})
}

package service

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/config"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/billingplan"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/orglabel"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/payment"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/user"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/notification"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider"
	agreementprovider "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider/agreement"
	invoiceprovider "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider/invoice"
)

// InvoiceProvider is the capability surface the orchestrator needs from the
// hosted-invoice adapter.
type InvoiceProvider interface {
	provider.Adapter
	ParseCallback(eventType string, payload []byte) (*invoiceprovider.CallbackEvent, error)
	VerifyCallbackToken(token string) bool
}

// AgreementProvider is the capability surface the orchestrator needs from
// the billing-agreement adapter.
type AgreementProvider interface {
	provider.Adapter
	ExecuteAgreement(ctx context.Context, token string) (*agreementprovider.ExecutionResult, error)
}

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration

	// Repositories
	SubscriptionRepo subscription.Repository
	PaymentRepo      payment.Repository
	BillingPlanRepo  billingplan.Repository
	OrgLabelRepo     orglabel.Repository
	UserRepo         user.Repository

	// Provider adapters
	InvoiceProvider   InvoiceProvider
	AgreementProvider AgreementProvider

	// Notifier dispatches user notifications; failures are swallowed
	Notifier notification.Publisher
}

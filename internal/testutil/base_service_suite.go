package testutil

import (
	"context"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/config"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/billingplan"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/orglabel"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/payment"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/subscription"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/domain/user"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	SubscriptionRepo subscription.Repository
	PaymentRepo      payment.Repository
	BillingPlanRepo  billingplan.Repository
	OrgLabelRepo     orglabel.Repository
	UserRepo         user.Repository
}

// BaseServiceTestSuite provides common functionality for all service test
// suites: fresh in-memory stores, fake provider adapters and a capturing
// notifier per test.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx               context.Context
	stores            Stores
	invoiceProvider   *FakeInvoiceProvider
	agreementProvider *FakeAgreementProvider
	notifier          *CaptureNotifier
	logger            *logger.Logger
	config            *config.Configuration
	now               time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()
	s.config = cfg

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.invoiceProvider = NewFakeInvoiceProvider()
	s.agreementProvider = NewFakeAgreementProvider()
	s.notifier = NewCaptureNotifier()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
	s.notifier.Clear()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		SubscriptionRepo: NewInMemorySubscriptionStore(),
		PaymentRepo:      NewInMemoryPaymentStore(),
		BillingPlanRepo:  NewInMemoryBillingPlanStore(),
		OrgLabelRepo:     NewInMemoryOrgLabelStore(),
		UserRepo:         NewInMemoryUserStore(),
	}
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.PaymentRepo.(*InMemoryPaymentStore).Clear()
	s.stores.BillingPlanRepo.(*InMemoryBillingPlanStore).Clear()
	s.stores.OrgLabelRepo.(*InMemoryOrgLabelStore).Clear()
	s.stores.UserRepo.(*InMemoryUserStore).Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// SetContext replaces the test context, used to act as different users.
func (s *BaseServiceTestSuite) SetContext(ctx context.Context) {
	s.ctx = ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test config
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetInvoiceProvider returns the fake invoice adapter
func (s *BaseServiceTestSuite) GetInvoiceProvider() *FakeInvoiceProvider {
	return s.invoiceProvider
}

// GetAgreementProvider returns the fake agreement adapter
func (s *BaseServiceTestSuite) GetAgreementProvider() *FakeAgreementProvider {
	return s.agreementProvider
}

// GetNotifier returns the capturing notifier
func (s *BaseServiceTestSuite) GetNotifier() *CaptureNotifier {
	return s.notifier
}

// GetNow returns the current test time in UTC
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

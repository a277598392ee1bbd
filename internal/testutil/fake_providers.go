package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider"
	agreementprovider "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider/agreement"
	invoiceprovider "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider/invoice"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/samber/lo"
)

const FakeCallbackToken = "test-callback-token"

// FakeInvoiceProvider stands in for the hosted-invoice adapter. Checkouts
// are recorded and assigned deterministic external ids.
type FakeInvoiceProvider struct {
	mu sync.Mutex

	// CheckoutErr, when set, makes every CreateCheckout fail.
	CheckoutErr error
	Intents     []*provider.CheckoutIntent
}

func NewFakeInvoiceProvider() *FakeInvoiceProvider {
	return &FakeInvoiceProvider{}
}

func (f *FakeInvoiceProvider) Provider() types.PaymentProvider {
	return types.PaymentProviderInvoice
}

func (f *FakeInvoiceProvider) CreateCheckout(ctx context.Context, intent *provider.CheckoutIntent) (*provider.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CheckoutErr != nil {
		return nil, f.CheckoutErr
	}
	f.Intents = append(f.Intents, intent)

	externalID := "ext_" + intent.PaymentID
	return &provider.CheckoutSession{
		Provider:    types.PaymentProviderInvoice,
		ExternalID:  lo.ToPtr(externalID),
		RedirectURL: fmt.Sprintf("https://invoices.test/pay/%s", externalID),
		Raw:         types.Metadata{"raw_response": "{}"},
	}, nil
}

func (f *FakeInvoiceProvider) ParseCallback(eventType string, payload []byte) (*invoiceprovider.CallbackEvent, error) {
	var kind invoiceprovider.EventKind
	switch eventType {
	case "invoice.paid":
		kind = invoiceprovider.EventPaid
	case "invoice.expired":
		kind = invoiceprovider.EventExpired
	case "invoice.failed":
		kind = invoiceprovider.EventFailed
	default:
		return nil, ierr.NewError("unknown callback event type").
			WithHintf("Unsupported event type: %s", eventType).
			Mark(ierr.ErrIntegration)
	}
	return &invoiceprovider.CallbackEvent{
		ExternalID: string(payload),
		Kind:       kind,
		Raw:        types.Metadata{"raw_callback": string(payload)},
	}, nil
}

func (f *FakeInvoiceProvider) VerifyCallbackToken(token string) bool {
	return token == FakeCallbackToken
}

// LastIntent returns the most recent checkout intent, or nil.
func (f *FakeInvoiceProvider) LastIntent() *provider.CheckoutIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Intents) == 0 {
		return nil
	}
	return f.Intents[len(f.Intents)-1]
}

// FakeAgreementProvider stands in for the billing-agreement adapter.
type FakeAgreementProvider struct {
	mu sync.Mutex

	CheckoutErr error
	ExecuteErr  error
	Intents     []*provider.CheckoutIntent
	// ExecutedAgreementID overrides the agreement id returned from
	// ExecuteAgreement; empty derives it from the token.
	ExecutedAgreementID string
}

func NewFakeAgreementProvider() *FakeAgreementProvider {
	return &FakeAgreementProvider{}
}

func (f *FakeAgreementProvider) Provider() types.PaymentProvider {
	return types.PaymentProviderBillingAgreement
}

func (f *FakeAgreementProvider) CreateCheckout(ctx context.Context, intent *provider.CheckoutIntent) (*provider.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CheckoutErr != nil {
		return nil, f.CheckoutErr
	}
	f.Intents = append(f.Intents, intent)

	token := "tok_" + intent.PaymentID
	return &provider.CheckoutSession{
		Provider:     types.PaymentProviderBillingAgreement,
		Token:        lo.ToPtr(token),
		BillingToken: lo.ToPtr(token),
		RedirectURL:  fmt.Sprintf("https://agreements.test/approve/%s", token),
		Raw:          types.Metadata{"raw_response": "{}"},
	}, nil
}

func (f *FakeAgreementProvider) ExecuteAgreement(ctx context.Context, token string) (*agreementprovider.ExecutionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ExecuteErr != nil {
		return nil, f.ExecuteErr
	}

	agreementID := f.ExecutedAgreementID
	if agreementID == "" {
		agreementID = "agr_" + token
	}
	return &agreementprovider.ExecutionResult{
		AgreementID: agreementID,
		PayerID:     "payer_test",
		Raw:         types.Metadata{"raw_response": "{}"},
	}, nil
}

func (f *FakeAgreementProvider) LastIntent() *provider.CheckoutIntent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Intents) == 0 {
		return nil
	}
	return f.Intents[len(f.Intents)-1]
}

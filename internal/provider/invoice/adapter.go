package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/config"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/httpclient"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
)

// EventKind is the normalized callback event type
type EventKind string

const (
	EventPaid    EventKind = "paid"
	EventExpired EventKind = "expired"
	EventFailed  EventKind = "failed"
)

// CallbackEvent is the canonical form of an invoice provider webhook
type CallbackEvent struct {
	ExternalID string
	Kind       EventKind
	Raw        types.Metadata
}

// Adapter integrates the hosted-invoice provider: fire-and-forget invoice
// creation, asynchronous webhook callbacks.
type Adapter struct {
	cfg    config.InvoiceConfig
	client httpclient.Client
	logger *logger.Logger
}

// NewAdapter creates an invoice provider adapter with its own bounded
// call timeout.
func NewAdapter(cfg config.InvoiceConfig, logger *logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: httpclient.NewClientWithTimeout(cfg.Timeout),
		logger: logger,
	}
}

func (a *Adapter) Provider() types.PaymentProvider {
	return types.PaymentProviderInvoice
}

type createInvoiceRequest struct {
	ExternalID  string `json:"external_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	PayerEmail  string `json:"payer_email,omitempty"`
}

type createInvoiceResponse struct {
	ID         string `json:"id"`
	InvoiceURL string `json:"invoice_url"`
	Status     string `json:"status"`
}

// CreateCheckout creates a hosted invoice and returns its redirect URL.
// Transient provider failures are retried with exponential backoff inside
// the adapter's timeout budget; whatever still fails surfaces as an
// integration error.
func (a *Adapter) CreateCheckout(ctx context.Context, intent *provider.CheckoutIntent) (*provider.CheckoutSession, error) {
	body, err := json.Marshal(createInvoiceRequest{
		ExternalID:  intent.PaymentID,
		Amount:      intent.Amount.String(),
		Currency:    intent.Currency,
		Description: intent.Description,
		PayerEmail:  intent.PayerEmail,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode invoice request").
			Mark(ierr.ErrIntegration)
	}

	req := &httpclient.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v2/invoices", a.cfg.BaseURL),
		Headers: map[string]string{
			"Authorization": "Basic " + a.cfg.APIKey,
		},
		Body: body,
	}

	var resp *httpclient.Response
	operation := func() error {
		var sendErr error
		resp, sendErr = a.client.Send(ctx, req)
		if sendErr != nil {
			if httpErr, ok := httpclient.IsHTTPError(sendErr); ok && httpErr.StatusCode < 500 {
				// 4xx responses are not transient
				return backoff.Permanent(sendErr)
			}
			return sendErr
		}
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		a.logger.Errorw("invoice provider create call failed",
			"payment_id", intent.PaymentID,
			"error", err)
		return nil, ierr.WithError(err).
			WithHint("Payment provider is unavailable").
			Mark(ierr.ErrIntegration)
	}

	var parsed createInvoiceResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment provider returned an unparseable response").
			Mark(ierr.ErrIntegration)
	}
	if parsed.ID == "" || parsed.InvoiceURL == "" {
		return nil, ierr.NewError("invoice provider response missing id or url").
			WithHint("Payment provider returned an incomplete response").
			Mark(ierr.ErrIntegration)
	}

	return &provider.CheckoutSession{
		Provider:    types.PaymentProviderInvoice,
		ExternalID:  lo.ToPtr(parsed.ID),
		RedirectURL: parsed.InvoiceURL,
		Raw:         types.Metadata{"raw_response": string(resp.Body)},
	}, nil
}

type callbackPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ParseCallback normalizes a raw webhook into a canonical event. Unknown
// event types and unparseable bodies are integration errors; matching the
// event to a local payment is the orchestrator's job.
func (a *Adapter) ParseCallback(eventType string, payload []byte) (*CallbackEvent, error) {
	var parsed callbackPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Callback payload is not valid JSON").
			Mark(ierr.ErrIntegration)
	}
	if parsed.ID == "" {
		return nil, ierr.NewError("callback payload missing invoice id").
			WithHint("Callback payload is incomplete").
			Mark(ierr.ErrIntegration)
	}

	var kind EventKind
	switch eventType {
	case "invoice.paid":
		kind = EventPaid
	case "invoice.expired":
		kind = EventExpired
	case "invoice.failed":
		kind = EventFailed
	default:
		return nil, ierr.NewError("unknown callback event type").
			WithHintf("Unsupported event type: %s", eventType).
			Mark(ierr.ErrIntegration)
	}

	return &CallbackEvent{
		ExternalID: parsed.ID,
		Kind:       kind,
		Raw:        types.Metadata{"raw_callback": string(payload)},
	}, nil
}

// VerifyCallbackToken checks the shared callback token the provider sends
// with every webhook.
func (a *Adapter) VerifyCallbackToken(token string) bool {
	return a.cfg.CallbackToken != "" && token == a.cfg.CallbackToken
}

package agreement

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

// ExecutionResult is the outcome of executing an approved agreement
type ExecutionResult struct {
	AgreementID string
	PayerID     string
	Raw         types.Metadata
}

// Adapter integrates the recurring billing-agreement provider. The flow is
// two-phase: create an agreement and redirect the payer for approval, then
// execute the agreement when they return.
type Adapter struct {
	cfg    config.AgreementConfig
	client httpclient.Client
	logger *logger.Logger
}

// NewAdapter creates a billing-agreement adapter with its own bounded
// call timeout.
func NewAdapter(cfg config.AgreementConfig, logger *logger.Logger) *Adapter {
	return &Adapter{
		cfg:    cfg,
		client: httpclient.NewClientWithTimeout(cfg.Timeout),
		logger: logger,
	}
}

func (a *Adapter) Provider() types.PaymentProvider {
	return types.PaymentProviderBillingAgreement
}

type createAgreementRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PlanID      string `json:"plan_id"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
}

type agreementLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type createAgreementResponse struct {
	ID    string          `json:"id"`
	Token string          `json:"token"`
	Links []agreementLink `json:"links"`
}

// CreateCheckout creates a pending billing agreement and returns the
// approval URL the payer must visit. A provider-side plan id from the
// catalog is mandatory for this path; the orchestrator validates that
// before calling in.
func (a *Adapter) CreateCheckout(ctx context.Context, intent *provider.CheckoutIntent) (*provider.CheckoutSession, error) {
	body, err := json.Marshal(createAgreementRequest{
		Name:        fmt.Sprintf("%s subscription", intent.Tier),
		Description: intent.Description,
		PlanID:      intent.ProviderPlanID,
		ReturnURL:   a.cfg.ReturnURL,
		CancelURL:   a.cfg.CancelURL,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode agreement request").
			Mark(ierr.ErrIntegration)
	}

	resp, err := a.send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v1/payments/billing-agreements", a.cfg.BaseURL),
		Headers: map[string]string{
			"Authorization": "Bearer " + a.cfg.ClientSecret,
		},
		Body: body,
	})
	if err != nil {
		a.logger.Errorw("agreement provider create call failed",
			"payment_id", intent.PaymentID,
			"error", err)
		return nil, err
	}

	var parsed createAgreementResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment provider returned an unparseable response").
			Mark(ierr.ErrIntegration)
	}

	approvalURL := ""
	for _, link := range parsed.Links {
		if link.Rel == "approval_url" {
			approvalURL = link.Href
		}
	}
	if parsed.ID == "" || approvalURL == "" {
		return nil, ierr.NewError("agreement provider response missing id or approval url").
			WithHint("Payment provider returned an incomplete response").
			Mark(ierr.ErrIntegration)
	}

	session := &provider.CheckoutSession{
		Provider:    types.PaymentProviderBillingAgreement,
		AgreementID: lo.ToPtr(parsed.ID),
		RedirectURL: approvalURL,
		Raw:         types.Metadata{"raw_response": string(resp.Body)},
	}
	if parsed.Token != "" {
		session.Token = lo.ToPtr(parsed.Token)
		// Some provider API versions return the long-lived token under the
		// same field; keep both correlation keys populated.
		session.BillingToken = lo.ToPtr(parsed.Token)
	}
	return session, nil
}

type executeAgreementResponse struct {
	ID    string `json:"id"`
	Payer struct {
		PayerInfo struct {
			PayerID string `json:"payer_id"`
		} `json:"payer_info"`
	} `json:"payer"`
}

// ExecuteAgreement finalizes an approved agreement when the payer returns
// from the provider's approval page.
func (a *Adapter) ExecuteAgreement(ctx context.Context, token string) (*ExecutionResult, error) {
	if token == "" {
		return nil, ierr.NewError("missing agreement token").
			WithHint("Approval token is required").
			Mark(ierr.ErrValidation)
	}

	resp, err := a.send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v1/payments/billing-agreements/%s/agreement-execute", a.cfg.BaseURL, token),
		Headers: map[string]string{
			"Authorization": "Bearer " + a.cfg.ClientSecret,
		},
	})
	if err != nil {
		a.logger.Errorw("agreement provider execute call failed",
			"token", token,
			"error", err)
		return nil, err
	}

	var parsed executeAgreementResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment provider returned an unparseable response").
			Mark(ierr.ErrIntegration)
	}
	if parsed.ID == "" {
		return nil, ierr.NewError("agreement execute response missing id").
			WithHint("Payment provider returned an incomplete response").
			Mark(ierr.ErrIntegration)
	}

	return &ExecutionResult{
		AgreementID: parsed.ID,
		PayerID:     parsed.Payer.PayerInfo.PayerID,
		Raw:         types.Metadata{"raw_response": string(resp.Body)},
	}, nil
}

func (a *Adapter) send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	var resp *httpclient.Response
	operation := func() error {
		var sendErr error
		resp, sendErr = a.client.Send(ctx, req)
		if sendErr != nil {
			if httpErr, ok := httpclient.IsHTTPError(sendErr); ok && httpErr.StatusCode < 500 {
				return backoff.Permanent(sendErr)
			}
			return sendErr
		}
		return nil
	}
	if err := backoff.Retry(operation, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Payment provider is unavailable").
			Mark(ierr.ErrIntegration)
	}
	return resp, nil
}

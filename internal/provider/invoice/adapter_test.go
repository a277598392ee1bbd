package invoice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/config"
	ierr "github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/errors"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/logger"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/provider"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	log, err := logger.NewLogger(config.GetDefaultConfig())
	require.NoError(t, err)
	return NewAdapter(config.InvoiceConfig{
		BaseURL:       baseURL,
		APIKey:        "test-key",
		CallbackToken: "cb-secret",
		Timeout:       5 * time.Second,
	}, log)
}

func testIntent() *provider.CheckoutIntent {
	return &provider.CheckoutIntent{
		PaymentID:   "pay_123",
		Amount:      decimal.NewFromInt(150000),
		Currency:    "IDR",
		Description: "PAID_MONTHLY subscription",
		PayerEmail:  "payer@example.com",
		Tier:        types.PlanTierPaidMonthly,
	}
}

func TestCreateCheckout(t *testing.T) {
	var got createInvoiceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/invoices", r.URL.Path)
		assert.Equal(t, "Basic test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(createInvoiceResponse{
			ID:         "inv_abc",
			InvoiceURL: "https://invoices.example.com/inv_abc",
			Status:     "PENDING",
		})
	}))
	defer srv.Close()

	session, err := newTestAdapter(t, srv.URL).CreateCheckout(context.Background(), testIntent())
	require.NoError(t, err)
	require.NotNil(t, session.ExternalID)
	assert.Equal(t, "inv_abc", *session.ExternalID)
	assert.Equal(t, "https://invoices.example.com/inv_abc", session.RedirectURL)
	assert.Equal(t, types.PaymentProviderInvoice, session.Provider)

	assert.Equal(t, "pay_123", got.ExternalID)
	assert.Equal(t, "150000", got.Amount)
	assert.Equal(t, "IDR", got.Currency)
	assert.Equal(t, "payer@example.com", got.PayerEmail)
}

func TestCreateCheckoutRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(createInvoiceResponse{
			ID:         "inv_retry",
			InvoiceURL: "https://invoices.example.com/inv_retry",
		})
	}))
	defer srv.Close()

	session, err := newTestAdapter(t, srv.URL).CreateCheckout(context.Background(), testIntent())
	require.NoError(t, err)
	assert.Equal(t, "inv_retry", *session.ExternalID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateCheckoutClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"DUPLICATE_EXTERNAL_ID"}`))
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).CreateCheckout(context.Background(), testIntent())
	require.Error(t, err)
	assert.True(t, ierr.IsIntegration(err))
	assert.Equal(t, int32(1), calls.Load(), "4xx is not retried")
}

func TestCreateCheckoutIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(createInvoiceResponse{Status: "PENDING"})
	}))
	defer srv.Close()

	_, err := newTestAdapter(t, srv.URL).CreateCheckout(context.Background(), testIntent())
	require.Error(t, err)
	assert.True(t, ierr.IsIntegration(err))
}

func TestParseCallback(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	payload := []byte(`{"id":"inv_abc","status":"PAID"}`)

	tests := []struct {
		eventType string
		want      EventKind
	}{
		{"invoice.paid", EventPaid},
		{"invoice.expired", EventExpired},
		{"invoice.failed", EventFailed},
	}
	for _, tc := range tests {
		event, err := a.ParseCallback(tc.eventType, payload)
		require.NoError(t, err, tc.eventType)
		assert.Equal(t, tc.want, event.Kind)
		assert.Equal(t, "inv_abc", event.ExternalID)
	}
}

func TestParseCallbackRejectsBadInput(t *testing.T) {
	a := newTestAdapter(t, "http://unused")

	_, err := a.ParseCallback("invoice.archived", []byte(`{"id":"inv_abc"}`))
	require.Error(t, err)
	assert.True(t, ierr.IsIntegration(err))

	_, err = a.ParseCallback("invoice.paid", []byte(`not-json`))
	require.Error(t, err)
	assert.True(t, ierr.IsIntegration(err))

	_, err = a.ParseCallback("invoice.paid", []byte(`{"status":"PAID"}`))
	require.Error(t, err)
	assert.True(t, ierr.IsIntegration(err))
}

func TestVerifyCallbackToken(t *testing.T) {
	a := newTestAdapter(t, "http://unused")
	assert.True(t, a.VerifyCallbackToken("cb-secret"))
	assert.False(t, a.VerifyCallbackToken("wrong"))
	assert.False(t, a.VerifyCallbackToken(""))

	log, err := logger.NewLogger(config.GetDefaultConfig())
	require.NoError(t, err)
	unconfigured := NewAdapter(config.InvoiceConfig{}, log)
	assert.False(t, unconfigured.VerifyCallbackToken(""), "empty configured token never verifies")
}

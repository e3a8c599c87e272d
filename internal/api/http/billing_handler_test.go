package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"selfstore-backend/internal/domain"
	"selfstore-backend/internal/service"
)

// fakeBillingService covers the webhook path; other methods are never hit.
type fakeBillingService struct {
	service.BillingService
	calls  int
	result *service.ApplyResult
}

func (f *fakeBillingService) OnPaymentEvent(ctx context.Context, payment *domain.Payment) (*service.ApplyResult, error) {
	f.calls++
	f.result = &service.ApplyResult{Payment: payment}
	return f.result, nil
}

func webhookRequest(body string, tokenOwner int64) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
	ctx := context.WithValue(r.Context(), ownerIDKey, tokenOwner)
	return r.WithContext(ctx)
}

func TestBillingHandler_PaymentWebhook(t *testing.T) {
	const body = `{"id":"pay-1","owner_id":2,"invoice_id":5,"amount_cents":5000,"status":"COMPLETED"}`

	t.Run("BodyOwnerMustMatchTokenOwner", func(t *testing.T) {
		billing := &fakeBillingService{}
		h := NewBillingHandler(billing, nil)

		w := httptest.NewRecorder()
		h.PaymentWebhook(w, webhookRequest(body, 1))

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Zero(t, billing.calls)
	})

	t.Run("MatchingOwnerIsAccepted", func(t *testing.T) {
		billing := &fakeBillingService{}
		h := NewBillingHandler(billing, nil)

		w := httptest.NewRecorder()
		h.PaymentWebhook(w, webhookRequest(body, 2))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, billing.calls)
		assert.Equal(t, int64(2), billing.result.Payment.OwnerID)
	})

	t.Run("UnauthenticatedRequestIsForbidden", func(t *testing.T) {
		billing := &fakeBillingService{}
		h := NewBillingHandler(billing, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
		h.PaymentWebhook(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Zero(t, billing.calls)
	})
}

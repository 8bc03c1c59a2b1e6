package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/payments"
	"github.com/north-market/api/internal/services"
)

func newWebhookRouter(provider *stubWebhookProvider, paymentService *stubPaymentService) chi.Router {
	router := chi.NewRouter()
	router.Route("/webhooks", NewWebhookHandlers(provider, paymentService).Routes)
	return router
}

func postWebhook(router chi.Router, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	provider := &stubWebhookProvider{
		verifyFn: func(_ []byte, _ string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{}, errors.New("signature mismatch")
		},
	}
	markPaidCalled := false
	paymentService := &stubPaymentService{
		markPaidFn: func(_ context.Context, _ services.MarkPaidCommand) (domain.Order, error) {
			markPaidCalled = true
			return domain.Order{}, nil
		},
	}
	router := newWebhookRouter(provider, paymentService)

	res := postWebhook(router, `{"type":"payment_intent.succeeded"}`, "bogus")

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if body := decodeErrorBody(t, res); body["error"] != "invalid_signature" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
	if markPaidCalled {
		t.Fatal("MarkPaid must not run for unverified deliveries")
	}
}

func TestStripeWebhookSucceededMarksPaid(t *testing.T) {
	provider := &stubWebhookProvider{
		verifyFn: func(payload []byte, signature string) (payments.WebhookEvent, error) {
			if signature != "t=1,v1=abc" {
				t.Fatalf("unexpected signature %q", signature)
			}
			if len(payload) == 0 {
				t.Fatal("expected raw payload to be forwarded")
			}
			return payments.WebhookEvent{
				ID:       "evt_1",
				Type:     payments.EventIntentSucceeded,
				IntentID: "pi_123",
			}, nil
		},
	}
	var gotCmd services.MarkPaidCommand
	paymentService := &stubPaymentService{
		markPaidFn: func(_ context.Context, cmd services.MarkPaidCommand) (domain.Order, error) {
			gotCmd = cmd
			return sampleOrder("ord_1", "usr_1", domain.OrderStatusProcessing), nil
		},
	}
	router := newWebhookRouter(provider, paymentService)

	res := postWebhook(router, `{"id":"evt_1"}`, "t=1,v1=abc")

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotCmd.Provider != domain.PaymentProviderStripe || gotCmd.ProviderRef != "pi_123" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
	if !strings.Contains(res.Body.String(), "processed") {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
}

func TestStripeWebhookUnknownIntentIsIgnored(t *testing.T) {
	provider := &stubWebhookProvider{
		verifyFn: func(_ []byte, _ string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{
				ID:       "evt_1",
				Type:     payments.EventIntentSucceeded,
				IntentID: "pi_unknown",
			}, nil
		},
	}
	paymentService := &stubPaymentService{
		markPaidFn: func(_ context.Context, _ services.MarkPaidCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrPaymentNotFound
		},
	}
	router := newWebhookRouter(provider, paymentService)

	res := postWebhook(router, `{}`, "sig")

	// 200 stops the provider from redelivering an event we cannot reconcile.
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "ignored") {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
}

func TestStripeWebhookProcessingFailureRequestsRedelivery(t *testing.T) {
	provider := &stubWebhookProvider{
		verifyFn: func(_ []byte, _ string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{
				ID:       "evt_1",
				Type:     payments.EventIntentSucceeded,
				IntentID: "pi_123",
			}, nil
		},
	}
	paymentService := &stubPaymentService{
		markPaidFn: func(_ context.Context, _ services.MarkPaidCommand) (domain.Order, error) {
			return domain.Order{}, errors.New("database unavailable")
		},
	}
	router := newWebhookRouter(provider, paymentService)

	res := postWebhook(router, `{}`, "sig")

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if body := decodeErrorBody(t, res); body["error"] != "webhook_processing_failed" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}

func TestStripeWebhookFailedIntentIsAcknowledged(t *testing.T) {
	provider := &stubWebhookProvider{
		verifyFn: func(_ []byte, _ string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{
				ID:       "evt_1",
				Type:     payments.EventIntentFailed,
				IntentID: "pi_123",
			}, nil
		},
	}
	markPaidCalled := false
	paymentService := &stubPaymentService{
		markPaidFn: func(_ context.Context, _ services.MarkPaidCommand) (domain.Order, error) {
			markPaidCalled = true
			return domain.Order{}, nil
		},
	}
	router := newWebhookRouter(provider, paymentService)

	res := postWebhook(router, `{}`, "sig")

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if markPaidCalled {
		t.Fatal("failed intents must not mark the order paid")
	}
	if !strings.Contains(res.Body.String(), "acknowledged") {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
}

func TestStripeWebhookIgnoresUnhandledEventTypes(t *testing.T) {
	provider := &stubWebhookProvider{
		verifyFn: func(_ []byte, _ string) (payments.WebhookEvent, error) {
			return payments.WebhookEvent{ID: "evt_1", Type: "charge.updated"}, nil
		},
	}
	router := newWebhookRouter(provider, &stubPaymentService{})

	res := postWebhook(router, `{}`, "sig")

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "ignored") {
		t.Fatalf("unexpected body %s", res.Body.String())
	}
}

package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/payments"
	"github.com/north-market/api/internal/platform/httpx"
	"github.com/north-market/api/internal/platform/requestctx"
	"github.com/north-market/api/internal/services"
)

const maxWebhookBodySize = 64 * 1024

// WebhookHandlers receives payment provider callbacks.
type WebhookHandlers struct {
	provider payments.Provider
	payments services.PaymentService
}

// NewWebhookHandlers constructs a new WebhookHandlers instance.
func NewWebhookHandlers(provider payments.Provider, paymentService services.PaymentService) *WebhookHandlers {
	return &WebhookHandlers{
		provider: provider,
		payments: paymentService,
	}
}

// Routes registers the /webhooks endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.stripeWebhook)
}

// stripeWebhook verifies the delivery signature and reconciles succeeded
// intents into the order machine. Processing failures return 5xx so the
// provider redelivers; MarkPaid tolerates duplicates.
func (h *WebhookHandlers) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read webhook payload", http.StatusBadRequest))
		return
	}

	event, err := h.provider.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.Warn("webhook signature verification failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
		return
	}

	switch event.Type {
	case payments.EventIntentSucceeded:
		if _, err := h.payments.MarkPaid(ctx, services.MarkPaidCommand{
			Provider:    domain.PaymentProviderStripe,
			ProviderRef: event.IntentID,
		}); err != nil {
			if errors.Is(err, services.ErrPaymentNotFound) {
				// No matching intent on record. Acknowledge so the provider
				// stops redelivering an event we can never reconcile.
				logger.Warn("webhook for unknown payment intent",
					zap.String("event_id", event.ID),
					zap.String("intent_id", event.IntentID),
				)
				writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ignored"})
				return
			}
			logger.Error("webhook reconciliation failed",
				zap.String("event_id", event.ID),
				zap.String("intent_id", event.IntentID),
				zap.Error(err),
			)
			httpx.WriteError(ctx, w, httpx.NewError("webhook_processing_failed", "unable to process webhook event", http.StatusInternalServerError))
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "processed"})
	case payments.EventIntentFailed:
		// Failed intents stay PENDING so the customer can retry; log only.
		logger.Info("payment intent failed",
			zap.String("event_id", event.ID),
			zap.String("intent_id", event.IntentID),
		)
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "acknowledged"})
	default:
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ignored"})
	}
}

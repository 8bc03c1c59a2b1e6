package payments

import (
	"context"
	"time"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or PSP confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the PSP reports the payment as successfully captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the PSP reports a failure and no further action is possible.
	StatusFailed Status = "failed"
	// StatusRefunded indicates the payment has been refunded.
	StatusRefunded Status = "refunded"
)

// IntentRequest captures the payload required to open a payment intent for an order.
type IntentRequest struct {
	Amount         int64
	Currency       string
	OrderID        string
	OrderReference string
	IdempotencyKey string
	Metadata       map[string]string
}

// Intent represents the PSP intent returned to the client for confirmation.
type Intent struct {
	ID           string
	Provider     string
	ClientSecret string
	Status       Status
	Amount       int64
	Currency     string
}

// RefundRequest defines a PSP refund attempt against an existing intent.
type RefundRequest struct {
	IntentID       string
	Amount         *int64
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string
}

// RefundResult normalises PSP refund fields for storage.
type RefundResult struct {
	RefundID   string
	IntentID   string
	Status     Status
	Amount     int64
	Currency   string
	RefundedAt *time.Time
}

// WebhookEvent is a verified, normalised provider notification.
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
	Amount   int64
	Currency string
}

// Webhook event types the reconciliation flow reacts to. Everything else is
// acknowledged and dropped.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// Provider defines the contract for PSP adapters to implement.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
	// VerifyWebhook authenticates a raw webhook delivery and decodes it into
	// a normalised event.
	VerifyWebhook(payload []byte, signature string) (WebhookEvent, error)
}

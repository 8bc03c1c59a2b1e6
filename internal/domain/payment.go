package domain

import "time"

// PaymentProvider identifies the external payment service for a payment row.
type PaymentProvider string

// PaymentProviderStripe is the only provider currently wired.
const PaymentProviderStripe PaymentProvider = "STRIPE"

// PaymentStatus tracks a single payment attempt against a provider.
type PaymentStatus string

const (
	// PaymentStatusPending indicates an intent exists but has not settled.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusSucceeded indicates the provider confirmed the charge.
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	// PaymentStatusRefunded indicates the charge was refunded in full.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
	// PaymentStatusFailed indicates the provider rejected the charge.
	PaymentStatusFailed PaymentStatus = "FAILED"
)

// Payment is one provider attempt for an order. (Provider, ProviderRef) is
// unique; an order may accumulate rows across retries but only one may reach
// SUCCEEDED.
type Payment struct {
	ID          string
	OrderID     string
	Provider    PaymentProvider
	ProviderRef string
	Amount      int64
	Currency    string
	Status      PaymentStatus
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

package domain

import "time"

// AuditEntityType tags which entity an audit entry (and its snapshots) refers to.
type AuditEntityType string

const (
	// AuditEntityOrder marks audit entries for order mutations.
	AuditEntityOrder AuditEntityType = "ORDER"
	// AuditEntityPayment marks audit entries for payment mutations.
	AuditEntityPayment AuditEntityType = "PAYMENT"
	// AuditEntityProduct marks audit entries for stock mutations.
	AuditEntityProduct AuditEntityType = "PRODUCT"
)

// AuditActorType classifies who performed an audited action.
type AuditActorType string

const (
	// AuditActorSystem marks transitions driven by webhooks or internal jobs.
	AuditActorSystem AuditActorType = "SYSTEM"
	// AuditActorAdmin marks administrative actions.
	AuditActorAdmin AuditActorType = "ADMIN"
	// AuditActorUser marks customer-initiated actions.
	AuditActorUser AuditActorType = "USER"
)

// AuditSnapshot is a tagged before/after capture. Exactly one branch is set,
// selected by the entry's EntityType, so readers can deserialise history
// without trusting loosely-typed blobs.
type AuditSnapshot struct {
	Order   *OrderAuditSnapshot   `json:"order,omitempty"`
	Payment *PaymentAuditSnapshot `json:"payment,omitempty"`
	Product *ProductAuditSnapshot `json:"product,omitempty"`
}

// OrderAuditSnapshot captures the order fields the state machine mutates.
type OrderAuditSnapshot struct {
	Status          OrderStatus `json:"status,omitempty"`
	Total           *int64      `json:"total,omitempty"`
	Reference       string      `json:"reference,omitempty"`
	TrackingNumber  string      `json:"trackingNumber,omitempty"`
	ShippingCarrier string      `json:"shippingCarrier,omitempty"`
	RefundRef       string      `json:"refundRef,omitempty"`
}

// PaymentAuditSnapshot captures payment status transitions.
type PaymentAuditSnapshot struct {
	Status      PaymentStatus `json:"status,omitempty"`
	ProviderRef string        `json:"providerRef,omitempty"`
}

// ProductAuditSnapshot captures stock movements.
type ProductAuditSnapshot struct {
	Stock int `json:"stock"`
}

// AuditLogEntry is one append-only row recording a state transition. Entries
// are written in the same transaction as the change they record and are never
// updated afterwards.
type AuditLogEntry struct {
	ID          string
	EntityType  AuditEntityType
	EntityID    string
	Action      string
	PerformedBy string
	ActorType   AuditActorType
	Before      AuditSnapshot
	After       AuditSnapshot
	CreatedAt   time.Time
}

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

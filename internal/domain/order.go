package domain

import "time"

// OrderStatus models the order lifecycle state machine.
//
// Forward path: PENDING -> PROCESSING -> SHIPPED -> DELIVERED.
// Side branches: PENDING -> CANCELLED (user cancel, stock restored) and
// {PROCESSING,SHIPPED,DELIVERED} -> REFUND_PENDING -> REFUNDED.
// CANCELLED, DELIVERED, and REFUNDED are terminal.
type OrderStatus string

const (
	// OrderStatusPending indicates the order was placed but not yet paid.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusProcessing indicates payment succeeded and fulfilment may begin.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusShipped indicates the order left the warehouse.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered indicates the carrier confirmed delivery.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled indicates the customer cancelled before payment.
	OrderStatusCancelled OrderStatus = "CANCELLED"
	// OrderStatusRefundPending indicates a refund was approved but not yet processed.
	OrderStatusRefundPending OrderStatus = "REFUND_PENDING"
	// OrderStatusRefunded indicates the payment provider confirmed the refund.
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

// ParseOrderStatus validates a wire-level status string.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	switch OrderStatus(raw) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefundPending,
		OrderStatusRefunded:
		return OrderStatus(raw), true
	}
	return "", false
}

// Order is the immutable financial snapshot created at checkout. Total and
// item prices are frozen at creation time; later product price changes never
// affect an existing order. Amounts are minor units (cents).
type Order struct {
	ID                string
	Reference         string
	UserID            string
	Status            OrderStatus
	Total             int64
	Currency          string
	ShippingAddressID *string
	TrackingNumber    *string
	ShippingCarrier   *string
	Items             []OrderItem
	Payments          []Payment
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	RefundAt          *time.Time
}

// OrderItem is a frozen copy of a product line at time of purchase.
type OrderItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice int64
}

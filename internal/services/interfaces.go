package services

import (
	"context"
	"time"

	domain "github.com/north-market/api/internal/domain"
)

// CreateOrderCommand carries the checkout input for a customer.
type CreateOrderCommand struct {
	UserID            string
	ShippingAddressID *string
}

// CancelOrderCommand carries a customer cancellation request.
type CancelOrderCommand struct {
	OrderID string
	UserID  string
}

// UpdateOrderStatusCommand carries an administrative status override.
type UpdateOrderStatusCommand struct {
	OrderID string
	Status  domain.OrderStatus
	ActorID string
}

// UpdateShippingInfoCommand carries fulfilment tracking details.
type UpdateShippingInfoCommand struct {
	OrderID        string
	TrackingNumber string
	Carrier        string
	// Status optionally overrides the default SHIPPED transition.
	Status  *domain.OrderStatus
	ActorID string
}

// OrderListQuery narrows order listings.
type OrderListQuery struct {
	UserID   string
	Statuses []domain.OrderStatus
	Limit    int
}

// OrderService drives the order lifecycle state machine.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.Order, error)
	UpdateShippingInfo(ctx context.Context, cmd UpdateShippingInfoCommand) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, query OrderListQuery) ([]domain.Order, error)
}

// PaymentIntent is the client-facing handle for completing a payment.
type PaymentIntent struct {
	PaymentID    string
	IntentID     string
	ClientSecret string
	Amount       int64
	Currency     string
}

// CreateIntentCommand opens a provider payment intent for an order.
type CreateIntentCommand struct {
	OrderID string
	UserID  string
}

// MarkPaidCommand reconciles a provider success notification.
type MarkPaidCommand struct {
	Provider    domain.PaymentProvider
	ProviderRef string
}

// PaymentService reconciles provider payment state into the order machine.
type PaymentService interface {
	CreateIntent(ctx context.Context, cmd CreateIntentCommand) (PaymentIntent, error)
	MarkPaid(ctx context.Context, cmd MarkPaidCommand) (domain.Order, error)
}

// ProcessRefundCommand executes the provider refund for an approved order.
type ProcessRefundCommand struct {
	OrderID string
	ActorID string
}

// UpdateRefundStatusCommand is an administrative refund status correction.
type UpdateRefundStatusCommand struct {
	OrderID string
	Status  domain.OrderStatus
	ActorID string
}

// UpdateRefundAmountCommand is an administrative refund amount correction.
type UpdateRefundAmountCommand struct {
	OrderID string
	Amount  int64
	ActorID string
}

// UpdateRefundReferenceCommand is an administrative order reference correction.
type UpdateRefundReferenceCommand struct {
	OrderID   string
	Reference string
	ActorID   string
}

// RefundListQuery narrows refund listings.
type RefundListQuery struct {
	Limit int
}

// RefundService manages the refund workflow over refund-pending orders.
type RefundService interface {
	ProcessRefund(ctx context.Context, cmd ProcessRefundCommand) (domain.Order, error)
	UpdateRefundStatus(ctx context.Context, cmd UpdateRefundStatusCommand) (domain.Order, error)
	UpdateRefundAmount(ctx context.Context, cmd UpdateRefundAmountCommand) (domain.Order, error)
	UpdateRefundReference(ctx context.Context, cmd UpdateRefundReferenceCommand) (domain.Order, error)
	GetRefund(ctx context.Context, orderID string) (domain.Order, error)
	ListRefunds(ctx context.Context, query RefundListQuery) ([]domain.Order, error)
}

// AdjustStockCommand applies a signed stock delta to a product.
type AdjustStockCommand struct {
	ProductID string
	Delta     int
	ActorID   string
}

// InventoryService owns administrative stock movements and low-stock reads.
type InventoryService interface {
	AdjustStock(ctx context.Context, cmd AdjustStockCommand) (domain.Product, error)
	ListLowStock(ctx context.Context, limit int) ([]domain.Product, error)
}

// CartItemCommand adds or updates one cart line for a user.
type CartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int
}

// CartService owns the per-user cart aggregate.
type CartService interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	AddItem(ctx context.Context, cmd CartItemCommand) (domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, cmd CartItemCommand) (domain.Cart, error)
	RemoveItem(ctx context.Context, userID string, productID string) (domain.Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

// AuditLogQuery narrows audit trail listings for the admin surface.
type AuditLogQuery struct {
	EntityType domain.AuditEntityType
	EntityID   string
	Action     string
	From       *time.Time
	To         *time.Time
	Limit      int
}

// AuditLogService exposes the append-only audit trail to readers. Writes
// happen inside the owning services' transactions, not through this interface.
type AuditLogService interface {
	List(ctx context.Context, query AuditLogQuery) ([]domain.AuditLogEntry, error)
}

// Notification kinds published to the notification topic.
const (
	NotificationOrderConfirmation = "order.confirmation"
	NotificationOrderShipped      = "order.shipped"
	NotificationLowStock          = "stock.low"
	NotificationRefundProcessed   = "refund.processed"
	NotificationInvoiceRequested  = "invoice.requested"
)

// Notification is a fire-and-forget event for downstream consumers (email,
// invoicing, ops alerts). Publish failures are logged and never fail the
// state transition that produced them.
type Notification struct {
	Kind           string
	UserID         string
	OrderID        string
	OrderReference string
	ProductID      string
	OccurredAt     time.Time
	Metadata       map[string]string
}

// NotificationPublisher publishes notifications for downstream consumers.
type NotificationPublisher interface {
	Publish(ctx context.Context, notification Notification) error
}

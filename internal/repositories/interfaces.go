package repositories

import (
	"context"
	"time"

	domain "github.com/north-market/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close() error

	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Addresses() AddressRepository
	AuditLogs() AuditLogRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork groups repository operations into a single atomic transaction.
// Repository calls made with the callback's context join that transaction.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepository manages catalog products and their stock counters.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	// FindForUpdate loads products under a row lock; only meaningful inside
	// a UnitOfWork transaction.
	FindForUpdate(ctx context.Context, productIDs []string) ([]domain.Product, error)
	// AdjustStock applies a signed delta to product stock. It fails with a
	// conflict when the resulting stock would be negative.
	AdjustStock(ctx context.Context, productID string, delta int) (domain.Product, error)
	ListLowStock(ctx context.Context, limit int) ([]domain.Product, error)
}

// CartRepository owns the one-cart-per-user aggregate and its line items.
type CartRepository interface {
	GetOrCreate(ctx context.Context, userID string) (domain.Cart, error)
	FindByUser(ctx context.Context, userID string) (domain.Cart, error)
	UpsertItem(ctx context.Context, cartID string, item domain.CartItem) (domain.Cart, error)
	RemoveItem(ctx context.Context, cartID string, productID string) (domain.Cart, error)
	// ClearItems empties the cart without deleting the cart row.
	ClearItems(ctx context.Context, cartID string) error
}

// OrderListFilter narrows order listings for user and admin surfaces.
type OrderListFilter struct {
	UserID   string
	Statuses []domain.OrderStatus
	Limit    int
}

// OrderRepository persists order headers together with their frozen items.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
}

// PaymentRepository stores provider payment attempts for orders.
type PaymentRepository interface {
	Insert(ctx context.Context, payment domain.Payment) error
	Update(ctx context.Context, payment domain.Payment) error
	FindByProviderRef(ctx context.Context, provider domain.PaymentProvider, providerRef string) (domain.Payment, error)
	FindSucceeded(ctx context.Context, orderID string, provider domain.PaymentProvider) (domain.Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error)
}

// AddressRepository resolves customer addresses for ownership checks.
type AddressRepository interface {
	FindByID(ctx context.Context, addressID string) (domain.Address, error)
}

// AuditLogFilter narrows audit trail listings.
type AuditLogFilter struct {
	EntityType domain.AuditEntityType
	EntityID   string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Limit      int
}

// AuditLogRepository appends and queries the append-only audit trail.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) ([]domain.AuditLogEntry, error)
}

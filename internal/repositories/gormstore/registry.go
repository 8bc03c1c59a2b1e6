package gormstore

import (
	"context"
	"errors"
	"strings"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/north-market/api/internal/repositories"
)

type txContextKey struct{}

// Registry bundles the GORM-backed repositories behind the repositories.Registry interface.
type Registry struct {
	db    *gorm.DB
	newID func() string
}

// NewRegistry wires the repository set over the supplied GORM handle.
func NewRegistry(db *gorm.DB) (*Registry, error) {
	if db == nil {
		return nil, errors.New("gormstore: db handle is required")
	}
	return &Registry{
		db:    db,
		newID: func() string { return strings.ToLower(ulid.Make().String()) },
	}, nil
}

// Close releases the underlying connection pool.
func (r *Registry) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Products returns the product repository.
func (r *Registry) Products() repositories.ProductRepository { return &productRepository{reg: r} }

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return &cartRepository{reg: r} }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return &orderRepository{reg: r} }

// Payments returns the payment repository.
func (r *Registry) Payments() repositories.PaymentRepository { return &paymentRepository{reg: r} }

// Addresses returns the address repository.
func (r *Registry) Addresses() repositories.AddressRepository { return &addressRepository{reg: r} }

// AuditLogs returns the audit log repository.
func (r *Registry) AuditLogs() repositories.AuditLogRepository { return &auditLogRepository{reg: r} }

// RunInTx executes fn inside a single database transaction. The transaction
// handle travels on the callback context, so repository calls made with that
// context join the same atomic unit.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := txFromContext(ctx); tx != nil {
		// Already transactional; nested units join the outer transaction.
		return fn(ctx)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// conn resolves the active transaction from ctx, falling back to the pool.
func (r *Registry) conn(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.db.WithContext(ctx)
}

func txFromContext(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return nil
	}
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

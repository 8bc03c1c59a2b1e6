package services

import (
	"context"
	"errors"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/payments"
	"github.com/north-market/api/internal/repositories"
)

type stubOrderRepo struct {
	insertFn func(context.Context, domain.Order) error
	updateFn func(context.Context, domain.Order) error
	findFn   func(context.Context, string) (domain.Order, error)
	listFn   func(context.Context, repositories.OrderListFilter) ([]domain.Order, error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order domain.Order) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return nil, nil
}

type stubProductRepo struct {
	findFn         func(context.Context, string) (domain.Product, error)
	findForUpdate  func(context.Context, []string) ([]domain.Product, error)
	adjustFn       func(context.Context, string, int) (domain.Product, error)
	listLowStockFn func(context.Context, int) ([]domain.Product, error)
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFn != nil {
		return s.findFn(ctx, productID)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepo) FindForUpdate(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	if s.findForUpdate != nil {
		return s.findForUpdate(ctx, productIDs)
	}
	return nil, nil
}

func (s *stubProductRepo) AdjustStock(ctx context.Context, productID string, delta int) (domain.Product, error) {
	if s.adjustFn != nil {
		return s.adjustFn(ctx, productID, delta)
	}
	return domain.Product{ID: productID}, nil
}

func (s *stubProductRepo) ListLowStock(ctx context.Context, limit int) ([]domain.Product, error) {
	if s.listLowStockFn != nil {
		return s.listLowStockFn(ctx, limit)
	}
	return nil, nil
}

type stubCartRepo struct {
	getOrCreateFn func(context.Context, string) (domain.Cart, error)
	findByUserFn  func(context.Context, string) (domain.Cart, error)
	upsertFn      func(context.Context, string, domain.CartItem) (domain.Cart, error)
	removeFn      func(context.Context, string, string) (domain.Cart, error)
	clearFn       func(context.Context, string) error
}

func (s *stubCartRepo) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getOrCreateFn != nil {
		return s.getOrCreateFn(ctx, userID)
	}
	return domain.Cart{ID: "crt_test", UserID: userID}, nil
}

func (s *stubCartRepo) FindByUser(ctx context.Context, userID string) (domain.Cart, error) {
	if s.findByUserFn != nil {
		return s.findByUserFn(ctx, userID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartRepo) UpsertItem(ctx context.Context, cartID string, item domain.CartItem) (domain.Cart, error) {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, cartID, item)
	}
	return domain.Cart{ID: cartID}, nil
}

func (s *stubCartRepo) RemoveItem(ctx context.Context, cartID string, productID string) (domain.Cart, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, cartID, productID)
	}
	return domain.Cart{ID: cartID}, nil
}

func (s *stubCartRepo) ClearItems(ctx context.Context, cartID string) error {
	if s.clearFn != nil {
		return s.clearFn(ctx, cartID)
	}
	return nil
}

type stubPaymentRepo struct {
	insertFn        func(context.Context, domain.Payment) error
	updateFn        func(context.Context, domain.Payment) error
	findByRefFn     func(context.Context, domain.PaymentProvider, string) (domain.Payment, error)
	findSucceededFn func(context.Context, string, domain.PaymentProvider) (domain.Payment, error)
	listByOrderFn   func(context.Context, string) ([]domain.Payment, error)
}

func (s *stubPaymentRepo) Insert(ctx context.Context, payment domain.Payment) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, payment)
	}
	return nil
}

func (s *stubPaymentRepo) Update(ctx context.Context, payment domain.Payment) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, payment)
	}
	return nil
}

func (s *stubPaymentRepo) FindByProviderRef(ctx context.Context, provider domain.PaymentProvider, providerRef string) (domain.Payment, error) {
	if s.findByRefFn != nil {
		return s.findByRefFn(ctx, provider, providerRef)
	}
	return domain.Payment{}, errors.New("not implemented")
}

func (s *stubPaymentRepo) FindSucceeded(ctx context.Context, orderID string, provider domain.PaymentProvider) (domain.Payment, error) {
	if s.findSucceededFn != nil {
		return s.findSucceededFn(ctx, orderID, provider)
	}
	return domain.Payment{}, errors.New("not implemented")
}

func (s *stubPaymentRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	if s.listByOrderFn != nil {
		return s.listByOrderFn(ctx, orderID)
	}
	return nil, nil
}

type stubAddressRepo struct {
	findFn func(context.Context, string) (domain.Address, error)
}

func (s *stubAddressRepo) FindByID(ctx context.Context, addressID string) (domain.Address, error) {
	if s.findFn != nil {
		return s.findFn(ctx, addressID)
	}
	return domain.Address{}, errors.New("not implemented")
}

type captureAuditRepo struct {
	entries []domain.AuditLogEntry
	listFn  func(context.Context, repositories.AuditLogFilter) ([]domain.AuditLogEntry, error)
}

func (c *captureAuditRepo) Append(_ context.Context, entry domain.AuditLogEntry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func (c *captureAuditRepo) List(ctx context.Context, filter repositories.AuditLogFilter) ([]domain.AuditLogEntry, error) {
	if c.listFn != nil {
		return c.listFn(ctx, filter)
	}
	return nil, nil
}

type captureNotifications struct {
	published []Notification
	err       error
}

func (c *captureNotifications) Publish(_ context.Context, notification Notification) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, notification)
	return nil
}

type stubProvider struct {
	createIntentFn func(context.Context, payments.IntentRequest) (payments.Intent, error)
	refundFn       func(context.Context, payments.RefundRequest) (payments.RefundResult, error)
}

func (s *stubProvider) CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error) {
	if s.createIntentFn != nil {
		return s.createIntentFn(ctx, req)
	}
	return payments.Intent{}, errors.New("not implemented")
}

func (s *stubProvider) Refund(ctx context.Context, req payments.RefundRequest) (payments.RefundResult, error) {
	if s.refundFn != nil {
		return s.refundFn(ctx, req)
	}
	return payments.RefundResult{}, errors.New("not implemented")
}

func (s *stubProvider) VerifyWebhook([]byte, string) (payments.WebhookEvent, error) {
	return payments.WebhookEvent{}, errors.New("not implemented")
}

type stubUnitOfWork struct {
	runFn func(context.Context, func(context.Context) error) error
}

func (s *stubUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.runFn != nil {
		return s.runFn(ctx, fn)
	}
	return fn(ctx)
}

type storeError struct {
	notFound bool
	conflict bool
}

func (e *storeError) Error() string       { return "store error" }
func (e *storeError) IsNotFound() bool    { return e.notFound }
func (e *storeError) IsConflict() bool    { return e.conflict }
func (e *storeError) IsUnavailable() bool { return false }

func notFoundErr() error { return &storeError{notFound: true} }

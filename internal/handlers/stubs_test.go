package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/payments"
	"github.com/north-market/api/internal/platform/auth"
	"github.com/north-market/api/internal/services"
)

type stubOrderService struct {
	createFn         func(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error)
	cancelFn         func(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error)
	updateStatusFn   func(ctx context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error)
	updateShippingFn func(ctx context.Context, cmd services.UpdateShippingInfoCommand) (domain.Order, error)
	getFn            func(ctx context.Context, orderID string) (domain.Order, error)
	listFn           func(ctx context.Context, query services.OrderListQuery) ([]domain.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) UpdateShippingInfo(ctx context.Context, cmd services.UpdateShippingInfoCommand) (domain.Order, error) {
	if s.updateShippingFn != nil {
		return s.updateShippingFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, query services.OrderListQuery) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, query)
	}
	return nil, nil
}

type stubPaymentService struct {
	createIntentFn func(ctx context.Context, cmd services.CreateIntentCommand) (services.PaymentIntent, error)
	markPaidFn     func(ctx context.Context, cmd services.MarkPaidCommand) (domain.Order, error)
}

func (s *stubPaymentService) CreateIntent(ctx context.Context, cmd services.CreateIntentCommand) (services.PaymentIntent, error) {
	if s.createIntentFn != nil {
		return s.createIntentFn(ctx, cmd)
	}
	return services.PaymentIntent{}, nil
}

func (s *stubPaymentService) MarkPaid(ctx context.Context, cmd services.MarkPaidCommand) (domain.Order, error) {
	if s.markPaidFn != nil {
		return s.markPaidFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

type stubRefundService struct {
	processFn         func(ctx context.Context, cmd services.ProcessRefundCommand) (domain.Order, error)
	updateStatusFn    func(ctx context.Context, cmd services.UpdateRefundStatusCommand) (domain.Order, error)
	updateAmountFn    func(ctx context.Context, cmd services.UpdateRefundAmountCommand) (domain.Order, error)
	updateReferenceFn func(ctx context.Context, cmd services.UpdateRefundReferenceCommand) (domain.Order, error)
	getFn             func(ctx context.Context, orderID string) (domain.Order, error)
	listFn            func(ctx context.Context, query services.RefundListQuery) ([]domain.Order, error)
}

func (s *stubRefundService) ProcessRefund(ctx context.Context, cmd services.ProcessRefundCommand) (domain.Order, error) {
	if s.processFn != nil {
		return s.processFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubRefundService) UpdateRefundStatus(ctx context.Context, cmd services.UpdateRefundStatusCommand) (domain.Order, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubRefundService) UpdateRefundAmount(ctx context.Context, cmd services.UpdateRefundAmountCommand) (domain.Order, error) {
	if s.updateAmountFn != nil {
		return s.updateAmountFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubRefundService) UpdateRefundReference(ctx context.Context, cmd services.UpdateRefundReferenceCommand) (domain.Order, error) {
	if s.updateReferenceFn != nil {
		return s.updateReferenceFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubRefundService) GetRefund(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, nil
}

func (s *stubRefundService) ListRefunds(ctx context.Context, query services.RefundListQuery) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, query)
	}
	return nil, nil
}

type stubInventoryService struct {
	adjustFn       func(ctx context.Context, cmd services.AdjustStockCommand) (domain.Product, error)
	listLowStockFn func(ctx context.Context, limit int) ([]domain.Product, error)
}

func (s *stubInventoryService) AdjustStock(ctx context.Context, cmd services.AdjustStockCommand) (domain.Product, error) {
	if s.adjustFn != nil {
		return s.adjustFn(ctx, cmd)
	}
	return domain.Product{}, nil
}

func (s *stubInventoryService) ListLowStock(ctx context.Context, limit int) ([]domain.Product, error) {
	if s.listLowStockFn != nil {
		return s.listLowStockFn(ctx, limit)
	}
	return nil, nil
}

type stubCartService struct {
	getFn       func(ctx context.Context, userID string) (domain.Cart, error)
	addFn       func(ctx context.Context, cmd services.CartItemCommand) (domain.Cart, error)
	updateFn    func(ctx context.Context, cmd services.CartItemCommand) (domain.Cart, error)
	removeFn    func(ctx context.Context, userID, productID string) (domain.Cart, error)
	clearCartFn func(ctx context.Context, userID string) error
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return domain.Cart{}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.CartItemCommand) (domain.Cart, error) {
	if s.addFn != nil {
		return s.addFn(ctx, cmd)
	}
	return domain.Cart{}, nil
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, cmd services.CartItemCommand) (domain.Cart, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Cart{}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID string) (domain.Cart, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, userID, productID)
	}
	return domain.Cart{}, nil
}

func (s *stubCartService) ClearCart(ctx context.Context, userID string) error {
	if s.clearCartFn != nil {
		return s.clearCartFn(ctx, userID)
	}
	return nil
}

type stubAuditLogService struct {
	listFn func(ctx context.Context, query services.AuditLogQuery) ([]domain.AuditLogEntry, error)
}

func (s *stubAuditLogService) List(ctx context.Context, query services.AuditLogQuery) ([]domain.AuditLogEntry, error) {
	if s.listFn != nil {
		return s.listFn(ctx, query)
	}
	return nil, nil
}

type stubWebhookProvider struct {
	verifyFn func(payload []byte, signature string) (payments.WebhookEvent, error)
}

func (s *stubWebhookProvider) CreateIntent(context.Context, payments.IntentRequest) (payments.Intent, error) {
	return payments.Intent{}, nil
}

func (s *stubWebhookProvider) Refund(context.Context, payments.RefundRequest) (payments.RefundResult, error) {
	return payments.RefundResult{}, nil
}

func (s *stubWebhookProvider) VerifyWebhook(payload []byte, signature string) (payments.WebhookEvent, error) {
	if s.verifyFn != nil {
		return s.verifyFn(payload, signature)
	}
	return payments.WebhookEvent{}, nil
}

func authenticatedRequest(method, target, body string, identity auth.Identity) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(auth.WithIdentity(req.Context(), identity))
}

func userIdentity() auth.Identity {
	return auth.Identity{UserID: "usr_1", Role: auth.RoleUser}
}

func adminIdentity() auth.Identity {
	return auth.Identity{UserID: "adm_1", Role: auth.RoleAdmin}
}

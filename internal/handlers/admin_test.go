package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/services"
)

func newAdminRouter(orders *stubOrderService, refunds *stubRefundService, inventory *stubInventoryService, audit *stubAuditLogService) chi.Router {
	if orders == nil {
		orders = &stubOrderService{}
	}
	if refunds == nil {
		refunds = &stubRefundService{}
	}
	if inventory == nil {
		inventory = &stubInventoryService{}
	}
	if audit == nil {
		audit = &stubAuditLogService{}
	}
	router := chi.NewRouter()
	router.Route("/admin", NewAdminHandlers(orders, refunds, inventory, audit).Routes)
	return router
}

func TestAdminListOrdersFiltersByUser(t *testing.T) {
	var gotQuery services.OrderListQuery
	orders := &stubOrderService{
		listFn: func(_ context.Context, query services.OrderListQuery) ([]domain.Order, error) {
			gotQuery = query
			return []domain.Order{sampleOrder("ord_1", "usr_9", domain.OrderStatusPending)}, nil
		},
	}
	router := newAdminRouter(orders, nil, nil, nil)

	req := authenticatedRequest(http.MethodGet, "/admin/orders?userId=usr_9&status=pending", "", adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotQuery.UserID != "usr_9" {
		t.Fatalf("expected userId filter usr_9, got %q", gotQuery.UserID)
	}
	if len(gotQuery.Statuses) != 1 || gotQuery.Statuses[0] != domain.OrderStatusPending {
		t.Fatalf("unexpected statuses %v", gotQuery.Statuses)
	}
}

func TestAdminUpdateOrderStatus(t *testing.T) {
	var gotCmd services.UpdateOrderStatusCommand
	orders := &stubOrderService{
		updateStatusFn: func(_ context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error) {
			gotCmd = cmd
			return sampleOrder("ord_1", "usr_1", cmd.Status), nil
		},
	}
	router := newAdminRouter(orders, nil, nil, nil)

	req := authenticatedRequest(http.MethodPut, "/admin/orders/ord_1/status", `{"status":"processing"}`, adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotCmd.OrderID != "ord_1" || gotCmd.Status != domain.OrderStatusProcessing || gotCmd.ActorID != "adm_1" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}

func TestAdminUpdateOrderStatusRejectsUnknownValue(t *testing.T) {
	router := newAdminRouter(nil, nil, nil, nil)

	req := authenticatedRequest(http.MethodPut, "/admin/orders/ord_1/status", `{"status":"TEAPOT"}`, adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAdminUpdateShippingInfo(t *testing.T) {
	var gotCmd services.UpdateShippingInfoCommand
	orders := &stubOrderService{
		updateShippingFn: func(_ context.Context, cmd services.UpdateShippingInfoCommand) (domain.Order, error) {
			gotCmd = cmd
			return sampleOrder("ord_1", "usr_1", domain.OrderStatusShipped), nil
		},
	}
	router := newAdminRouter(orders, nil, nil, nil)

	req := authenticatedRequest(http.MethodPut, "/admin/orders/ord_1/shipping", `{"trackingNumber":"TRK123","carrier":"ups"}`, adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotCmd.TrackingNumber != "TRK123" || gotCmd.Carrier != "ups" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
	if gotCmd.Status != nil {
		t.Fatalf("expected nil status override, got %v", *gotCmd.Status)
	}
}

func TestAdminUpdateShippingInfoWithStatusOverride(t *testing.T) {
	var gotCmd services.UpdateShippingInfoCommand
	orders := &stubOrderService{
		updateShippingFn: func(_ context.Context, cmd services.UpdateShippingInfoCommand) (domain.Order, error) {
			gotCmd = cmd
			return sampleOrder("ord_1", "usr_1", domain.OrderStatusDelivered), nil
		},
	}
	router := newAdminRouter(orders, nil, nil, nil)

	req := authenticatedRequest(http.MethodPut, "/admin/orders/ord_1/shipping", `{"trackingNumber":"TRK123","carrier":"ups","status":"delivered"}`, adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotCmd.Status == nil || *gotCmd.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected DELIVERED override, got %v", gotCmd.Status)
	}
}

func TestAdminProcessRefund(t *testing.T) {
	var gotCmd services.ProcessRefundCommand
	refunds := &stubRefundService{
		processFn: func(_ context.Context, cmd services.ProcessRefundCommand) (domain.Order, error) {
			gotCmd = cmd
			return sampleOrder("ord_1", "usr_1", domain.OrderStatusRefunded), nil
		},
	}
	router := newAdminRouter(nil, refunds, nil, nil)

	req := authenticatedRequest(http.MethodPost, "/admin/orders/ord_1/refund", "", adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotCmd.OrderID != "ord_1" || gotCmd.ActorID != "adm_1" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
	var body orderResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Order.Status != string(domain.OrderStatusRefunded) {
		t.Fatalf("expected REFUNDED, got %q", body.Order.Status)
	}
}

func TestAdminProcessRefundWithoutPayment(t *testing.T) {
	refunds := &stubRefundService{
		processFn: func(_ context.Context, _ services.ProcessRefundCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrNoSuccessfulPayment
		},
	}
	router := newAdminRouter(nil, refunds, nil, nil)

	req := authenticatedRequest(http.MethodPost, "/admin/orders/ord_1/refund", "", adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
	if body := decodeErrorBody(t, res); body["error"] != "refund_no_payment" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}

func TestAdminProcessRefundProviderFailure(t *testing.T) {
	refunds := &stubRefundService{
		processFn: func(_ context.Context, _ services.ProcessRefundCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrPaymentProvider
		},
	}
	router := newAdminRouter(nil, refunds, nil, nil)

	req := authenticatedRequest(http.MethodPost, "/admin/orders/ord_1/refund", "", adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
}

func TestAdminListRefunds(t *testing.T) {
	refunds := &stubRefundService{
		listFn: func(_ context.Context, query services.RefundListQuery) ([]domain.Order, error) {
			if query.Limit != 50 {
				t.Fatalf("expected default limit 50, got %d", query.Limit)
			}
			return []domain.Order{sampleOrder("ord_1", "usr_1", domain.OrderStatusRefundPending)}, nil
		},
	}
	router := newAdminRouter(nil, refunds, nil, nil)

	req := authenticatedRequest(http.MethodGet, "/admin/refunds", "", adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body orderListResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Status != string(domain.OrderStatusRefundPending) {
		t.Fatalf("unexpected items %+v", body.Items)
	}
}

func TestAdminUpdateRefundAmount(t *testing.T) {
	var gotCmd services.UpdateRefundAmountCommand
	refunds := &stubRefundService{
		updateAmountFn: func(_ context.Context, cmd services.UpdateRefundAmountCommand) (domain.Order, error) {
			gotCmd = cmd
			return sampleOrder("ord_1", "usr_1", domain.OrderStatusRefundPending), nil
		},
	}
	router := newAdminRouter(nil, refunds, nil, nil)

	req := authenticatedRequest(http.MethodPut, "/admin/refunds/ord_1/amount", `{"amount":1500}`, adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotCmd.OrderID != "ord_1" || gotCmd.Amount != 1500 {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}

func TestAdminUpdateRefundAmountRejectsNegative(t *testing.T) {
	refunds := &stubRefundService{
		updateAmountFn: func(_ context.Context, _ services.UpdateRefundAmountCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrRefundInvalidAmount
		},
	}
	router := newAdminRouter(nil, refunds, nil, nil)

	req := authenticatedRequest(http.MethodPut, "/admin/refunds/ord_1/amount", `{"amount":-1}`, adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAdminUpdateRefundReference(t *testing.T) {
	var gotCmd services.UpdateRefundReferenceCommand
	refunds := &stubRefundService{
		updateReferenceFn: func(_ context.Context, cmd services.UpdateRefundReferenceCommand) (domain.Order, error) {
			gotCmd = cmd
			return sampleOrder("ord_1", "usr_1", domain.OrderStatusRefundPending), nil
		},
	}
	router := newAdminRouter(nil, refunds, nil, nil)

	req := authenticatedRequest(http.MethodPut, "/admin/refunds/ord_1/reference", `{"reference":"NM-FIX-0001"}`, adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotCmd.Reference != "NM-FIX-0001" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
}

func TestAdminAdjustStock(t *testing.T) {
	var gotCmd services.AdjustStockCommand
	inventory := &stubInventoryService{
		adjustFn: func(_ context.Context, cmd services.AdjustStockCommand) (domain.Product, error) {
			gotCmd = cmd
			return domain.Product{ID: cmd.ProductID, Name: "Widget", Stock: 7, LowStockThreshold: 10}, nil
		},
	}
	router := newAdminRouter(nil, nil, inventory, nil)

	req := authenticatedRequest(http.MethodPost, "/admin/products/prd_1/stock", `{"delta":-3}`, adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotCmd.ProductID != "prd_1" || gotCmd.Delta != -3 || gotCmd.ActorID != "adm_1" {
		t.Fatalf("unexpected command %+v", gotCmd)
	}
	var body productResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Product.Stock != 7 || !body.Product.LowStock {
		t.Fatalf("unexpected product %+v", body.Product)
	}
}

func TestAdminAdjustStockConflict(t *testing.T) {
	inventory := &stubInventoryService{
		adjustFn: func(_ context.Context, _ services.AdjustStockCommand) (domain.Product, error) {
			return domain.Product{}, services.ErrStockConflict
		},
	}
	router := newAdminRouter(nil, nil, inventory, nil)

	req := authenticatedRequest(http.MethodPost, "/admin/products/prd_1/stock", `{"delta":-100}`, adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
	if body := decodeErrorBody(t, res); body["error"] != "stock_conflict" {
		t.Fatalf("unexpected error code %v", body["error"])
	}
}

func TestAdminListLowStock(t *testing.T) {
	inventory := &stubInventoryService{
		listLowStockFn: func(_ context.Context, limit int) ([]domain.Product, error) {
			if limit != 10 {
				t.Fatalf("expected limit 10, got %d", limit)
			}
			return []domain.Product{{ID: "prd_1", Stock: 2, LowStockThreshold: 5}}, nil
		},
	}
	router := newAdminRouter(nil, nil, inventory, nil)

	req := authenticatedRequest(http.MethodGet, "/admin/products/low-stock?limit=10", "", adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body productListResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Items) != 1 || !body.Items[0].LowStock {
		t.Fatalf("unexpected items %+v", body.Items)
	}
}

func TestAdminListAuditLogs(t *testing.T) {
	var gotQuery services.AuditLogQuery
	audit := &stubAuditLogService{
		listFn: func(_ context.Context, query services.AuditLogQuery) ([]domain.AuditLogEntry, error) {
			gotQuery = query
			return []domain.AuditLogEntry{
				{
					ID:          "aud_1",
					EntityType:  domain.AuditEntityOrder,
					EntityID:    "ord_1",
					Action:      "status_change",
					PerformedBy: "adm_1",
					CreatedAt:   time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC),
				},
			}, nil
		},
	}
	router := newAdminRouter(nil, nil, nil, audit)

	target := "/admin/audit-logs?entityType=order&entityId=ord_1&action=status_change&from=2025-03-14T00:00:00Z&to=2025-03-15T00:00:00Z"
	req := authenticatedRequest(http.MethodGet, target, "", adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if gotQuery.EntityType != domain.AuditEntityOrder || gotQuery.EntityID != "ord_1" {
		t.Fatalf("unexpected query %+v", gotQuery)
	}
	if gotQuery.From == nil || gotQuery.To == nil {
		t.Fatal("expected from/to filters to be parsed")
	}
	var body auditLogListResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].ID != "aud_1" {
		t.Fatalf("unexpected items %+v", body.Items)
	}
}

func TestAdminListAuditLogsRejectsBadTimestamp(t *testing.T) {
	router := newAdminRouter(nil, nil, nil, nil)

	req := authenticatedRequest(http.MethodGet, "/admin/audit-logs?from=yesterday", "", adminIdentity())
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

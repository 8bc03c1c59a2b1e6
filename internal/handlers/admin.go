package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/platform/httpx"
	"github.com/north-market/api/internal/platform/pagination"
	"github.com/north-market/api/internal/services"
)

const (
	defaultAdminPageLimit = 50
	maxAdminPageLimit     = 200
)

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type updateShippingRequest struct {
	TrackingNumber string  `json:"trackingNumber"`
	Carrier        string  `json:"carrier"`
	Status         *string `json:"status"`
}

type updateRefundAmountRequest struct {
	Amount int64 `json:"amount"`
}

type updateRefundReferenceRequest struct {
	Reference string `json:"reference"`
}

type adjustStockRequest struct {
	Delta int `json:"delta"`
}

// AdminHandlers exposes the administrative order, refund, inventory, and
// audit trail endpoints. Authorisation is enforced by group middleware.
type AdminHandlers struct {
	orders    services.OrderService
	refunds   services.RefundService
	inventory services.InventoryService
	audit     services.AuditLogService
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(orders services.OrderService, refunds services.RefundService, inventory services.InventoryService, audit services.AuditLogService) *AdminHandlers {
	return &AdminHandlers{
		orders:    orders,
		refunds:   refunds,
		inventory: inventory,
		audit:     audit,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
	r.Put("/orders/{orderID}/status", h.updateOrderStatus)
	r.Put("/orders/{orderID}/shipping", h.updateShippingInfo)

	r.Post("/orders/{orderID}/refund", h.processRefund)
	r.Get("/refunds", h.listRefunds)
	r.Get("/refunds/{orderID}", h.getRefund)
	r.Put("/refunds/{orderID}/status", h.updateRefundStatus)
	r.Put("/refunds/{orderID}/amount", h.updateRefundAmount)
	r.Put("/refunds/{orderID}/reference", h.updateRefundReference)

	r.Post("/products/{productID}/stock", h.adjustStock)
	r.Get("/products/low-stock", h.listLowStock)

	r.Get("/audit-logs", h.listAuditLogs)
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultLimit:    defaultAdminPageLimit,
		MaxLimit:        maxAdminPageLimit,
		AllowedStatuses: orderStatusFilterValues,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	statuses := make([]domain.OrderStatus, 0, len(params.Statuses))
	for _, raw := range params.Statuses {
		statuses = append(statuses, domain.OrderStatus(raw))
	}

	orders, err := h.orders.ListOrders(ctx, services.OrderListQuery{
		UserID:   strings.TrimSpace(r.URL.Query().Get("userId")),
		Statuses: statuses,
		Limit:    params.Limit,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildOrderSummary(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Items: items})
}

func (h *AdminHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateOrderStatusRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	status, valid := domain.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !valid {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID: orderID,
		Status:  status,
		ActorID: identity.UserID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) updateShippingInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateShippingRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	cmd := services.UpdateShippingInfoCommand{
		OrderID:        orderID,
		TrackingNumber: strings.TrimSpace(req.TrackingNumber),
		Carrier:        strings.TrimSpace(req.Carrier),
		ActorID:        identity.UserID,
	}
	if req.Status != nil {
		status, valid := domain.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		if !valid {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
			return
		}
		cmd.Status = &status
	}

	order, err := h.orders.UpdateShippingInfo(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) processRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.refunds.ProcessRefund(ctx, services.ProcessRefundCommand{
		OrderID: orderID,
		ActorID: identity.UserID,
	})
	if err != nil {
		writeRefundError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) listRefunds(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultLimit: defaultAdminPageLimit,
		MaxLimit:     maxAdminPageLimit,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	orders, err := h.refunds.ListRefunds(ctx, services.RefundListQuery{Limit: params.Limit})
	if err != nil {
		writeRefundError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(orders))
	for _, order := range orders {
		items = append(items, buildOrderSummary(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Items: items})
}

func (h *AdminHandlers) getRefund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.refunds.GetRefund(ctx, orderID)
	if err != nil {
		writeRefundError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) updateRefundStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateOrderStatusRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	status, valid := domain.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !valid {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	order, err := h.refunds.UpdateRefundStatus(ctx, services.UpdateRefundStatusCommand{
		OrderID: orderID,
		Status:  status,
		ActorID: identity.UserID,
	})
	if err != nil {
		writeRefundError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) updateRefundAmount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateRefundAmountRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.refunds.UpdateRefundAmount(ctx, services.UpdateRefundAmountCommand{
		OrderID: orderID,
		Amount:  req.Amount,
		ActorID: identity.UserID,
	})
	if err != nil {
		writeRefundError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) updateRefundReference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req updateRefundReferenceRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	order, err := h.refunds.UpdateRefundReference(ctx, services.UpdateRefundReferenceCommand{
		OrderID:   orderID,
		Reference: strings.TrimSpace(req.Reference),
		ActorID:   identity.UserID,
	})
	if err != nil {
		writeRefundError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) adjustStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	var req adjustStockRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	product, err := h.inventory.AdjustStock(ctx, services.AdjustStockCommand{
		ProductID: productID,
		Delta:     req.Delta,
		ActorID:   identity.UserID,
	})
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *AdminHandlers) listLowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultLimit: defaultAdminPageLimit,
		MaxLimit:     maxAdminPageLimit,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	products, err := h.inventory.ListLowStock(ctx, params.Limit)
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(products))
	for _, product := range products {
		items = append(items, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{Items: items})
}

func (h *AdminHandlers) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireIdentity(ctx, w); !ok {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultLimit: defaultAdminPageLimit,
		MaxLimit:     maxAdminPageLimit,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.AuditLogQuery{
		EntityType: domain.AuditEntityType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("entityType")))),
		EntityID:   strings.TrimSpace(r.URL.Query().Get("entityId")),
		Action:     strings.TrimSpace(r.URL.Query().Get("action")),
		Limit:      params.Limit,
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		query.From = &ts
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		query.To = &ts
	}

	entries, err := h.audit.List(ctx, query)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("audit_log_error", "failed to list audit logs", http.StatusInternalServerError))
		return
	}

	items := make([]auditLogPayload, 0, len(entries))
	for _, entry := range entries {
		items = append(items, buildAuditLogPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, auditLogListResponse{Items: items})
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type productListResponse struct {
	Items []productPayload `json:"items"`
}

type productPayload struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	SKU               string `json:"sku"`
	Price             int64  `json:"price"`
	SalePrice         *int64 `json:"salePrice,omitempty"`
	Stock             int    `json:"stock"`
	LowStockThreshold int    `json:"lowStockThreshold"`
	LowStock          bool   `json:"lowStock"`
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:                product.ID,
		Name:              product.Name,
		SKU:               product.SKU,
		Price:             product.Price,
		SalePrice:         product.SalePrice,
		Stock:             product.Stock,
		LowStockThreshold: product.LowStockThreshold,
		LowStock:          product.LowStock(),
	}
}

type auditLogListResponse struct {
	Items []auditLogPayload `json:"items"`
}

type auditLogPayload struct {
	ID          string               `json:"id"`
	EntityType  string               `json:"entityType"`
	EntityID    string               `json:"entityId"`
	Action      string               `json:"action"`
	PerformedBy string               `json:"performedBy"`
	ActorType   string               `json:"actorType"`
	Before      domain.AuditSnapshot `json:"before"`
	After       domain.AuditSnapshot `json:"after"`
	CreatedAt   string               `json:"createdAt"`
}

func buildAuditLogPayload(entry domain.AuditLogEntry) auditLogPayload {
	return auditLogPayload{
		ID:          entry.ID,
		EntityType:  string(entry.EntityType),
		EntityID:    entry.EntityID,
		Action:      entry.Action,
		PerformedBy: entry.PerformedBy,
		ActorType:   string(entry.ActorType),
		Before:      entry.Before,
		After:       entry.After,
		CreatedAt:   formatTime(entry.CreatedAt),
	}
}

func writeRefundError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrNoSuccessfulPayment):
		httpx.WriteError(ctx, w, httpx.NewError("refund_no_payment", "order has no successful payment to refund", http.StatusConflict))
	case errors.Is(err, services.ErrRefundInvalidAmount):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "refund amount must not be negative", http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentProvider):
		httpx.WriteError(ctx, w, httpx.NewError("payment_provider_error", "payment provider request failed", http.StatusBadGateway))
	default:
		writeOrderError(ctx, w, err)
	}
}

func writeInventoryError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrStockConflict):
		httpx.WriteError(ctx, w, httpx.NewError("stock_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("inventory_error", "failed to process inventory request", http.StatusInternalServerError))
	}
}

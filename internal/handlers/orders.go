package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/platform/auth"
	"github.com/north-market/api/internal/platform/httpx"
	"github.com/north-market/api/internal/platform/pagination"
	"github.com/north-market/api/internal/services"
)

const (
	defaultOrderPageLimit = 20
	maxOrderPageLimit     = 100
)

var orderStatusFilterValues = []string{
	string(domain.OrderStatusPending),
	string(domain.OrderStatusProcessing),
	string(domain.OrderStatusShipped),
	string(domain.OrderStatusDelivered),
	string(domain.OrderStatusCancelled),
	string(domain.OrderStatusRefundPending),
	string(domain.OrderStatusRefunded),
}

type checkoutRequest struct {
	ShippingAddressID *string `json:"shippingAddressId"`
}

type checkoutResponse struct {
	OrderID         string `json:"orderId"`
	OrderReference  string `json:"orderReference"`
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// OrderHandlers exposes the customer-facing order endpoints.
type OrderHandlers struct {
	orders   services.OrderService
	payments services.PaymentService

	checkoutMiddleware func(http.Handler) http.Handler
}

// OrderHandlersOption customises OrderHandlers construction.
type OrderHandlersOption func(*OrderHandlers)

// WithCheckoutMiddleware wraps the checkout endpoint, typically with idempotency enforcement.
func WithCheckoutMiddleware(mw func(http.Handler) http.Handler) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.checkoutMiddleware = mw
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService, payments services.PaymentService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{
		orders:   orders,
		payments: payments,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.checkoutMiddleware != nil {
		r.With(h.checkoutMiddleware).Post("/checkout", h.checkout)
	} else {
		r.Post("/checkout", h.checkout)
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
	r.Post("/{orderID}/payment-intent", h.createPaymentIntent)
}

func (h *OrderHandlers) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req checkoutRequest
	body, err := readLimitedBody(r, defaultMaxBodySize)
	if err != nil && !errors.Is(err, errEmptyBody) {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	}

	order, err := h.orders.CreateOrder(ctx, services.CreateOrderCommand{
		UserID:            identity.UserID,
		ShippingAddressID: req.ShippingAddressID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	intent, err := h.payments.CreateIntent(ctx, services.CreateIntentCommand{
		OrderID: order.ID,
		UserID:  identity.UserID,
	})
	if err != nil {
		// The order was created and remains payable; surface its id so the
		// client can retry the payment intent.
		httpx.WriteError(ctx, w, httpx.NewError("payment_provider_error", "order created but payment intent failed", http.StatusBadGateway).
			WithDetails(map[string]any{"orderId": order.ID}))
		return
	}

	writeJSONResponse(w, http.StatusCreated, checkoutResponse{
		OrderID:         order.ID,
		OrderReference:  order.Reference,
		PaymentIntentID: intent.IntentID,
		ClientSecret:    intent.ClientSecret,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
	})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultLimit:    defaultOrderPageLimit,
		MaxLimit:        maxOrderPageLimit,
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
		UserID:   identity.UserID,
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

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	order, ok := h.loadOwnedOrder(ctx, w, r, identity)
	if !ok {
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
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

	cancelled, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		OrderID: orderID,
		UserID:  identity.UserID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(cancelled)})
}

func (h *OrderHandlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
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

	intent, err := h.payments.CreateIntent(ctx, services.CreateIntentCommand{
		OrderID: orderID,
		UserID:  identity.UserID,
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, paymentIntentResponse{
		PaymentID:       intent.PaymentID,
		PaymentIntentID: intent.IntentID,
		ClientSecret:    intent.ClientSecret,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
	})
}

func (h *OrderHandlers) loadOwnedOrder(ctx context.Context, w http.ResponseWriter, r *http.Request, identity auth.Identity) (domain.Order, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return domain.Order{}, false
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return domain.Order{}, false
	}

	// Admins may read any order; foreign orders read as missing rather
	// than forbidden for everyone else.
	if identity.IsAdmin() {
		return order, true
	}
	if !strings.EqualFold(strings.TrimSpace(order.UserID), strings.TrimSpace(identity.UserID)) {
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		return domain.Order{}, false
	}
	return order, true
}

type paymentIntentResponse struct {
	PaymentID       string `json:"paymentId"`
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type orderListResponse struct {
	Items []orderSummaryPayload `json:"items"`
}

type orderSummaryPayload struct {
	ID        string `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Currency  string `json:"currency"`
	Total     int64  `json:"total"`
	CreatedAt string `json:"createdAt"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID                string                `json:"id"`
	Reference         string                `json:"reference"`
	UserID            string                `json:"userId"`
	Status            string                `json:"status"`
	Total             int64                 `json:"total"`
	Currency          string                `json:"currency"`
	ShippingAddressID string                `json:"shippingAddressId,omitempty"`
	TrackingNumber    string                `json:"trackingNumber,omitempty"`
	ShippingCarrier   string                `json:"shippingCarrier,omitempty"`
	Items             []orderItemPayload    `json:"items"`
	Payments          []orderPaymentPayload `json:"payments,omitempty"`
	CreatedAt         string                `json:"createdAt"`
	UpdatedAt         string                `json:"updatedAt,omitempty"`
	ShippedAt         string                `json:"shippedAt,omitempty"`
	DeliveredAt       string                `json:"deliveredAt,omitempty"`
	CancelledAt       string                `json:"cancelledAt,omitempty"`
	RefundedAt        string                `json:"refundedAt,omitempty"`
}

type orderItemPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type orderPaymentPayload struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	ProviderRef string `json:"providerRef,omitempty"`
	Status      string `json:"status"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	PaidAt      string `json:"paidAt,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

func buildOrderSummary(order domain.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:        order.ID,
		Reference: order.Reference,
		Status:    string(order.Status),
		Currency:  strings.ToUpper(order.Currency),
		Total:     order.Total,
		CreatedAt: formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:                order.ID,
		Reference:         order.Reference,
		UserID:            order.UserID,
		Status:            string(order.Status),
		Total:             order.Total,
		Currency:          strings.ToUpper(order.Currency),
		ShippingAddressID: derefString(order.ShippingAddressID),
		TrackingNumber:    derefString(order.TrackingNumber),
		ShippingCarrier:   derefString(order.ShippingCarrier),
		Items:             make([]orderItemPayload, 0, len(order.Items)),
		CreatedAt:         formatTime(order.CreatedAt),
		UpdatedAt:         formatTime(order.UpdatedAt),
		ShippedAt:         formatTimePtr(order.ShippedAt),
		DeliveredAt:       formatTimePtr(order.DeliveredAt),
		CancelledAt:       formatTimePtr(order.CancelledAt),
		RefundedAt:        formatTimePtr(order.RefundAt),
	}

	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	for _, payment := range order.Payments {
		payload.Payments = append(payload.Payments, orderPaymentPayload{
			ID:          payment.ID,
			Provider:    string(payment.Provider),
			ProviderRef: payment.ProviderRef,
			Status:      string(payment.Status),
			Amount:      payment.Amount,
			Currency:    strings.ToUpper(payment.Currency),
			PaidAt:      formatTimePtr(payment.PaidAt),
			CreatedAt:   formatTime(payment.CreatedAt),
		})
	}

	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartEmpty):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusBadRequest))
	case errors.Is(err, services.ErrAddressInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_address", "shipping address is invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func writePaymentError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPaymentProvider):
		httpx.WriteError(ctx, w, httpx.NewError("payment_provider_error", "payment provider request failed", http.StatusBadGateway))
	case errors.Is(err, services.ErrPaymentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_found", "payment not found", http.StatusNotFound))
	default:
		writeOrderError(ctx, w, err)
	}
}

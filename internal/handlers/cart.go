package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/platform/httpx"
	"github.com/north-market/api/internal/services"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartHandlers exposes the per-user cart endpoints.
type CartHandlers struct {
	cart services.CartService
}

// NewCartHandlers constructs a new CartHandlers instance.
func NewCartHandlers(cart services.CartService) *CartHandlers {
	return &CartHandlers{cart: cart}
}

// Routes registers the /cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Post("/items", h.addItem)
	r.Put("/items/{productID}", h.updateItem)
	r.Delete("/items/{productID}", h.removeItem)
	r.Delete("/", h.clearCart)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	cart, err := h.cart.GetCart(ctx, identity.UserID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	var req cartItemRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	cart, err := h.cart.AddItem(ctx, services.CartItemCommand{
		UserID:    identity.UserID,
		ProductID: strings.TrimSpace(req.ProductID),
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
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

	var req cartQuantityRequest
	if !decodeJSONBody(ctx, w, r, &req) {
		return
	}

	cart, err := h.cart.UpdateItemQuantity(ctx, services.CartItemCommand{
		UserID:    identity.UserID,
		ProductID: productID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
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

	cart, err := h.cart.RemoveItem(ctx, identity.UserID, productID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cartResponse{Cart: buildCartPayload(cart)})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	if err := h.cart.ClearCart(ctx, identity.UserID); err != nil {
		writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Items     []cartItemPayload `json:"items"`
	CreatedAt string            `json:"createdAt"`
	UpdatedAt string            `json:"updatedAt,omitempty"`
}

type cartItemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func buildCartPayload(cart domain.Cart) cartPayload {
	payload := cartPayload{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     make([]cartItemPayload, 0, len(cart.Items)),
		CreatedAt: formatTime(cart.CreatedAt),
		UpdatedAt: formatTime(cart.UpdatedAt),
	}
	for _, item := range cart.Items {
		payload.Items = append(payload.Items, cartItemPayload{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UpdatedAt: formatTime(item.UpdatedAt),
		})
	}
	return payload
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartProductUnknown):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_item_not_found", "cart item not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to process cart request", http.StatusInternalServerError))
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/repositories"
)

var (
	// ErrCartInvalidInput signals the caller provided invalid cart data.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartItemNotFound indicates the cart does not contain the product.
	ErrCartItemNotFound = errors.New("cart: item not found")
	// ErrCartProductUnknown indicates the referenced product does not exist.
	ErrCartProductUnknown = errors.New("cart: unknown product")
)

// CartServiceDeps bundles collaborators required to construct the cart service.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
}

// NewCartService wires dependencies into a concrete CartService implementation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("cart service: product repository is required")
	}
	return &cartService{carts: deps.Carts, products: deps.Products}, nil
}

func (s *cartService) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	return s.carts.GetOrCreate(ctx, userID)
}

func (s *cartService) AddItem(ctx context.Context, cmd CartItemCommand) (domain.Cart, error) {
	if err := validateCartItemCommand(cmd); err != nil {
		return domain.Cart{}, err
	}

	if _, err := s.products.FindByID(ctx, cmd.ProductID); err != nil {
		if isNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartProductUnknown, cmd.ProductID)
		}
		return domain.Cart{}, err
	}

	cart, err := s.carts.GetOrCreate(ctx, cmd.UserID)
	if err != nil {
		return domain.Cart{}, err
	}

	// Adding an existing product accumulates quantity rather than replacing it.
	quantity := cmd.Quantity
	for _, item := range cart.Items {
		if item.ProductID == cmd.ProductID {
			quantity += item.Quantity
			break
		}
	}

	return s.carts.UpsertItem(ctx, cart.ID, domain.CartItem{ProductID: cmd.ProductID, Quantity: quantity})
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd CartItemCommand) (domain.Cart, error) {
	if err := validateCartItemCommand(cmd); err != nil {
		return domain.Cart{}, err
	}

	cart, err := s.carts.FindByUser(ctx, cmd.UserID)
	if err != nil {
		if isNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, cmd.ProductID)
		}
		return domain.Cart{}, err
	}

	found := false
	for _, item := range cart.Items {
		if item.ProductID == cmd.ProductID {
			found = true
			break
		}
	}
	if !found {
		return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, cmd.ProductID)
	}

	return s.carts.UpsertItem(ctx, cart.ID, domain.CartItem{ProductID: cmd.ProductID, Quantity: cmd.Quantity})
}

func (s *cartService) RemoveItem(ctx context.Context, userID string, productID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	productID = strings.TrimSpace(productID)
	if userID == "" || productID == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id and product id are required", ErrCartInvalidInput)
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
		}
		return domain.Cart{}, err
	}

	updated, err := s.carts.RemoveItem(ctx, cart.ID, productID)
	if err != nil {
		if isNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
		}
		return domain.Cart{}, err
	}
	return updated, nil
}

func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			// Nothing to clear.
			return nil
		}
		return err
	}

	return s.carts.ClearItems(ctx, cart.ID)
}

func validateCartItemCommand(cmd CartItemCommand) error {
	if strings.TrimSpace(cmd.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrCartInvalidInput)
	}
	return nil
}

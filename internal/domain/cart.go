package domain

import "time"

// Cart is the per-customer mutable aggregate holding line items until
// checkout. One cart per user, created lazily on first access and emptied
// (never deleted) at successful checkout.
type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a product reference plus quantity, unique per (cart, product).
type CartItem struct {
	ID        string
	CartID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Address is a customer shipping/billing address owned by a user. Ownership
// is checked before an address may be attached to an order.
type Address struct {
	ID         string
	UserID     string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	CreatedAt  time.Time
}

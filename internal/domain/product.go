package domain

import "time"

// Product carries the inventory-ledger fields of a catalog product. Amounts
// are minor units. Stock never goes negative; every decrement is validated
// against available stock inside the same transaction that applies it.
type Product struct {
	ID                string
	Name              string
	SKU               string
	Price             int64
	SalePrice         *int64
	Stock             int
	LowStockThreshold int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EffectivePrice returns the sale price when set, else the list price.
func (p Product) EffectivePrice() int64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// LowStock reports whether the product is at or below its restock threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.LowStockThreshold
}

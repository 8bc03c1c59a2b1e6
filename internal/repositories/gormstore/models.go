package gormstore

import (
	"encoding/json"
	"time"

	domain "github.com/north-market/api/internal/domain"
)

type productModel struct {
	ID                string `gorm:"primaryKey;size:40"`
	Name              string `gorm:"size:255;not null"`
	SKU               string `gorm:"size:64;uniqueIndex"`
	Price             int64  `gorm:"not null"`
	SalePrice         *int64
	Stock             int `gorm:"not null;default:0"`
	LowStockThreshold int `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (productModel) TableName() string { return "products" }

type addressModel struct {
	ID         string `gorm:"primaryKey;size:40"`
	UserID     string `gorm:"size:40;index;not null"`
	Street     string `gorm:"size:255"`
	City       string `gorm:"size:120"`
	State      string `gorm:"size:120"`
	PostalCode string `gorm:"size:32"`
	Country    string `gorm:"size:64"`
	CreatedAt  time.Time
}

func (addressModel) TableName() string { return "addresses" }

type cartModel struct {
	ID        string          `gorm:"primaryKey;size:40"`
	UserID    string          `gorm:"size:40;uniqueIndex;not null"`
	Items     []cartItemModel `gorm:"foreignKey:CartID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (cartModel) TableName() string { return "carts" }

type cartItemModel struct {
	ID        string `gorm:"primaryKey;size:40"`
	CartID    string `gorm:"size:40;not null;uniqueIndex:idx_cart_product"`
	ProductID string `gorm:"size:40;not null;uniqueIndex:idx_cart_product"`
	Quantity  int    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (cartItemModel) TableName() string { return "cart_items" }

type orderModel struct {
	ID                string `gorm:"primaryKey;size:40"`
	Reference         string `gorm:"size:32;uniqueIndex;not null"`
	UserID            string `gorm:"size:40;index;not null"`
	Status            string `gorm:"size:20;index;not null"`
	Total             int64  `gorm:"not null"`
	Currency          string `gorm:"size:3;not null"`
	ShippingAddressID *string
	TrackingNumber    *string          `gorm:"size:64"`
	ShippingCarrier   *string          `gorm:"size:64"`
	Items             []orderItemModel `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time        `gorm:"index"`
	UpdatedAt         time.Time
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	RefundAt          *time.Time
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID        string `gorm:"primaryKey;size:40"`
	OrderID   string `gorm:"size:40;index;not null"`
	ProductID string `gorm:"size:40;not null"`
	Quantity  int    `gorm:"not null"`
	UnitPrice int64  `gorm:"not null"`
}

func (orderItemModel) TableName() string { return "order_items" }

type paymentModel struct {
	ID          string `gorm:"primaryKey;size:40"`
	OrderID     string `gorm:"size:40;index;not null"`
	Provider    string `gorm:"size:20;not null;uniqueIndex:idx_provider_ref"`
	ProviderRef string `gorm:"size:128;not null;uniqueIndex:idx_provider_ref"`
	Amount      int64  `gorm:"not null"`
	Currency    string `gorm:"size:3;not null"`
	Status      string `gorm:"size:20;index;not null"`
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (paymentModel) TableName() string { return "payments" }

type auditLogModel struct {
	ID          string    `gorm:"primaryKey;size:40"`
	EntityType  string    `gorm:"size:20;index:idx_entity;not null"`
	EntityID    string    `gorm:"size:40;index:idx_entity;not null"`
	Action      string    `gorm:"size:64;index;not null"`
	PerformedBy string    `gorm:"size:64;not null"`
	ActorType   string    `gorm:"size:20;not null"`
	Before      []byte    `gorm:"type:json"`
	After       []byte    `gorm:"type:json"`
	CreatedAt   time.Time `gorm:"index"`
}

func (auditLogModel) TableName() string { return "audit_logs" }

func toProductDomain(m productModel) domain.Product {
	return domain.Product{
		ID:                m.ID,
		Name:              m.Name,
		SKU:               m.SKU,
		Price:             m.Price,
		SalePrice:         m.SalePrice,
		Stock:             m.Stock,
		LowStockThreshold: m.LowStockThreshold,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func toAddressDomain(m addressModel) domain.Address {
	return domain.Address{
		ID:         m.ID,
		UserID:     m.UserID,
		Street:     m.Street,
		City:       m.City,
		State:      m.State,
		PostalCode: m.PostalCode,
		Country:    m.Country,
		CreatedAt:  m.CreatedAt,
	}
}

func toCartDomain(m cartModel) domain.Cart {
	items := make([]domain.CartItem, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, domain.CartItem{
			ID:        item.ID,
			CartID:    item.CartID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	return domain.Cart{
		ID:        m.ID,
		UserID:    m.UserID,
		Items:     items,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toOrderModel(o domain.Order) orderModel {
	items := make([]orderItemModel, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemModel{
			ID:        item.ID,
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return orderModel{
		ID:                o.ID,
		Reference:         o.Reference,
		UserID:            o.UserID,
		Status:            string(o.Status),
		Total:             o.Total,
		Currency:          o.Currency,
		ShippingAddressID: o.ShippingAddressID,
		TrackingNumber:    o.TrackingNumber,
		ShippingCarrier:   o.ShippingCarrier,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		ShippedAt:         o.ShippedAt,
		DeliveredAt:       o.DeliveredAt,
		CancelledAt:       o.CancelledAt,
		RefundAt:          o.RefundAt,
	}
}

func toOrderDomain(m orderModel) domain.Order {
	items := make([]domain.OrderItem, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, domain.OrderItem{
			ID:        item.ID,
			OrderID:   item.OrderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return domain.Order{
		ID:                m.ID,
		Reference:         m.Reference,
		UserID:            m.UserID,
		Status:            domain.OrderStatus(m.Status),
		Total:             m.Total,
		Currency:          m.Currency,
		ShippingAddressID: m.ShippingAddressID,
		TrackingNumber:    m.TrackingNumber,
		ShippingCarrier:   m.ShippingCarrier,
		Items:             items,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
		RefundAt:          m.RefundAt,
	}
}

func toPaymentModel(p domain.Payment) paymentModel {
	return paymentModel{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Provider:    string(p.Provider),
		ProviderRef: p.ProviderRef,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      string(p.Status),
		PaidAt:      p.PaidAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toPaymentDomain(m paymentModel) domain.Payment {
	return domain.Payment{
		ID:          m.ID,
		OrderID:     m.OrderID,
		Provider:    domain.PaymentProvider(m.Provider),
		ProviderRef: m.ProviderRef,
		Amount:      m.Amount,
		Currency:    m.Currency,
		Status:      domain.PaymentStatus(m.Status),
		PaidAt:      m.PaidAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toAuditLogModel(e domain.AuditLogEntry) (auditLogModel, error) {
	before, err := json.Marshal(e.Before)
	if err != nil {
		return auditLogModel{}, err
	}
	after, err := json.Marshal(e.After)
	if err != nil {
		return auditLogModel{}, err
	}
	return auditLogModel{
		ID:          e.ID,
		EntityType:  string(e.EntityType),
		EntityID:    e.EntityID,
		Action:      e.Action,
		PerformedBy: e.PerformedBy,
		ActorType:   string(e.ActorType),
		Before:      before,
		After:       after,
		CreatedAt:   e.CreatedAt,
	}, nil
}

func toAuditLogDomain(m auditLogModel) domain.AuditLogEntry {
	entry := domain.AuditLogEntry{
		ID:          m.ID,
		EntityType:  domain.AuditEntityType(m.EntityType),
		EntityID:    m.EntityID,
		Action:      m.Action,
		PerformedBy: m.PerformedBy,
		ActorType:   domain.AuditActorType(m.ActorType),
		CreatedAt:   m.CreatedAt,
	}
	if len(m.Before) > 0 {
		_ = json.Unmarshal(m.Before, &entry.Before)
	}
	if len(m.After) > 0 {
		_ = json.Unmarshal(m.After, &entry.After)
	}
	return entry
}

package gormstore

import (
	"context"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/repositories"
)

type orderRepository struct {
	reg *Registry
}

func (r *orderRepository) Insert(ctx context.Context, order domain.Order) error {
	const op = "gormstore.orders.insert"

	m := toOrderModel(order)
	if err := r.reg.conn(ctx).Create(&m).Error; err != nil {
		return translateError(op, err)
	}
	return nil
}

func (r *orderRepository) Update(ctx context.Context, order domain.Order) error {
	const op = "gormstore.orders.update"

	m := toOrderModel(order)
	// Items are frozen at creation; updates only touch the order header.
	result := r.reg.conn(ctx).Model(&orderModel{}).
		Where("id = ?", m.ID).
		Select("Status", "Total", "Reference", "TrackingNumber", "ShippingCarrier",
			"UpdatedAt", "ShippedAt", "DeliveredAt", "CancelledAt", "RefundAt").
		Updates(&m)
	if result.Error != nil {
		return translateError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundError(op, "order not found")
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	const op = "gormstore.orders.find"

	var m orderModel
	if err := r.reg.conn(ctx).Preload("Items").First(&m, "id = ?", orderID).Error; err != nil {
		return domain.Order{}, translateError(op, err)
	}
	return toOrderDomain(m), nil
}

func (r *orderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	const op = "gormstore.orders.list"

	query := r.reg.conn(ctx).Preload("Items").Order("created_at DESC")
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []orderModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError(op, err)
	}
	orders := make([]domain.Order, 0, len(rows))
	for _, m := range rows {
		orders = append(orders, toOrderDomain(m))
	}
	return orders, nil
}

package gormstore

import (
	"context"

	domain "github.com/north-market/api/internal/domain"
)

type paymentRepository struct {
	reg *Registry
}

func (r *paymentRepository) Insert(ctx context.Context, payment domain.Payment) error {
	const op = "gormstore.payments.insert"

	m := toPaymentModel(payment)
	if err := r.reg.conn(ctx).Create(&m).Error; err != nil {
		return translateError(op, err)
	}
	return nil
}

func (r *paymentRepository) Update(ctx context.Context, payment domain.Payment) error {
	const op = "gormstore.payments.update"

	m := toPaymentModel(payment)
	result := r.reg.conn(ctx).Model(&paymentModel{}).
		Where("id = ?", m.ID).
		Select("Status", "PaidAt", "Amount", "ProviderRef", "UpdatedAt").
		Updates(&m)
	if result.Error != nil {
		return translateError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundError(op, "payment not found")
	}
	return nil
}

func (r *paymentRepository) FindByProviderRef(ctx context.Context, provider domain.PaymentProvider, providerRef string) (domain.Payment, error) {
	const op = "gormstore.payments.find_by_provider_ref"

	var m paymentModel
	err := r.reg.conn(ctx).
		First(&m, "provider = ? AND provider_ref = ?", string(provider), providerRef).Error
	if err != nil {
		return domain.Payment{}, translateError(op, err)
	}
	return toPaymentDomain(m), nil
}

func (r *paymentRepository) FindSucceeded(ctx context.Context, orderID string, provider domain.PaymentProvider) (domain.Payment, error) {
	const op = "gormstore.payments.find_succeeded"

	var m paymentModel
	err := r.reg.conn(ctx).
		Where("order_id = ? AND provider = ? AND status = ?", orderID, string(provider), string(domain.PaymentStatusSucceeded)).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		return domain.Payment{}, translateError(op, err)
	}
	return toPaymentDomain(m), nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	const op = "gormstore.payments.list_by_order"

	var rows []paymentModel
	err := r.reg.conn(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(op, err)
	}
	payments := make([]domain.Payment, 0, len(rows))
	for _, m := range rows {
		payments = append(payments, toPaymentDomain(m))
	}
	return payments, nil
}

package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/north-market/api/internal/domain"
)

type productRepository struct {
	reg *Registry
}

func (r *productRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	const op = "gormstore.products.find"

	var m productModel
	if err := r.reg.conn(ctx).First(&m, "id = ?", productID).Error; err != nil {
		return domain.Product{}, translateError(op, err)
	}
	return toProductDomain(m), nil
}

func (r *productRepository) FindForUpdate(ctx context.Context, productIDs []string) ([]domain.Product, error) {
	const op = "gormstore.products.find_for_update"

	if len(productIDs) == 0 {
		return nil, nil
	}
	var rows []productModel
	err := r.reg.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", productIDs).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(op, err)
	}
	products := make([]domain.Product, 0, len(rows))
	for _, m := range rows {
		products = append(products, toProductDomain(m))
	}
	return products, nil
}

func (r *productRepository) AdjustStock(ctx context.Context, productID string, delta int) (domain.Product, error) {
	const op = "gormstore.products.adjust_stock"

	db := r.reg.conn(ctx)
	result := db.Model(&productModel{}).
		Where("id = ? AND stock + ? >= 0", productID, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return domain.Product{}, translateError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing product from a would-be-negative balance.
		var m productModel
		if err := db.First(&m, "id = ?", productID).Error; err != nil {
			return domain.Product{}, translateError(op, err)
		}
		return domain.Product{}, conflictError(op, fmt.Sprintf("stock for product %s cannot drop below zero", productID))
	}

	var m productModel
	if err := db.First(&m, "id = ?", productID).Error; err != nil {
		return domain.Product{}, translateError(op, err)
	}
	return toProductDomain(m), nil
}

func (r *productRepository) ListLowStock(ctx context.Context, limit int) ([]domain.Product, error) {
	const op = "gormstore.products.list_low_stock"

	query := r.reg.conn(ctx).
		Where("stock <= low_stock_threshold").
		Order("stock ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []productModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError(op, err)
	}
	products := make([]domain.Product, 0, len(rows))
	for _, m := range rows {
		products = append(products, toProductDomain(m))
	}
	return products, nil
}

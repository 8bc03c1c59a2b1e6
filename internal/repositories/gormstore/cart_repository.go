package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/north-market/api/internal/domain"
)

type cartRepository struct {
	reg *Registry
}

func (r *cartRepository) GetOrCreate(ctx context.Context, userID string) (domain.Cart, error) {
	const op = "gormstore.carts.get_or_create"

	db := r.reg.conn(ctx)
	var m cartModel
	err := db.Preload("Items").First(&m, "user_id = ?", userID).Error
	if err == nil {
		return toCartDomain(m), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Cart{}, translateError(op, err)
	}

	now := time.Now().UTC()
	m = cartModel{
		ID:        "crt_" + r.reg.newID(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	// A concurrent create for the same user loses on the unique user index;
	// fall back to reading the winner.
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return domain.Cart{}, translateError(op, err)
	}
	if err := db.Preload("Items").First(&m, "user_id = ?", userID).Error; err != nil {
		return domain.Cart{}, translateError(op, err)
	}
	return toCartDomain(m), nil
}

func (r *cartRepository) FindByUser(ctx context.Context, userID string) (domain.Cart, error) {
	const op = "gormstore.carts.find_by_user"

	var m cartModel
	if err := r.reg.conn(ctx).Preload("Items").First(&m, "user_id = ?", userID).Error; err != nil {
		return domain.Cart{}, translateError(op, err)
	}
	return toCartDomain(m), nil
}

func (r *cartRepository) UpsertItem(ctx context.Context, cartID string, item domain.CartItem) (domain.Cart, error) {
	const op = "gormstore.carts.upsert_item"

	db := r.reg.conn(ctx)
	now := time.Now().UTC()
	row := cartItemModel{
		ID:        "cti_" + r.reg.newID(),
		CartID:    cartID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": item.Quantity, "updated_at": now}),
	}).Create(&row).Error
	if err != nil {
		return domain.Cart{}, translateError(op, err)
	}
	if err := db.Model(&cartModel{}).Where("id = ?", cartID).Update("updated_at", now).Error; err != nil {
		return domain.Cart{}, translateError(op, err)
	}
	return r.findByID(ctx, op, cartID)
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID string, productID string) (domain.Cart, error) {
	const op = "gormstore.carts.remove_item"

	db := r.reg.conn(ctx)
	result := db.Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&cartItemModel{})
	if result.Error != nil {
		return domain.Cart{}, translateError(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.Cart{}, notFoundError(op, "cart item not found")
	}
	return r.findByID(ctx, op, cartID)
}

func (r *cartRepository) ClearItems(ctx context.Context, cartID string) error {
	const op = "gormstore.carts.clear_items"

	if err := r.reg.conn(ctx).Where("cart_id = ?", cartID).Delete(&cartItemModel{}).Error; err != nil {
		return translateError(op, err)
	}
	return nil
}

func (r *cartRepository) findByID(ctx context.Context, op string, cartID string) (domain.Cart, error) {
	var m cartModel
	if err := r.reg.conn(ctx).Preload("Items").First(&m, "id = ?", cartID).Error; err != nil {
		return domain.Cart{}, translateError(op, err)
	}
	return toCartDomain(m), nil
}

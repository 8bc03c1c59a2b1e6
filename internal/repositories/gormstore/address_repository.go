package gormstore

import (
	"context"

	domain "github.com/north-market/api/internal/domain"
)

type addressRepository struct {
	reg *Registry
}

func (r *addressRepository) FindByID(ctx context.Context, addressID string) (domain.Address, error) {
	const op = "gormstore.addresses.find"

	var m addressModel
	if err := r.reg.conn(ctx).First(&m, "id = ?", addressID).Error; err != nil {
		return domain.Address{}, translateError(op, err)
	}
	return toAddressDomain(m), nil
}

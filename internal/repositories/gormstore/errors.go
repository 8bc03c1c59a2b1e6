package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/north-market/api/internal/repositories"
)

// translateError maps GORM failures onto the categorised store error the
// services dispatch on. TranslateError is enabled on the dialector, so
// driver-level duplicate key errors arrive as gorm.ErrDuplicatedKey.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repositories.NewStoreError(op, repositories.ErrorNotFound, "record not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repositories.NewStoreError(op, repositories.ErrorConflict, "duplicate key", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return repositories.NewStoreError(op, repositories.ErrorConflict, "foreign key violated", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return repositories.NewStoreError(op, repositories.ErrorUnavailable, "store request aborted", err)
	default:
		return repositories.NewStoreError(op, repositories.ErrorUnknown, err.Error(), err)
	}
}

func notFoundError(op string, message string) error {
	return repositories.NewStoreError(op, repositories.ErrorNotFound, message, nil)
}

func conflictError(op string, message string) error {
	return repositories.NewStoreError(op, repositories.ErrorConflict, message, nil)
}

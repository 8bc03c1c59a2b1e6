package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/repositories"
)

var (
	// ErrProductNotFound indicates the product could not be located.
	ErrProductNotFound = errors.New("inventory: product not found")
	// ErrStockConflict indicates the adjustment would drive stock below zero.
	ErrStockConflict = errors.New("inventory: stock conflict")
)

// InventoryServiceDeps bundles collaborators required to construct the inventory service.
type InventoryServiceDeps struct {
	Products    repositories.ProductRepository
	AuditLogs   repositories.AuditLogRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
}

type inventoryService struct {
	products   repositories.ProductRepository
	audits     repositories.AuditLogRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
}

// NewInventoryService wires dependencies into a concrete InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Products == nil {
		return nil, errors.New("inventory service: product repository is required")
	}
	if deps.AuditLogs == nil {
		return nil, errors.New("inventory service: audit log repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	return &inventoryService{
		products:   deps.Products,
		audits:     deps.AuditLogs,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *inventoryService) AdjustStock(ctx context.Context, cmd AdjustStockCommand) (domain.Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrOrderInvalidInput)
	}
	if cmd.Delta == 0 {
		return domain.Product{}, fmt.Errorf("%w: delta must not be zero", ErrOrderInvalidInput)
	}

	var updated domain.Product
	err := s.runInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.products.FindForUpdate(txCtx, []string{productID})
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if len(locked) == 0 {
			return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		before := locked[0]

		updated, err = s.products.AdjustStock(txCtx, productID, cmd.Delta)
		if err != nil {
			return s.mapRepositoryError(err)
		}

		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityProduct,
			EntityID:    productID,
			Action:      "stock.adjusted",
			PerformedBy: strings.TrimSpace(cmd.ActorID),
			ActorType:   domain.AuditActorAdmin,
			Before:      domain.AuditSnapshot{Product: &domain.ProductAuditSnapshot{Stock: before.Stock}},
			After:       domain.AuditSnapshot{Product: &domain.ProductAuditSnapshot{Stock: updated.Stock}},
		})
	})
	if err != nil {
		return domain.Product{}, err
	}

	return updated, nil
}

func (s *inventoryService) ListLowStock(ctx context.Context, limit int) ([]domain.Product, error) {
	products, err := s.products.ListLowStock(ctx, limit)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return products, nil
}

func (s *inventoryService) appendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	entry.ID = auditIDPrefix + s.newID()
	entry.CreatedAt = s.clock()
	if entry.PerformedBy == "" {
		entry.PerformedBy = string(entry.ActorType)
	}
	if err := s.audits.Append(ctx, entry); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *inventoryService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrProductNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrStockConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("inventory: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *inventoryService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

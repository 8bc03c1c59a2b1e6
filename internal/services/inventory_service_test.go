package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/north-market/api/internal/domain"
)

func testInventoryService(t *testing.T, deps InventoryServiceDeps) InventoryService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = fixedClock(time.Date(2025, 5, 4, 8, 0, 0, 0, time.UTC))
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "000TEST" }
	}
	if deps.AuditLogs == nil {
		deps.AuditLogs = &captureAuditRepo{}
	}
	svc, err := NewInventoryService(deps)
	if err != nil {
		t.Fatalf("new inventory service: %v", err)
	}
	return svc
}

func TestInventoryServiceAdjustStock(t *testing.T) {
	audits := &captureAuditRepo{}
	productRepo := &stubProductRepo{
		findForUpdate: func(_ context.Context, ids []string) ([]domain.Product, error) {
			return []domain.Product{{ID: ids[0], Stock: 5}}, nil
		},
		adjustFn: func(_ context.Context, id string, delta int) (domain.Product, error) {
			return domain.Product{ID: id, Stock: 5 + delta}, nil
		},
	}

	svc := testInventoryService(t, InventoryServiceDeps{Products: productRepo, AuditLogs: audits})

	product, err := svc.AdjustStock(context.Background(), AdjustStockCommand{ProductID: "prd_a", Delta: 7, ActorID: "adm_1"})
	if err != nil {
		t.Fatalf("AdjustStock returned error: %v", err)
	}
	if product.Stock != 12 {
		t.Fatalf("expected stock 12, got %d", product.Stock)
	}

	if len(audits.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(audits.entries))
	}
	entry := audits.entries[0]
	if entry.EntityType != domain.AuditEntityProduct || entry.Action != "stock.adjusted" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.Before.Product == nil || entry.Before.Product.Stock != 5 {
		t.Fatalf("expected before stock 5, got %+v", entry.Before)
	}
	if entry.After.Product == nil || entry.After.Product.Stock != 12 {
		t.Fatalf("expected after stock 12, got %+v", entry.After)
	}
}

func TestInventoryServiceAdjustStockRejectsZeroDelta(t *testing.T) {
	svc := testInventoryService(t, InventoryServiceDeps{Products: &stubProductRepo{}})

	if _, err := svc.AdjustStock(context.Background(), AdjustStockCommand{ProductID: "prd_a", Delta: 0}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestInventoryServiceAdjustStockConflict(t *testing.T) {
	productRepo := &stubProductRepo{
		findForUpdate: func(_ context.Context, ids []string) ([]domain.Product, error) {
			return []domain.Product{{ID: ids[0], Stock: 1}}, nil
		},
		adjustFn: func(context.Context, string, int) (domain.Product, error) {
			return domain.Product{}, &storeError{conflict: true}
		},
	}
	svc := testInventoryService(t, InventoryServiceDeps{Products: productRepo})

	if _, err := svc.AdjustStock(context.Background(), AdjustStockCommand{ProductID: "prd_a", Delta: -5}); !errors.Is(err, ErrStockConflict) {
		t.Fatalf("expected ErrStockConflict, got %v", err)
	}
}

func TestInventoryServiceAdjustStockUnknownProduct(t *testing.T) {
	productRepo := &stubProductRepo{
		findForUpdate: func(context.Context, []string) ([]domain.Product, error) {
			return nil, nil
		},
	}
	svc := testInventoryService(t, InventoryServiceDeps{Products: productRepo})

	if _, err := svc.AdjustStock(context.Background(), AdjustStockCommand{ProductID: "prd_missing", Delta: 1}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestInventoryServiceListLowStock(t *testing.T) {
	productRepo := &stubProductRepo{
		listLowStockFn: func(_ context.Context, limit int) ([]domain.Product, error) {
			if limit != 10 {
				t.Fatalf("expected limit 10, got %d", limit)
			}
			return []domain.Product{{ID: "prd_a", Stock: 1, LowStockThreshold: 3}}, nil
		},
	}
	svc := testInventoryService(t, InventoryServiceDeps{Products: productRepo})

	products, err := svc.ListLowStock(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListLowStock returned error: %v", err)
	}
	if len(products) != 1 || products[0].ID != "prd_a" {
		t.Fatalf("unexpected products: %+v", products)
	}
}

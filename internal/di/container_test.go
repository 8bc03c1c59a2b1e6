package di

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/payments"
	"github.com/north-market/api/internal/platform/config"
	"github.com/north-market/api/internal/platform/requestctx"
	"github.com/north-market/api/internal/repositories"
)

type stubProductRepo struct{}

func (stubProductRepo) FindByID(context.Context, string) (domain.Product, error) {
	return domain.Product{}, nil
}

func (stubProductRepo) FindForUpdate(context.Context, []string) ([]domain.Product, error) {
	return nil, nil
}

func (stubProductRepo) AdjustStock(context.Context, string, int) (domain.Product, error) {
	return domain.Product{}, nil
}

func (stubProductRepo) ListLowStock(context.Context, int) ([]domain.Product, error) {
	return nil, nil
}

type stubCartRepo struct{}

func (stubCartRepo) GetOrCreate(context.Context, string) (domain.Cart, error) {
	return domain.Cart{}, nil
}
func (stubCartRepo) FindByUser(context.Context, string) (domain.Cart, error) {
	return domain.Cart{}, nil
}

func (stubCartRepo) UpsertItem(context.Context, string, domain.CartItem) (domain.Cart, error) {
	return domain.Cart{}, nil
}

func (stubCartRepo) RemoveItem(context.Context, string, string) (domain.Cart, error) {
	return domain.Cart{}, nil
}
func (stubCartRepo) ClearItems(context.Context, string) error { return nil }

type stubOrderRepo struct{}

func (stubOrderRepo) Insert(context.Context, domain.Order) error { return nil }
func (stubOrderRepo) Update(context.Context, domain.Order) error { return nil }
func (stubOrderRepo) FindByID(context.Context, string) (domain.Order, error) {
	return domain.Order{}, nil
}

func (stubOrderRepo) List(context.Context, repositories.OrderListFilter) ([]domain.Order, error) {
	return nil, nil
}

type stubPaymentRepo struct{}

func (stubPaymentRepo) Insert(context.Context, domain.Payment) error { return nil }
func (stubPaymentRepo) Update(context.Context, domain.Payment) error { return nil }
func (stubPaymentRepo) FindByProviderRef(context.Context, domain.PaymentProvider, string) (domain.Payment, error) {
	return domain.Payment{}, nil
}

func (stubPaymentRepo) FindSucceeded(context.Context, string, domain.PaymentProvider) (domain.Payment, error) {
	return domain.Payment{}, nil
}

func (stubPaymentRepo) ListByOrder(context.Context, string) ([]domain.Payment, error) {
	return nil, nil
}

type stubAddressRepo struct{}

func (stubAddressRepo) FindByID(context.Context, string) (domain.Address, error) {
	return domain.Address{}, nil
}

type stubAuditLogRepo struct{}

func (stubAuditLogRepo) Append(context.Context, domain.AuditLogEntry) error { return nil }
func (stubAuditLogRepo) List(context.Context, repositories.AuditLogFilter) ([]domain.AuditLogEntry, error) {
	return nil, nil
}

type stubRegistry struct{}

func (stubRegistry) Close() error { return nil }

func (stubRegistry) Products() repositories.ProductRepository { return stubProductRepo{} }

func (stubRegistry) Carts() repositories.CartRepository { return stubCartRepo{} }

func (stubRegistry) Orders() repositories.OrderRepository { return stubOrderRepo{} }

func (stubRegistry) Payments() repositories.PaymentRepository { return stubPaymentRepo{} }

func (stubRegistry) Addresses() repositories.AddressRepository { return stubAddressRepo{} }

func (stubRegistry) AuditLogs() repositories.AuditLogRepository { return stubAuditLogRepo{} }
func (stubRegistry) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type stubProvider struct{}

func (stubProvider) CreateIntent(context.Context, payments.IntentRequest) (payments.Intent, error) {
	return payments.Intent{}, nil
}

func (stubProvider) Refund(context.Context, payments.RefundRequest) (payments.RefundResult, error) {
	return payments.RefundResult{}, nil
}

func (stubProvider) VerifyWebhook([]byte, string) (payments.WebhookEvent, error) {
	return payments.WebhookEvent{}, nil
}

func TestNewContainerBuildsAllServices(t *testing.T) {
	container, err := NewContainer(config.Config{}, stubRegistry{}, stubProvider{}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	svc := container.Services
	if svc.Orders == nil || svc.Payments == nil || svc.Refunds == nil {
		t.Fatalf("expected order, payment, and refund services, got %+v", svc)
	}
	if svc.Inventory == nil || svc.Cart == nil || svc.Audit == nil {
		t.Fatalf("expected inventory, cart, and audit services, got %+v", svc)
	}
	if err := container.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestNewContainerRequiresRegistryAndProvider(t *testing.T) {
	if _, err := NewContainer(config.Config{}, nil, stubProvider{}, nil, nil); err == nil {
		t.Fatal("expected error for missing registry")
	}
	if _, err := NewContainer(config.Config{}, stubRegistry{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing provider")
	}
}

func TestEventLoggerRoutesFailuresToErrorLevel(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	logFn := eventLogger(zap.New(core))

	logFn(context.Background(), "refund.commit.failed.after.provider.success", map[string]any{
		"order":     "ord_1",
		"refundRef": "re_123",
	})

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected error level for failure event, got %s", entries[0].Level)
	}
	if entries[0].Message != "refund.commit.failed.after.provider.success" {
		t.Fatalf("unexpected event name %q", entries[0].Message)
	}
	fields := entries[0].ContextMap()
	if fields["refundRef"] != "re_123" {
		t.Fatalf("expected refundRef field, got %+v", fields)
	}
}

func TestEventLoggerPrefersRequestLogger(t *testing.T) {
	fallbackCore, fallbackRecorded := observer.New(zapcore.InfoLevel)
	requestCore, requestRecorded := observer.New(zapcore.InfoLevel)

	logFn := eventLogger(zap.New(fallbackCore))
	ctx := requestctx.WithLogger(context.Background(), zap.New(requestCore))

	logFn(ctx, "payment.intent.created", map[string]any{"order": "ord_1"})

	if fallbackRecorded.Len() != 0 {
		t.Fatalf("expected fallback logger untouched, got %d entries", fallbackRecorded.Len())
	}
	if requestRecorded.Len() != 1 {
		t.Fatalf("expected request logger to capture the event, got %d entries", requestRecorded.Len())
	}
	if entry := requestRecorded.All()[0]; entry.Level != zapcore.InfoLevel {
		t.Fatalf("expected info level for non-failure event, got %s", entry.Level)
	}
}

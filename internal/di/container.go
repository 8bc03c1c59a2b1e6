package di

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/north-market/api/internal/payments"
	"github.com/north-market/api/internal/platform/config"
	"github.com/north-market/api/internal/platform/requestctx"
	"github.com/north-market/api/internal/repositories"
	"github.com/north-market/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders    services.OrderService
	Payments  services.PaymentService
	Refunds   services.RefundService
	Inventory services.InventoryService
	Cart      services.CartService
	Audit     services.AuditLogService
}

// Container wires repositories, services, and the payment provider for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring supplies the
// GORM-backed registry, the Stripe provider, and the process logger; tests can
// inject stubs and a nil logger.
func NewContainer(cfg config.Config, reg repositories.Registry, provider payments.Provider, notifications services.NotificationPublisher, logger *zap.Logger) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	if provider == nil {
		return nil, errors.New("payment provider is required")
	}

	svc, err := buildServices(cfg, reg, provider, notifications, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as the database connection pool.
func (c *Container) Close() error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close()
}

func buildServices(cfg config.Config, reg repositories.Registry, provider payments.Provider, notifications services.NotificationPublisher, logger *zap.Logger) (Services, error) {
	var svc Services

	serviceLogger := eventLogger(logger)

	auditSvc, err := services.NewAuditLogService(services.AuditLogServiceDeps{
		AuditLogs: reg.AuditLogs(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build audit log service: %w", err)
	}
	svc.Audit = auditSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:    reg.Carts(),
		Products: reg.Products(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	inventorySvc, err := services.NewInventoryService(services.InventoryServiceDeps{
		Products:   reg.Products(),
		AuditLogs:  reg.AuditLogs(),
		UnitOfWork: reg,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build inventory service: %w", err)
	}
	svc.Inventory = inventorySvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:        reg.Orders(),
		Products:      reg.Products(),
		Carts:         reg.Carts(),
		Payments:      reg.Payments(),
		Addresses:     reg.Addresses(),
		AuditLogs:     reg.AuditLogs(),
		UnitOfWork:    reg,
		Notifications: notifications,
		Currency:      cfg.Orders.Currency,
		Logger:        serviceLogger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
		Orders:        reg.Orders(),
		Payments:      reg.Payments(),
		AuditLogs:     reg.AuditLogs(),
		UnitOfWork:    reg,
		Provider:      provider,
		Notifications: notifications,
		Logger:        serviceLogger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment service: %w", err)
	}
	svc.Payments = paymentSvc

	refundSvc, err := services.NewRefundService(services.RefundServiceDeps{
		Orders:        reg.Orders(),
		Payments:      reg.Payments(),
		AuditLogs:     reg.AuditLogs(),
		UnitOfWork:    reg,
		Provider:      provider,
		Notifications: notifications,
		Logger:        serviceLogger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build refund service: %w", err)
	}
	svc.Refunds = refundSvc

	return svc, nil
}

// eventLogger adapts zap to the event-style logger the services accept. The
// request-scoped logger wins when present so service events keep their
// request and trace ids; failure events surface at error level because the
// refund commit-failure log is the only record of a provider refund that has
// no matching local state.
func eventLogger(fallback *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := requestctx.Logger(ctx)
		if logger == requestctx.NoopLogger() {
			logger = fallback
		}
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		if strings.Contains(event, ".failed") {
			logger.Error(event, zapFields...)
			return
		}
		logger.Info(event, zapFields...)
	}
}

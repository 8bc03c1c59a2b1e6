package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/repositories"
)

const (
	orderIDPrefix     = "ord_"
	orderItemIDPrefix = "oit_"
	auditIDPrefix     = "aud_"

	defaultCurrency = "USD"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates the operation is not allowed in the order's current status.
	ErrOrderInvalidState = errors.New("order: invalid state")
	// ErrOrderForbidden indicates the caller does not own the order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderConflict indicates duplicates or concurrent-write conflicts.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrCartEmpty indicates checkout was attempted over an empty cart.
	ErrCartEmpty = errors.New("order: cart is empty")
	// ErrAddressInvalid indicates the shipping address is missing or not owned by the caller.
	ErrAddressInvalid = errors.New("order: invalid shipping address")
	// ErrInsufficientStock indicates a product cannot cover the requested quantity.
	ErrInsufficientStock = errors.New("order: insufficient stock")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders        repositories.OrderRepository
	Products      repositories.ProductRepository
	Carts         repositories.CartRepository
	Payments      repositories.PaymentRepository
	Addresses     repositories.AddressRepository
	AuditLogs     repositories.AuditLogRepository
	UnitOfWork    repositories.UnitOfWork
	Notifications NotificationPublisher
	Currency      string
	Clock         func() time.Time
	IDGenerator   func() string
	// ReferenceGenerator produces the human-facing order reference for the
	// given creation time.
	ReferenceGenerator func(now time.Time) (string, error)
	Logger             func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders        repositories.OrderRepository
	products      repositories.ProductRepository
	carts         repositories.CartRepository
	payments      repositories.PaymentRepository
	addresses     repositories.AddressRepository
	audits        repositories.AuditLogRepository
	unitOfWork    repositories.UnitOfWork
	notifications NotificationPublisher
	currency      string
	clock         func() time.Time
	newID         func() string
	newReference  func(time.Time) (string, error)
	logger        func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("order service: cart repository is required")
	}
	if deps.AuditLogs == nil {
		return nil, errors.New("order service: audit log repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCurrency
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

	refGen := deps.ReferenceGenerator
	if refGen == nil {
		refGen = generateOrderReference
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:        deps.Orders,
		products:      deps.Products,
		carts:         deps.Carts,
		payments:      deps.Payments,
		addresses:     deps.Addresses,
		audits:        deps.AuditLogs,
		unitOfWork:    unit,
		notifications: deps.Notifications,
		currency:      currency,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:        idGen,
		newReference: refGen,
		logger:       logger,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}

	if cmd.ShippingAddressID != nil {
		if s.addresses == nil {
			return domain.Order{}, errors.New("order service: address repository not configured")
		}
		address, err := s.addresses.FindByID(ctx, strings.TrimSpace(*cmd.ShippingAddressID))
		if err != nil {
			if isNotFound(err) {
				return domain.Order{}, fmt.Errorf("%w: address %s does not exist", ErrAddressInvalid, *cmd.ShippingAddressID)
			}
			return domain.Order{}, s.mapRepositoryError(err)
		}
		if address.UserID != userID {
			return domain.Order{}, fmt.Errorf("%w: address %s does not belong to the caller", ErrAddressInvalid, address.ID)
		}
	}

	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return domain.Order{}, ErrCartEmpty
		}
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if len(cart.Items) == 0 {
		return domain.Order{}, ErrCartEmpty
	}

	now := s.now()
	reference, err := s.newReference(now)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order: generate reference: %w", err)
	}

	order := domain.Order{
		ID:                orderIDPrefix + s.newID(),
		Reference:         reference,
		UserID:            userID,
		Status:            domain.OrderStatusPending,
		Currency:          s.currency,
		ShippingAddressID: cmd.ShippingAddressID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var lowStock []domain.Product

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		productIDs := make([]string, 0, len(cart.Items))
		for _, item := range cart.Items {
			productIDs = append(productIDs, item.ProductID)
		}

		// Row locks hold until commit, so the availability check below and
		// the decrements cannot interleave with a concurrent checkout.
		locked, err := s.products.FindForUpdate(txCtx, productIDs)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		byID := make(map[string]domain.Product, len(locked))
		for _, product := range locked {
			byID[product.ID] = product
		}

		var total int64
		items := make([]domain.OrderItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			product, ok := byID[item.ProductID]
			if !ok {
				return fmt.Errorf("%w: product %s no longer exists", ErrInsufficientStock, item.ProductID)
			}
			if product.Stock < item.Quantity {
				return fmt.Errorf("%w: product %s has %d in stock, requested %d",
					ErrInsufficientStock, product.ID, product.Stock, item.Quantity)
			}
			unitPrice := product.EffectivePrice()
			total += unitPrice * int64(item.Quantity)
			items = append(items, domain.OrderItem{
				ID:        orderItemIDPrefix + s.newID(),
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: unitPrice,
			})
		}

		order.Total = total
		order.Items = items

		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}

		for _, item := range items {
			updated, err := s.products.AdjustStock(txCtx, item.ProductID, -item.Quantity)
			if err != nil {
				return s.mapRepositoryError(err)
			}
			if updated.LowStock() {
				lowStock = append(lowStock, updated)
			}
		}

		if err := s.carts.ClearItems(txCtx, cart.ID); err != nil {
			return s.mapRepositoryError(err)
		}

		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityOrder,
			EntityID:    order.ID,
			Action:      "order.created",
			PerformedBy: userID,
			ActorType:   domain.AuditActorUser,
			After: domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{
				Status:    order.Status,
				Total:     valuePtr(order.Total),
				Reference: order.Reference,
			}},
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	for _, product := range lowStock {
		s.notify(ctx, Notification{
			Kind:       NotificationLowStock,
			ProductID:  product.ID,
			OccurredAt: now,
			Metadata: map[string]string{
				"stock":     fmt.Sprintf("%d", product.Stock),
				"threshold": fmt.Sprintf("%d", product.LowStockThreshold),
			},
		})
	}

	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if order.UserID != strings.TrimSpace(cmd.UserID) {
		return domain.Order{}, fmt.Errorf("%w: order %s belongs to another user", ErrOrderForbidden, orderID)
	}
	if order.Status != domain.OrderStatusPending {
		return domain.Order{}, fmt.Errorf("%w: only pending orders can be cancelled, order is %s", ErrOrderInvalidState, order.Status)
	}

	now := s.now()
	prevStatus := order.Status
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now
	order.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		for _, item := range order.Items {
			if _, err := s.products.AdjustStock(txCtx, item.ProductID, item.Quantity); err != nil {
				return s.mapRepositoryError(err)
			}
		}
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityOrder,
			EntityID:    order.ID,
			Action:      "order.cancelled",
			PerformedBy: order.UserID,
			ActorType:   domain.AuditActorUser,
			Before:      domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{Status: prevStatus}},
			After:       domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{Status: order.Status}},
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// UpdateStatus is an administrative override: any valid status value is
// accepted without consulting the transition table. Transition timestamps are
// still maintained.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if _, ok := domain.ParseOrderStatus(string(cmd.Status)); !ok {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	prevStatus := order.Status
	order.Status = cmd.Status
	order.UpdatedAt = now
	applyStatusTimestamps(&order, cmd.Status, now)

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityOrder,
			EntityID:    order.ID,
			Action:      "order.status.updated",
			PerformedBy: strings.TrimSpace(cmd.ActorID),
			ActorType:   domain.AuditActorAdmin,
			Before:      domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{Status: prevStatus}},
			After:       domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{Status: order.Status}},
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (s *orderService) UpdateShippingInfo(ctx context.Context, cmd UpdateShippingInfoCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	tracking := strings.TrimSpace(cmd.TrackingNumber)
	if tracking == "" {
		return domain.Order{}, fmt.Errorf("%w: tracking number is required", ErrOrderInvalidInput)
	}

	status := domain.OrderStatusShipped
	if cmd.Status != nil {
		parsed, ok := domain.ParseOrderStatus(string(*cmd.Status))
		if !ok {
			return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *cmd.Status)
		}
		status = parsed
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	prevStatus := order.Status
	prevTracking := derefString(order.TrackingNumber)
	order.TrackingNumber = valuePtr(tracking)
	if carrier := strings.TrimSpace(cmd.Carrier); carrier != "" {
		order.ShippingCarrier = valuePtr(carrier)
	}
	order.Status = status
	order.UpdatedAt = now
	// Tracking info means the parcel left the warehouse, so shippedAt is
	// stamped even when the admin overrides the status past SHIPPED.
	order.ShippedAt = &now
	applyStatusTimestamps(&order, status, now)

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityOrder,
			EntityID:    order.ID,
			Action:      "order.shipping.updated",
			PerformedBy: strings.TrimSpace(cmd.ActorID),
			ActorType:   domain.AuditActorAdmin,
			Before: domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{
				Status:         prevStatus,
				TrackingNumber: prevTracking,
			}},
			After: domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{
				Status:          order.Status,
				TrackingNumber:  tracking,
				ShippingCarrier: derefString(order.ShippingCarrier),
			}},
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.notify(ctx, Notification{
		Kind:           NotificationOrderShipped,
		UserID:         order.UserID,
		OrderID:        order.ID,
		OrderReference: order.Reference,
		OccurredAt:     now,
		Metadata: map[string]string{
			"trackingNumber": tracking,
			"carrier":        derefString(order.ShippingCarrier),
		},
	})

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	if s.payments != nil {
		payments, err := s.payments.ListByOrder(ctx, orderID)
		if err != nil {
			return domain.Order{}, s.mapRepositoryError(err)
		}
		order.Payments = payments
	}

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, query OrderListQuery) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx, repositories.OrderListFilter{
		UserID:   strings.TrimSpace(query.UserID),
		Statuses: query.Statuses,
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

func (s *orderService) appendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	entry.ID = auditIDPrefix + s.newID()
	entry.CreatedAt = s.now()
	if entry.PerformedBy == "" {
		entry.PerformedBy = string(entry.ActorType)
	}
	if err := s.audits.Append(ctx, entry); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *orderService) notify(ctx context.Context, notification Notification) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Publish(ctx, notification); err != nil {
		s.logger(ctx, "order.notification.publish.failed", map[string]any{
			"kind":  notification.Kind,
			"order": notification.OrderID,
			"error": err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func applyStatusTimestamps(order *domain.Order, status domain.OrderStatus, now time.Time) {
	switch status {
	case domain.OrderStatusShipped:
		order.ShippedAt = &now
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	case domain.OrderStatusCancelled:
		if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
	case domain.OrderStatusRefunded:
		order.RefundAt = &now
	}
}

const referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateOrderReference builds the human-facing order reference, e.g.
// NM-20250314-7Q2XKD. Uniqueness is enforced by the store; the random suffix
// keeps collisions out of practical reach.
func generateOrderReference(now time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = referenceAlphabet[int(buf[i])%len(referenceAlphabet)]
	}
	return fmt.Sprintf("NM-%s-%s", now.UTC().Format("20060102"), string(buf)), nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func valuePtr[T any](v T) *T {
	return &v
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/north-market/api/internal/domain"
	"github.com/north-market/api/internal/payments"
	"github.com/north-market/api/internal/repositories"
)

var (
	// ErrNoSuccessfulPayment indicates the order has no settled payment to refund against.
	ErrNoSuccessfulPayment = errors.New("refund: no successful payment for order")
	// ErrRefundInvalidAmount indicates an administrative amount correction is out of range.
	ErrRefundInvalidAmount = errors.New("refund: invalid amount")
)

// refundableStatuses are the order states the refund listing surfaces.
var refundableStatuses = []domain.OrderStatus{
	domain.OrderStatusRefundPending,
	domain.OrderStatusRefunded,
}

// RefundServiceDeps bundles collaborators required to construct the refund service.
type RefundServiceDeps struct {
	Orders        repositories.OrderRepository
	Payments      repositories.PaymentRepository
	AuditLogs     repositories.AuditLogRepository
	UnitOfWork    repositories.UnitOfWork
	Provider      payments.Provider
	Notifications NotificationPublisher
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type refundService struct {
	orders        repositories.OrderRepository
	payments      repositories.PaymentRepository
	audits        repositories.AuditLogRepository
	unitOfWork    repositories.UnitOfWork
	provider      payments.Provider
	notifications NotificationPublisher
	clock         func() time.Time
	newID         func() string
	logger        func(context.Context, string, map[string]any)
}

// NewRefundService wires dependencies into a concrete RefundService implementation.
func NewRefundService(deps RefundServiceDeps) (RefundService, error) {
	if deps.Orders == nil {
		return nil, errors.New("refund service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("refund service: payment repository is required")
	}
	if deps.AuditLogs == nil {
		return nil, errors.New("refund service: audit log repository is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("refund service: payment provider is required")
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

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &refundService{
		orders:        deps.Orders,
		payments:      deps.Payments,
		audits:        deps.AuditLogs,
		unitOfWork:    unit,
		provider:      deps.Provider,
		notifications: deps.Notifications,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// ProcessRefund refunds the order's settled payment with the provider, then
// commits the local transition. A provider success followed by a commit
// failure leaves money moved without local state; that window is logged for
// manual reconciliation rather than compensated.
func (s *refundService) ProcessRefund(ctx context.Context, cmd ProcessRefundCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if order.Status != domain.OrderStatusRefundPending {
		return domain.Order{}, fmt.Errorf("%w: refunds require status %s, order is %s",
			ErrOrderInvalidState, domain.OrderStatusRefundPending, order.Status)
	}

	payment, err := s.payments.FindSucceeded(ctx, order.ID, domain.PaymentProviderStripe)
	if err != nil {
		if isNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: order %s", ErrNoSuccessfulPayment, order.ID)
		}
		return domain.Order{}, s.mapRepositoryError(err)
	}

	result, err := s.provider.Refund(ctx, payments.RefundRequest{
		IntentID:       payment.ProviderRef,
		Reason:         "requested_by_customer",
		IdempotencyKey: payment.ID + ":refund",
	})
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	now := s.now()
	prevOrderStatus := order.Status

	order.Status = domain.OrderStatusRefunded
	order.RefundAt = &now
	order.UpdatedAt = now
	payment.Status = domain.PaymentStatusRefunded
	payment.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.payments.Update(txCtx, payment); err != nil {
			return s.mapRepositoryError(err)
		}
		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityOrder,
			EntityID:    order.ID,
			Action:      "refund.processed",
			PerformedBy: strings.TrimSpace(cmd.ActorID),
			ActorType:   domain.AuditActorAdmin,
			Before: domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{
				Status: prevOrderStatus,
			}},
			After: domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{
				Status:    order.Status,
				RefundRef: result.RefundID,
			}},
		})
	})
	if err != nil {
		// Provider already moved the money. Surface loudly so operators can
		// reconcile; a later retry of the webhook or admin flow will fail the
		// status precondition instead of double refunding locally.
		s.logger(ctx, "refund.commit.failed.after.provider.success", map[string]any{
			"order":     order.ID,
			"payment":   payment.ID,
			"refundRef": result.RefundID,
			"error":     err.Error(),
		})
		return domain.Order{}, err
	}

	s.notify(ctx, Notification{
		Kind:           NotificationRefundProcessed,
		UserID:         order.UserID,
		OrderID:        order.ID,
		OrderReference: order.Reference,
		OccurredAt:     now,
		Metadata:       map[string]string{"refundRef": result.RefundID},
	})

	return order, nil
}

// UpdateRefundStatus applies an administrative status correction. Setting
// REFUNDED routes through ProcessRefund so the provider refund actually runs.
func (s *refundService) UpdateRefundStatus(ctx context.Context, cmd UpdateRefundStatusCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	status, ok := domain.ParseOrderStatus(string(cmd.Status))
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}

	if status == domain.OrderStatusRefunded {
		return s.ProcessRefund(ctx, ProcessRefundCommand{OrderID: orderID, ActorID: cmd.ActorID})
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	prevStatus := order.Status
	order.Status = status
	order.UpdatedAt = now
	applyStatusTimestamps(&order, status, now)

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityOrder,
			EntityID:    order.ID,
			Action:      "refund.status.updated",
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

func (s *refundService) UpdateRefundAmount(ctx context.Context, cmd UpdateRefundAmountCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if cmd.Amount < 0 {
		return domain.Order{}, fmt.Errorf("%w: amount must not be negative", ErrRefundInvalidAmount)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	prevTotal := order.Total
	order.Total = cmd.Amount
	order.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityOrder,
			EntityID:    order.ID,
			Action:      "refund.amount.updated",
			PerformedBy: strings.TrimSpace(cmd.ActorID),
			ActorType:   domain.AuditActorAdmin,
			Before:      domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{Total: valuePtr(prevTotal)}},
			After:       domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{Total: valuePtr(order.Total)}},
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (s *refundService) UpdateRefundReference(ctx context.Context, cmd UpdateRefundReferenceCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	reference := strings.TrimSpace(cmd.Reference)
	if reference == "" {
		return domain.Order{}, fmt.Errorf("%w: reference is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	prevReference := order.Reference
	order.Reference = reference
	order.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityOrder,
			EntityID:    order.ID,
			Action:      "refund.reference.updated",
			PerformedBy: strings.TrimSpace(cmd.ActorID),
			ActorType:   domain.AuditActorAdmin,
			Before:      domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{Reference: prevReference}},
			After:       domain.AuditSnapshot{Order: &domain.OrderAuditSnapshot{Reference: order.Reference}},
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (s *refundService) GetRefund(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	payments, err := s.payments.ListByOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	order.Payments = payments

	return order, nil
}

func (s *refundService) ListRefunds(ctx context.Context, query RefundListQuery) ([]domain.Order, error) {
	orders, err := s.orders.List(ctx, repositories.OrderListFilter{
		Statuses: refundableStatuses,
		Limit:    query.Limit,
	})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

func (s *refundService) appendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	entry.ID = auditIDPrefix + s.newID()
	entry.CreatedAt = s.now()
	if err := s.audits.Append(ctx, entry); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *refundService) notify(ctx context.Context, notification Notification) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Publish(ctx, notification); err != nil {
		s.logger(ctx, "refund.notification.publish.failed", map[string]any{
			"kind":  notification.Kind,
			"order": notification.OrderID,
			"error": err.Error(),
		})
	}
}

func (s *refundService) mapRepositoryError(err error) error {
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
			return fmt.Errorf("refund: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *refundService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *refundService) now() time.Time {
	return s.clock()
}

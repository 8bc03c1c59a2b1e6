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

const paymentIDPrefix = "pay_"

var (
	// ErrPaymentNotFound indicates no payment row matches the provider reference.
	ErrPaymentNotFound = errors.New("payment: not found")
	// ErrPaymentProvider indicates the external provider rejected or failed the call.
	ErrPaymentProvider = errors.New("payment: provider failure")
)

// PaymentServiceDeps bundles collaborators required to construct the payment service.
type PaymentServiceDeps struct {
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

type paymentService struct {
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

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("payment service: payment repository is required")
	}
	if deps.AuditLogs == nil {
		return nil, errors.New("payment service: audit log repository is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("payment service: payment provider is required")
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

	return &paymentService{
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

func (s *paymentService) CreateIntent(ctx context.Context, cmd CreateIntentCommand) (PaymentIntent, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return PaymentIntent{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return PaymentIntent{}, s.mapRepositoryError(err)
	}
	if userID := strings.TrimSpace(cmd.UserID); userID != "" && order.UserID != userID {
		return PaymentIntent{}, fmt.Errorf("%w: order %s belongs to another user", ErrOrderForbidden, orderID)
	}
	if order.Status != domain.OrderStatusPending {
		return PaymentIntent{}, fmt.Errorf("%w: payment intents are only created for pending orders, order is %s",
			ErrOrderInvalidState, order.Status)
	}

	paymentID := paymentIDPrefix + s.newID()
	intent, err := s.provider.CreateIntent(ctx, payments.IntentRequest{
		Amount:         order.Total,
		Currency:       order.Currency,
		OrderID:        order.ID,
		OrderReference: order.Reference,
		IdempotencyKey: paymentID,
	})
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	now := s.now()
	payment := domain.Payment{
		ID:          paymentID,
		OrderID:     order.ID,
		Provider:    domain.PaymentProviderStripe,
		ProviderRef: intent.ID,
		Amount:      order.Total,
		Currency:    order.Currency,
		Status:      domain.PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.payments.Insert(ctx, payment); err != nil {
		return PaymentIntent{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "payment.intent.created", map[string]any{
		"order":   order.ID,
		"payment": payment.ID,
		"intent":  intent.ID,
	})

	return PaymentIntent{
		PaymentID:    payment.ID,
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       payment.Amount,
		Currency:     payment.Currency,
	}, nil
}

// MarkPaid reconciles a provider success notification into local state. The
// write is redelivery-safe: a second delivery for the same reference re-applies
// the identical terminal state.
func (s *paymentService) MarkPaid(ctx context.Context, cmd MarkPaidCommand) (domain.Order, error) {
	providerRef := strings.TrimSpace(cmd.ProviderRef)
	if providerRef == "" {
		return domain.Order{}, fmt.Errorf("%w: provider reference is required", ErrOrderInvalidInput)
	}
	provider := cmd.Provider
	if provider == "" {
		provider = domain.PaymentProviderStripe
	}

	payment, err := s.payments.FindByProviderRef(ctx, provider, providerRef)
	if err != nil {
		if isNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: no payment for reference %s", ErrPaymentNotFound, providerRef)
		}
		return domain.Order{}, s.mapRepositoryError(err)
	}

	order, err := s.orders.FindByID(ctx, payment.OrderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	prevPaymentStatus := payment.Status
	prevOrderStatus := order.Status

	payment.Status = domain.PaymentStatusSucceeded
	if payment.PaidAt == nil {
		payment.PaidAt = &now
	}
	payment.UpdatedAt = now

	order.Status = domain.OrderStatusProcessing
	order.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.payments.Update(txCtx, payment); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return s.appendAudit(txCtx, domain.AuditLogEntry{
			EntityType:  domain.AuditEntityPayment,
			EntityID:    payment.ID,
			Action:      "payment.succeeded",
			ActorType:   domain.AuditActorSystem,
			PerformedBy: string(domain.AuditActorSystem),
			Before: domain.AuditSnapshot{Payment: &domain.PaymentAuditSnapshot{
				Status:      prevPaymentStatus,
				ProviderRef: payment.ProviderRef,
			}},
			After: domain.AuditSnapshot{Payment: &domain.PaymentAuditSnapshot{
				Status:      payment.Status,
				ProviderRef: payment.ProviderRef,
			}},
		})
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logger(ctx, "payment.marked.paid", map[string]any{
		"order":          order.ID,
		"payment":        payment.ID,
		"previousStatus": string(prevOrderStatus),
	})

	s.notify(ctx, Notification{
		Kind:           NotificationOrderConfirmation,
		UserID:         order.UserID,
		OrderID:        order.ID,
		OrderReference: order.Reference,
		OccurredAt:     now,
	})
	s.notify(ctx, Notification{
		Kind:           NotificationInvoiceRequested,
		UserID:         order.UserID,
		OrderID:        order.ID,
		OrderReference: order.Reference,
		OccurredAt:     now,
	})

	return order, nil
}

func (s *paymentService) appendAudit(ctx context.Context, entry domain.AuditLogEntry) error {
	entry.ID = auditIDPrefix + s.newID()
	entry.CreatedAt = s.now()
	if err := s.audits.Append(ctx, entry); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

func (s *paymentService) notify(ctx context.Context, notification Notification) {
	if s.notifications == nil {
		return
	}
	if err := s.notifications.Publish(ctx, notification); err != nil {
		s.logger(ctx, "payment.notification.publish.failed", map[string]any{
			"kind":  notification.Kind,
			"order": notification.OrderID,
			"error": err.Error(),
		})
	}
}

func (s *paymentService) mapRepositoryError(err error) error {
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
			return fmt.Errorf("payment: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *paymentService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *paymentService) now() time.Time {
	return s.clock()
}

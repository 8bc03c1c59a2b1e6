package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/north-market/api/internal/di"
	"github.com/north-market/api/internal/handlers"
	"github.com/north-market/api/internal/payments"
	"github.com/north-market/api/internal/platform/auth"
	"github.com/north-market/api/internal/platform/config"
	"github.com/north-market/api/internal/platform/idempotency"
	"github.com/north-market/api/internal/platform/jobs"
	"github.com/north-market/api/internal/platform/observability"
	"github.com/north-market/api/internal/repositories/gormstore"
	"github.com/north-market/api/internal/services"
)

const idempotencyCleanupInterval = time.Hour

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := gormstore.Open(gormstore.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.Name,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if cfg.Database.AutoMigrate {
		if err := gormstore.Migrate(db); err != nil {
			logger.Fatal("failed to migrate schema", zap.Error(err))
		}
	}

	registry, err := gormstore.NewRegistry(db)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	paymentsLogger := logger.Named("payments")
	stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
		APIKey:        cfg.Stripe.APIKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Logger: func(_ context.Context, event string, fields map[string]any) {
			zFields := make([]zap.Field, 0, len(fields)+1)
			zFields = append(zFields, zap.String("event", event))
			for k, v := range fields {
				zFields = append(zFields, zap.Any(k, v))
			}
			paymentsLogger.Debug("stripe log", zFields...)
		},
	})
	if err != nil {
		logger.Fatal("failed to initialise stripe provider", zap.Error(err))
	}

	var notifications services.NotificationPublisher
	var pubsubClient *pubsub.Client
	if cfg.PubSub.Topic != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher, err := jobs.NewPubSubNotificationPublisher(pubsubClient.Topic(cfg.PubSub.Topic))
		if err != nil {
			logger.Fatal("failed to initialise notification publisher", zap.Error(err))
		}
		notifications = publisher
	} else {
		logger.Info("notifications topic not configured; notifications disabled")
	}

	container, err := di.NewContainer(cfg, registry, stripeProvider, notifications, logger)
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	verifierOpts := []auth.Option{}
	if cfg.Auth.Issuer != "" {
		verifierOpts = append(verifierOpts, auth.WithIssuer(cfg.Auth.Issuer))
	}
	if cfg.Auth.Audience != "" {
		verifierOpts = append(verifierOpts, auth.WithAudience(cfg.Auth.Audience))
	}
	if cfg.Auth.Leeway > 0 {
		verifierOpts = append(verifierOpts, auth.WithLeeway(cfg.Auth.Leeway))
	}
	verifier := auth.NewVerifier([]byte(cfg.Auth.JWTSecret), verifierOpts...)

	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyMiddleware := idempotency.Middleware(idempotencyStore)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	cleanupTicker := time.NewTicker(idempotencyCleanupInterval)
	go func() {
		cleanupLogger := logger.Named("idempotency")
		for {
			select {
			case <-cleanupTicker.C:
				if removed := idempotencyStore.CleanupExpired(cleanupCtx, time.Now().UTC()); removed > 0 {
					cleanupLogger.Info("expired idempotency records removed", zap.Int("count", removed))
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	cartHandlers := handlers.NewCartHandlers(container.Services.Cart)
	orderHandlers := handlers.NewOrderHandlers(
		container.Services.Orders,
		container.Services.Payments,
		handlers.WithCheckoutMiddleware(idempotencyMiddleware),
	)
	adminHandlers := handlers.NewAdminHandlers(
		container.Services.Orders,
		container.Services.Refunds,
		container.Services.Inventory,
		container.Services.Audit,
	)
	webhookHandlers := handlers.NewWebhookHandlers(stripeProvider, container.Services.Payments)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthStartedAt(startedAt),
		handlers.WithReadinessCheck("mysql", func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	)

	requireUser := verifier.RequireAuth()
	authedRoutes := func(reg handlers.RouteRegistrar) handlers.RouteRegistrar {
		return func(r chi.Router) {
			r.Use(requireUser)
			reg(r)
		}
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger.Named("http")),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCartRoutes(authedRoutes(cartHandlers.Routes)),
		handlers.WithOrderRoutes(authedRoutes(orderHandlers.Routes)),
		handlers.WithAdminRoutes(adminHandlers.Routes),
		handlers.WithAdminMiddlewares(verifier.RequireAdmin()),
		handlers.WithWebhookRoutes(webhookHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("north-market api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupTicker.Stop()
	cleanupCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-studio/checkout-service/internal/clients"
	"github.com/lumen-studio/checkout-service/internal/config"
	"github.com/lumen-studio/checkout-service/internal/events"
	"github.com/lumen-studio/checkout-service/internal/handlers"
	"github.com/lumen-studio/checkout-service/internal/observability"
	"github.com/lumen-studio/checkout-service/internal/providers"
	"github.com/lumen-studio/checkout-service/internal/repository"
	"github.com/lumen-studio/checkout-service/internal/server"
	"github.com/lumen-studio/checkout-service/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger("checkout-service")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting checkout-service", zap.Int("port", cfg.Server.Port))

	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	sessionStore := repository.NewRedisSessionStore(cfg.Redis, logger)
	journal := repository.NewPostgresOutcomeJournal(db, logger)

	billingClient := clients.NewHTTPBillingClient(cfg.BillingService, logger)
	orderClient := clients.NewHTTPOrderClient(cfg.OrderService, logger)

	redirectAdapter := providers.NewRedirectAdapter(cfg.RedirectProvider, cfg.Checkout, logger)
	widgetAdapter := providers.NewWidgetAdapter(cfg.WidgetProvider, logger)

	reconciler := service.NewReconciler(orderClient, cfg.Checkout.ReconcileTimeout, logger)

	analytics := events.NewKafkaAnalyticsPublisher(cfg.Kafka, logger)
	defer analytics.Close()

	checkoutService := service.NewCheckoutService(
		billingClient,
		redirectAdapter,
		widgetAdapter,
		widgetAdapter,
		reconciler,
		sessionStore,
		journal,
		analytics,
		cfg,
		logger,
	)

	h := handlers.NewHandlers(checkoutService, journal, sessionStore, journal, cfg, logger)

	srv := server.NewServer(cfg, h, logger)

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Late confirmations: order events that arrive after a degraded outcome
	// upgrade the journal record.
	var consumer *events.KafkaOrderConsumer
	if cfg.Features.EnableLateConfirmation {
		consumer = events.NewKafkaOrderConsumer(cfg.Kafka, journal, logger)
		go func() {
			if err := consumer.Start(context.Background()); err != nil {
				logger.Error("Order event consumer failed", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func initDatabase(cfg *config.Config, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	logger.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("name", cfg.Database.Name))

	return db, nil
}

package app

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"campusev/backend/libs/db"
	"campusev/backend/libs/httpx"
	libmetrics "campusev/backend/libs/metrics"
	"campusev/backend/services/billing-service/internal/config"
	"campusev/backend/services/billing-service/internal/consumer"
	httpserver "campusev/backend/services/billing-service/internal/http"
	"campusev/backend/services/billing-service/internal/http/handlers"
	"campusev/backend/services/billing-service/internal/repository"
	"campusev/backend/services/billing-service/internal/service"
)

// App wires billing service dependencies.
type App struct {
	server   *httpx.Server
	consumer *consumer.Consumer
	billing  *service.BillingService
	db       *sql.DB
	logger   *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	txRepo := repository.NewTransactionRepository(sqlDB)
	billingService := service.NewBillingService(txRepo, logger)

	registry := prometheus.NewRegistry()
	httpMetrics := libmetrics.NewHTTPMetrics(registry, "billing")

	router := httpserver.NewRouter(httpserver.Routes{
		TransactionsMe: handlers.NewTransactionsMeHandler(billingService, logger),
		Metrics:        libmetrics.Handler(registry),
	})

	a := &App{
		server: httpx.NewServer(cfg.HTTPAddress(), router, logger,
			httpx.RequestID,
			httpx.RecoveryMiddleware(logger),
			httpx.LoggingMiddleware(logger),
			httpMetrics.Middleware,
			httpx.TrustGateway(cfg.Gateway.Secret, handlers.UserIDHeader),
		),
		billing: billingService,
		db:      sqlDB,
		logger:  logger,
	}
	if cfg.KafkaEnabled() {
		a.consumer = consumer.New(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, logger)
	} else {
		logger.Warn("kafka disabled, no sessions will be settled")
	}
	return a, nil
}

// Run serves HTTP and consumes session events until ctx ends.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(ctx)
	})
	if a.consumer != nil {
		g.Go(func() error {
			return a.consumer.Run(ctx, a.billing.HandleEvent)
		})
	}
	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}

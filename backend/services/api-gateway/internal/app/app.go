package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	libauth "campusev/backend/libs/auth"
	"campusev/backend/libs/httpx"
	libmetrics "campusev/backend/libs/metrics"
	"campusev/backend/services/api-gateway/internal/clients"
	"campusev/backend/services/api-gateway/internal/config"
	httpserver "campusev/backend/services/api-gateway/internal/http"
	"campusev/backend/services/api-gateway/internal/http/handlers"
	"campusev/backend/services/api-gateway/internal/http/middleware"
)

// App wires API gateway dependencies.
type App struct {
	server *httpx.Server
	logger *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	httpClient := clients.NewDefaultHTTPClient(cfg.HTTPClient.Timeout)

	internalClient := clients.WithGatewayToken(httpClient, cfg.Services.InternalSecret)

	authClient := clients.NewAuthClient(cfg.Services.AuthURL, httpClient)
	chargingClient := clients.NewChargingClient(cfg.Services.ChargingURL, internalClient)
	billingClient := clients.NewBillingClient(cfg.Services.BillingURL, internalClient)

	registry := prometheus.NewRegistry()
	httpMetrics := libmetrics.NewHTTPMetrics(registry, "gateway")

	tokens := libauth.NewTokenService(cfg.JWT.Secret, 0)
	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandlers:     handlers.NewAuthHandlers(authClient, logger),
		ChargingHandlers: handlers.NewChargingHandlers(chargingClient, logger),
		BillingHandlers:  handlers.NewBillingHandlers(billingClient, logger),
		Metrics:          libmetrics.Handler(registry),
	}, middleware.AuthMiddleware(tokens, logger))

	server := httpx.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		httpx.RequestID,
		httpx.RecoveryMiddleware(logger),
		httpx.LoggingMiddleware(logger),
		httpMetrics.Middleware,
	)

	return &App{
		server: server,
		logger: logger,
	}, nil
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources (none yet).
func (a *App) Close() {}

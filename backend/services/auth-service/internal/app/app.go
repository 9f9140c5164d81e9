package app

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	libauth "campusev/backend/libs/auth"
	"campusev/backend/libs/db"
	"campusev/backend/libs/httpx"
	libmetrics "campusev/backend/libs/metrics"
	appconfig "campusev/backend/services/auth-service/internal/config"
	httpserver "campusev/backend/services/auth-service/internal/http"
	"campusev/backend/services/auth-service/internal/http/handlers"
	"campusev/backend/services/auth-service/internal/password"
	"campusev/backend/services/auth-service/internal/repository"
	"campusev/backend/services/auth-service/internal/service"
)

// App wires dependencies for the auth service.
type App struct {
	server *httpx.Server
	db     *sql.DB
	logger *zap.Logger
}

// New builds application graph.
func New(cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(sqlDB)
	hasher := password.NewBcryptHasher(cfg.BcryptCost)
	tokens := libauth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	authSvc := service.NewAuthService(userRepo, hasher, tokens, logger)

	registry := prometheus.NewRegistry()
	httpMetrics := libmetrics.NewHTTPMetrics(registry, "auth")

	router := httpserver.NewRouter(httpserver.Routes{
		Auth:    handlers.NewAuthHandler(authSvc, logger),
		Metrics: libmetrics.Handler(registry),
	})
	server := httpx.NewServer(cfg.HTTPAddress(), router, logger,
		httpx.RequestID,
		httpx.RecoveryMiddleware(logger),
		httpx.LoggingMiddleware(logger),
		httpMetrics.Middleware,
	)

	return &App{
		server: server,
		db:     sqlDB,
		logger: logger,
	}, nil
}

// Run starts serving HTTP traffic until context cancellation.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}

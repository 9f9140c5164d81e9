package app

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"campusev/backend/libs/db"
	"campusev/backend/libs/httpx"
	libmetrics "campusev/backend/libs/metrics"
	"campusev/backend/libs/migrate"
	libredis "campusev/backend/libs/redis"
	"campusev/backend/services/charging-service/internal/config"
	"campusev/backend/services/charging-service/internal/events"
	httpserver "campusev/backend/services/charging-service/internal/http"
	"campusev/backend/services/charging-service/internal/http/handlers"
	"campusev/backend/services/charging-service/internal/metrics"
	redisstore "campusev/backend/services/charging-service/internal/redis"
	"campusev/backend/services/charging-service/internal/repository"
	"campusev/backend/services/charging-service/internal/service"
	"campusev/backend/services/charging-service/internal/ws"
	"campusev/backend/services/charging-service/migrations"
)

const serviceName = "charging-service"

// App wires charging-service dependencies.
type App struct {
	server      *httpx.Server
	hub         *ws.Hub
	producer    *events.Producer
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
	cancel      context.CancelFunc
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.NewPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := migrate.UpOnStart(ctx, cfg.Database.MigrateOnRun, sqlDB, migrations.Source(), logger); err != nil {
		sqlDB.Close()
		return nil, err
	}

	a := &App{db: sqlDB, logger: logger}

	var idempotency service.IdempotencyStore
	if cfg.RedisEnabled() {
		client, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redisClient = client
		idempotency = redisstore.NewIdempotencyStore(client, cfg.Redis.IdempotencyTTL)
	} else {
		logger.Warn("redis disabled, idempotency keys are ignored")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)
	httpMetrics := libmetrics.NewHTTPMetrics(registry, "charging")

	// The ws server outlives individual requests; its context ends on Close.
	wsCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.hub = ws.NewHub(logger)
	sinks := events.Fanout{a.hub}
	if cfg.KafkaEnabled() {
		a.producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, serviceName, logger)
		sinks = append(sinks, a.producer)
	}

	opts := service.Options{
		Location:   loc,
		StaleAfter: cfg.Reservation.StaleAfter,
		SlotSize:   cfg.Reservation.SlotSize,
		Events:     sinks,
		Recorder:   collector,
		Logger:     logger,
	}

	chargingRepo := repository.NewChargingRepository(sqlDB)
	vehicleRepo := repository.NewVehicleRepository(sqlDB)
	locationRepo := repository.NewLocationRepository(sqlDB)

	sweeper := service.NewSweeper(chargingRepo, opts)
	reservations := service.NewReservationService(chargingRepo, vehicleRepo, sweeper, idempotency, opts)
	lifecycle := service.NewLifecycleService(chargingRepo, sweeper, opts)
	slots := service.NewSlotService(chargingRepo, sweeper, opts)
	piles := service.NewPileService(chargingRepo, locationRepo, opts)

	wsServer := ws.NewServer(wsCtx, a.hub, cfg.Reservation.WSWriteLimit, logger)

	router := httpserver.NewRouter(httpserver.Routes{
		Sessions:    handlers.NewSessionsHandler(reservations, lifecycle, piles, logger),
		Piles:       handlers.NewPilesHandler(piles, slots, logger),
		PileFeed:    wsServer.HandlePiles,
		Metrics:     libmetrics.Handler(registry),
		ReserveRate: httpserver.NewRateLimiter(cfg.Reservation.RatePerMin, cfg.Reservation.RateBurst, logger),
		Middleware: []func(http.Handler) http.Handler{
			httpx.TrustGateway(cfg.Gateway.Secret, handlers.UserIDHeader, handlers.UserRoleHeader),
			httpMetrics.Middleware,
		},
	}, logger)

	a.server = httpx.NewServer(cfg.HTTPAddress(), router, logger,
		httpx.RequestID,
		httpx.RecoveryMiddleware(logger),
		httpx.LoggingMiddleware(logger),
	)
	return a, nil
}

// Run serves HTTP and, when configured, the Kafka producer until ctx ends.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(ctx)
	})
	if a.producer != nil {
		g.Go(func() error {
			return a.producer.Run(ctx)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		a.cancel()
		a.hub.CloseAll()
		return nil
	})
	return g.Wait()
}

// Close releases resources.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

package api

import (
	"context"
	"errors"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	ordersmemory "github.com/Apurer/go-gin-storefront/internal/domains/orders/adapters/memory"
	ordersobs "github.com/Apurer/go-gin-storefront/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/Apurer/go-gin-storefront/internal/domains/orders/adapters/persistence/postgres"
	ordersapp "github.com/Apurer/go-gin-storefront/internal/domains/orders/application"
	ordersports "github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
	"github.com/Apurer/go-gin-storefront/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-gin-storefront/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-gin-storefront/internal/platform/postgres"
)

// OrdersStack is the instrumented orders service plus the store it runs on.
type OrdersStack struct {
	Service ordersports.Service
	// Ping reports store reachability; nil for the in-memory store.
	Ping    func(ctx context.Context) error
	cleanup func()
}

// Close releases the database pool, if any.
func (s *OrdersStack) Close() {
	if s != nil && s.cleanup != nil {
		s.cleanup()
	}
}

// BuildOrdersStack connects to Postgres (falling back to memory when unavailable),
// applies migrations, seeds the catalog when configured, and wraps the service
// with tracing, logging, and metrics.
func BuildOrdersStack(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*OrdersStack, error) {
	logger := effectiveLogger(instruments)
	stack := &OrdersStack{cleanup: func() {}}

	var repo interface {
		ordersports.Repository
		ordersports.CatalogSeeder
	}
	var idempotency ordersports.IdempotencyStore
	db, cleanup := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, platformpostgres.Options{
		MaxOpenConns: cfg.PostgresMaxOpenConns,
		MaxIdleConns: cfg.PostgresMaxOpenConns / 2,
	}, logger)
	if db != nil {
		stack.cleanup = cleanup
		if cfg.AutoMigrate {
			if err := migrations.Up(cfg.PostgresDSN, logger); err != nil {
				cleanup()
				return nil, err
			}
		}
		sqlDB, err := db.DB()
		if err != nil {
			cleanup()
			return nil, err
		}
		stack.Ping = sqlDB.PingContext
		repo = orderspostgres.NewRepository(db,
			orderspostgres.WithStatementTimeout(cfg.StatementTimeout),
			orderspostgres.WithLockTimeout(cfg.LockTimeout),
		)
		idempotency = orderspostgres.NewIdempotencyStore(db)
		logger.Info("orders repository configured with postgres",
			slog.Duration("tx.statement_timeout", cfg.StatementTimeout),
			slog.Duration("tx.lock_timeout", cfg.LockTimeout))
	} else {
		memoryRepo, keys := ordersmemory.NewRepository(), ordersmemory.NewIdempotencyStore()
		memoryRepo.ShareIdempotencyStore(keys)
		repo, idempotency = memoryRepo, keys
	}

	if cfg.CatalogSeedFile != "" {
		if err := SeedCatalogFile(ctx, repo, cfg.CatalogSeedFile); err != nil {
			stack.Close()
			return nil, err
		}
		logger.Info("catalog seeded", slog.String("file", cfg.CatalogSeedFile))
	}

	core := ordersapp.NewService(repo,
		ordersapp.WithLogger(logger),
		ordersapp.WithIdempotencyStore(idempotency),
	)
	stack.Service = ordersobs.New(
		core,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)
	return stack, nil
}

// DialTemporal connects a Temporal client with the tracing interceptor and structured logger.
func DialTemporal(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}

func effectiveLogger(instruments *platformobservability.Instruments) *slog.Logger {
	if instruments != nil && instruments.Logger != nil {
		return instruments.Logger
	}
	return slog.Default()
}

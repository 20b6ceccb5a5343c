package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/platform-services/internal/config"
	"github.com/prperemyshlev/platform-services/internal/repository"
	"github.com/prperemyshlev/platform-services/internal/service"
	"github.com/prperemyshlev/platform-services/pkg/cloud"
	"github.com/prperemyshlev/platform-services/pkg/database"
	"github.com/prperemyshlev/platform-services/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// Infrastructure owns the process-wide resources of an HTTP service.
// Accessors return nil for resources the service did not ask for.
type Infrastructure interface {
	Repositories() *repository.Repositories
	Postgres() *database.Postgres
	Redis() *database.Redis
	Limiter() service.Limiter
	AWS() *cloud.Clients
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider
	Instruments() *observability.Instruments

	Shutdown(ctx context.Context) error
}

// Needs selects the resources NewInfrastructure sets up
type Needs struct {
	Storage   bool
	RateLimit bool
	AWS       bool
}

type infrastructure struct {
	repos          *repository.Repositories
	postgres       *database.Postgres
	redis          *database.Redis
	aws            *cloud.Clients
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
	instruments    *observability.Instruments
}

var _ Infrastructure = &infrastructure{}

// NewInfrastructure connects everything serviceName needs. On failure the
// resources opened so far are closed.
func NewInfrastructure(ctx context.Context, cfg config.Config, serviceName string, needs Needs) (_ *infrastructure, err error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger.With(zap.String("service", serviceName))

	defer func() {
		if err != nil {
			_ = i.closeStores()
		}
	}()

	if needs.Storage {
		if err := i.openStorage(cfg); err != nil {
			return nil, err
		}
	}

	if needs.RateLimit && cfg.Redis.Enabled {
		redis, err := database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		i.redis = redis
	}

	if needs.AWS {
		awsCfg, err := cloud.LoadConfig(ctx, cloud.Options{
			Region:          cfg.AWS.Region,
			Endpoint:        cfg.AWS.Endpoint,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		i.aws = cloud.NewClients(awsCfg)
	}

	meterProvider, metricsHandler, err := observability.InitTelemetry(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	instruments, err := observability.NewInstruments(meterProvider)
	if err != nil {
		return nil, err
	}
	i.instruments = instruments

	return i, nil
}

// NewInMemoryInfrastructure builds an Infrastructure over in-memory
// storage without Redis or AWS clients
func NewInMemoryInfrastructure(logger *zap.Logger, serviceName string) (*infrastructure, error) {
	meterProvider, metricsHandler, err := observability.InitTelemetry(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	instruments, err := observability.NewInstruments(meterProvider)
	if err != nil {
		return nil, err
	}

	return &infrastructure{
		repos:          repository.NewMemoryRepositories(),
		logger:         logger,
		metricsHandler: metricsHandler,
		meterProvider:  meterProvider,
		instruments:    instruments,
	}, nil
}

func (i *infrastructure) openStorage(cfg config.Config) error {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		i.logger.Warn("using in-memory storage, data is lost on restart")
		i.repos = repository.NewMemoryRepositories()
		return nil
	}

	if cfg.Storage.MigrateOnStart {
		if err := database.Migrate(cfg.Postgres.URL()); err != nil {
			return fmt.Errorf("failed to migrate PostgreSQL: %w", err)
		}
	}

	postgres, err := database.NewPostgres(cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.postgres = postgres
	i.repos = repository.NewRepositories(postgres)
	return nil
}

func (i *infrastructure) Repositories() *repository.Repositories {
	return i.repos
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

// Limiter is nil when Redis is disabled, which turns rate limiting off
func (i *infrastructure) Limiter() service.Limiter {
	if i.redis == nil {
		return nil
	}
	return service.NewRateLimiter(i.redis)
}

func (i *infrastructure) AWS() *cloud.Clients {
	return i.aws
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Instruments() *observability.Instruments {
	return i.instruments
}

func (i *infrastructure) closeStores() error {
	var errs []error
	if i.postgres != nil {
		errs = append(errs, i.postgres.Close())
	}
	if i.redis != nil {
		errs = append(errs, i.redis.Close())
	}
	return errors.Join(errs...)
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 2)

	go func() { errs <- i.closeStores() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs)
}

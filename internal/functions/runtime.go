// Package functions bootstraps the shared resources of the Lambda functions.
package functions

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/platform-services/internal/config"
	"github.com/prperemyshlev/platform-services/internal/ports"
	"github.com/prperemyshlev/platform-services/internal/repository"
	"github.com/prperemyshlev/platform-services/pkg/cloud"
	"github.com/prperemyshlev/platform-services/pkg/database"
	"github.com/prperemyshlev/platform-services/pkg/observability"
	"go.uber.org/zap"
)

// Runtime is built once per cold start and reused across invocations
type Runtime struct {
	Config *config.WorkerConfig
	Logger *zap.Logger
	AWS    *cloud.Clients
	// Repos is nil unless USER_STORE_URL is set
	Repos *repository.Repositories

	postgres *database.Postgres
}

// NewRuntime loads the worker configuration and opens the clients
func NewRuntime(ctx context.Context, name string) (*Runtime, error) {
	cfg, err := config.LoadWorker(ctx)
	if err != nil {
		return nil, err
	}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("function", name))

	awsCfg, err := cloud.LoadConfig(ctx, cloud.Options{
		Region:          cfg.AWS.Region,
		Endpoint:        cfg.AWS.Endpoint,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config: cfg,
		Logger: logger,
		AWS:    cloud.NewClients(awsCfg),
	}

	if cfg.UserStoreURL != "" {
		postgres, err := database.NewPostgres(cfg.UserStoreURL, database.WithMaxOpenConns(2))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to user store: %w", err)
		}
		rt.postgres = postgres
		rt.Repos = repository.NewRepositories(postgres)
	}

	return rt, nil
}

// Notifier returns the topic publisher, or nil when no topic is configured
func (r *Runtime) Notifier() ports.Publisher {
	if r.Config.AWS.SNSTopicARN == "" {
		return nil
	}
	return cloud.NewNotifier(r.AWS.SNS, r.Config.AWS.SNSTopicARN)
}

// Close releases the user store connection
func (r *Runtime) Close() error {
	_ = r.Logger.Sync()
	if r.postgres != nil {
		return r.postgres.Close()
	}
	return nil
}

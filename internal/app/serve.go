package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prperemyshlev/platform-services/internal/config"
	"go.uber.org/zap"
)

// Builder wires an App on top of its infrastructure
type Builder func(infra Infrastructure, cfg *config.Config) *App

// Serve loads configuration, builds the service and runs it until SIGINT or SIGTERM
func Serve(name string, needs Needs, build Builder) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	infra, err := NewInfrastructure(ctx, *cfg, name, needs)
	if err != nil {
		return fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	application := build(infra, cfg)

	if err := application.Run(ctx); err != nil {
		infra.Logger().Error("Application failed", zap.Error(err))
		return err
	}
	return nil
}

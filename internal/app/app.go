package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/platform-services/internal/config"
	"github.com/prperemyshlev/platform-services/internal/handler"
	"github.com/prperemyshlev/platform-services/internal/ports"
	"github.com/prperemyshlev/platform-services/internal/service"
	"github.com/prperemyshlev/platform-services/internal/utils"
	"github.com/prperemyshlev/platform-services/pkg/cloud"
	"github.com/prperemyshlev/platform-services/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Service names
const (
	AuthServiceName         = "auth-service"
	UserServiceName         = "user-service"
	NotificationServiceName = "notification-service"
)

type App struct {
	name   string
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

// NewAuthApp serves registration, login and the token lifecycle
func NewAuthApp(infra Infrastructure, cfg *config.Config) *App {
	authService := newAuthService(infra, cfg)
	authHandler := handler.NewAuthHandler(authService)
	limit := handler.RateLimitMiddleware(
		infra.Limiter(),
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.IPBasedKey,
		infra.Logger(),
	)

	return newApp(AuthServiceName, infra, cfg, storageChecks(infra), func(router *gin.Engine) {
		auth := router.Group("/auth")
		{
			auth.POST("/register", limit, authHandler.Register)
			auth.POST("/login", limit, authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/verify", authHandler.Verify)
		}
	})
}

// NewUserApp serves user management. Every route requires a verified access token.
func NewUserApp(infra Infrastructure, cfg *config.Config) *App {
	authService := newAuthService(infra, cfg)
	userHandler := handler.NewUserHandler(service.NewUserService(infra.Repositories(), infra.Logger()))

	return newApp(UserServiceName, infra, cfg, storageChecks(infra), func(router *gin.Engine) {
		users := router.Group("/users", handler.AuthMiddleware(authService))
		{
			users.GET("", userHandler.List)
			users.GET("/me", userHandler.Me)
			users.GET("/:id", userHandler.Get)
			users.PUT("/:id", userHandler.Update)
			users.PATCH("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}
	})
}

// NewNotificationApp serves the notification endpoints over SNS and SQS.
// Without a topic or queue the corresponding endpoints answer 500.
func NewNotificationApp(infra Infrastructure, cfg *config.Config) *App {
	clients := infra.AWS()
	notifier := cloud.NewNotifier(clients.SNS, cfg.AWS.SNSTopicARN)

	var publisher ports.Publisher
	if cfg.AWS.SNSTopicARN != "" {
		publisher = notifier
	}
	var queue ports.Queue
	if cfg.AWS.SQSQueueURL != "" {
		queue = cloud.NewQueue(clients.SQS, cfg.AWS.SQSQueueURL)
	}

	notificationHandler := handler.NewNotificationHandler(service.NewNotificationService(
		publisher,
		notifier,
		queue,
		infra.Logger(),
		infra.Instruments(),
	))

	checks := []Check{{Name: "sns", Ping: notifier.Ping}}

	return newApp(NotificationServiceName, infra, cfg, checks, func(router *gin.Engine) {
		notifications := router.Group("/notifications")
		{
			notifications.POST("/email", notificationHandler.SendEmail)
			notifications.POST("/sms", notificationHandler.SendSMS)
			notifications.POST("/push", notificationHandler.SendPush)
			notifications.POST("/batch", notificationHandler.SendBatch)
		}
	})
}

func newAuthService(infra Infrastructure, cfg *config.Config) service.AuthService {
	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry.Duration,
		cfg.JWT.RefreshTokenExpiry.Duration,
	)

	return service.NewAuthService(
		infra.Repositories(),
		jwtManager,
		cfg.Security.BCryptCost,
		infra.Logger(),
		service.WithAuthMetrics(infra.Instruments()),
	)
}

func storageChecks(infra Infrastructure) []Check {
	var checks []Check
	if pg := infra.Postgres(); pg != nil {
		checks = append(checks, Check{Name: "database", Ping: pg.Ping})
	}
	if redis := infra.Redis(); redis != nil {
		checks = append(checks, Check{Name: "redis", Ping: redis.Ping})
	}
	return checks
}

func newApp(name string, infra Infrastructure, cfg *config.Config, checks []Check, routes func(*gin.Engine)) *App {
	handler.UseJSONFieldNames()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handler.RequestIDMiddleware())
	router.Use(otelgin.Middleware(name))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	healthChecker := NewHealthChecker(name, checks...)
	router.GET("/metrics", observability.PrometheusHandler(infra.MetricsHandler()))
	router.GET("/health", healthChecker.Liveness)
	router.GET("/ready", healthChecker.Readiness)

	routes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		name:   name,
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Server shutdown failed", zap.Error(err))
		return errors.Join(err, a.infra.Shutdown(ctx))
	}

	if err := a.infra.Shutdown(ctx); err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}

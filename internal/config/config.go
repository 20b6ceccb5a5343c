package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig   `env:",prefix=SERVER_"`
	Storage  StorageConfig  `env:",prefix=STORAGE_"`
	Postgres PostgresConfig `env:",prefix=POSTGRES_"`
	Redis    RedisConfig    `env:",prefix=REDIS_"`
	JWT      JWTConfig      `env:",prefix=JWT_"`
	Security SecurityConfig `env:",prefix="`
	CORS     CORSConfig     `env:",prefix=CORS_"`
	AWS      AWSConfig      `env:",prefix=AWS_"`
	Env      string         `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type StorageConfig struct {
	Driver         string `env:"DRIVER,default=postgres"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START,default=true"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=platform"`
	Password string `env:"PASSWORD,default=platform_password"`
	DBName   string `env:"DB,default=platform_db"`
	SSLMode  string `env:"SSLMODE,default=disable"`
}

type RedisConfig struct {
	Enabled  bool   `env:"ENABLED,default=true"`
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret             string   `env:"SECRET,required"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=1h"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization,X-Request-ID"`
}

// AWSConfig configures every AWS client. A non-empty Endpoint points all
// clients at a single emulator such as LocalStack.
type AWSConfig struct {
	Region          string `env:"REGION,default=us-east-1"`
	Endpoint        string `env:"ENDPOINT_URL"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	SNSTopicARN     string `env:"SNS_TOPIC_ARN"`
	SQSQueueURL     string `env:"SQS_QUEUE_URL"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the connection string in URL form, as expected by migrate
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom loads configuration using the given lookuper
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var config Config

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate JWT secret length
	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	switch config.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", config.Storage.Driver)
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}

// WorkerConfig is the configuration of the lambda functions
type WorkerConfig struct {
	AWS    AWSConfig    `env:",prefix=AWS_"`
	Jobs   JobsConfig   `env:",prefix=JOBS_"`
	Events EventsConfig `env:",prefix=EVENTS_"`
	Images ImagesConfig `env:",prefix=IMAGES_"`
	// UserStoreURL optionally points the functions at the identity database:
	// event handlers resolve users through it and cleanup purges expired
	// refresh tokens from it.
	UserStoreURL string `env:"USER_STORE_URL"`
	Env          string `env:"ENV,default=development"`
}

type JobsConfig struct {
	MetricsNamespace   string   `env:"METRICS_NAMESPACE,default=oracle-devops/ScheduledJobs"`
	SessionsTable      string   `env:"SESSIONS_TABLE,default=oracle-devops-dev-sessions"`
	CleanupLimit       int32    `env:"CLEANUP_LIMIT,default=100"`
	ECSCluster         string   `env:"ECS_CLUSTER,default=oracle-devops-dev-cluster"`
	HealthCheckTimeout Duration `env:"HEALTH_CHECK_TIMEOUT,default=5s"`
	HealthCheckRetries uint64   `env:"HEALTH_CHECK_RETRIES,default=1"`
	// HealthServices lists name=url pairs
	HealthServices []string `env:"HEALTH_SERVICES,default=auth-service=http://auth-service:8081,user-service=http://user-service:8082,notification-service=http://notification-service:8084"`
}

type EventsConfig struct {
	Concurrency int `env:"CONCURRENCY,default=1"`
}

type ImagesConfig struct {
	ThumbnailPrefix string `env:"THUMBNAIL_PREFIX,default=thumbnails/"`
	ProcessedPrefix string `env:"PROCESSED_PREFIX,default=processed/"`
}

// HealthTarget is a service probed by the health_check job
type HealthTarget struct {
	Name string
	URL  string
}

// HealthTargets parses HealthServices
func (j JobsConfig) HealthTargets() ([]HealthTarget, error) {
	targets := make([]HealthTarget, 0, len(j.HealthServices))
	for _, entry := range j.HealthServices {
		name, url, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("invalid health service entry %q, expected name=url", entry)
		}
		targets = append(targets, HealthTarget{Name: name, URL: strings.TrimSuffix(url, "/")})
	}
	return targets, nil
}

// LoadWorker loads the lambda configuration from environment variables
func LoadWorker(ctx context.Context) (*WorkerConfig, error) {
	return LoadWorkerFrom(ctx, envconfig.OsLookuper())
}

// LoadWorkerFrom loads the lambda configuration using the given lookuper
func LoadWorkerFrom(ctx context.Context, lookuper envconfig.Lookuper) (*WorkerConfig, error) {
	var config WorkerConfig

	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &config,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to load worker configuration: %w", err)
	}

	if config.Events.Concurrency < 1 {
		config.Events.Concurrency = 1
	}

	if _, err := config.Jobs.HealthTargets(); err != nil {
		return nil, err
	}

	return &config, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

// Postgres wraps the connection pool of the identity database
type Postgres struct {
	DB *sql.DB
}

type poolSettings struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

// PoolOption tunes the connection pool
type PoolOption func(*poolSettings)

// WithMaxOpenConns caps open connections. Idle connections are capped at the same value when lower.
func WithMaxOpenConns(n int) PoolOption {
	return func(s *poolSettings) {
		s.maxOpen = n
		if s.maxIdle > n {
			s.maxIdle = n
		}
	}
}

// WithConnMaxLifetime recycles connections older than d
func WithConnMaxLifetime(d time.Duration) PoolOption {
	return func(s *poolSettings) { s.maxLifetime = d }
}

// NewPostgres opens a pool on dsn, which may be a key=value string or a
// postgres:// URL, and verifies it with a ping
func NewPostgres(dsn string, opts ...PoolOption) (*Postgres, error) {
	settings := poolSettings{maxOpen: 25, maxIdle: 5, maxLifetime: 30 * time.Minute}
	for _, opt := range opts {
		opt(&settings)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(settings.maxOpen)
	db.SetMaxIdleConns(settings.maxIdle)
	db.SetConnMaxLifetime(settings.maxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{DB: db}, nil
}

func (p *Postgres) Close() error {
	return p.DB.Close()
}

// Ping is the readiness probe of the database
func (p *Postgres) Ping(ctx context.Context) error {
	return p.DB.PingContext(ctx)
}

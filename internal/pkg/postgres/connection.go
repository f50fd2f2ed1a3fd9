package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

var ErrNotConnected = errors.New("postgres pool not initialized")

// Connection owns the journal pool. The merger keeps working when the
// database is down; only decision writes fail.
type Connection struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	config *Config
}

func New(logger *logger.Logger, config *Config) (*Connection, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	return &Connection{
		config: config,
		logger: logger.Component("postgres/connection"),
	}, nil
}

func (c *Connection) Connect(ctx context.Context) error {
	cfg, err := c.poolConfig()
	if err != nil {
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create postgres pool: %w", err)
	}

	if err = c.ping(ctx, pool); err != nil {
		pool.Close()
		return fmt.Errorf("ping postgres: %w", err)
	}

	c.pool = pool

	c.logger.Info("journal database connected",
		"host", c.config.Host,
		"database", c.config.Database,
		"schema", c.config.Schema,
		"max_conns", c.config.MaxConns)

	return nil
}

func (c *Connection) poolConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.config.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.MaxConns = c.config.MaxConns
	cfg.MinConns = c.config.MinConns
	cfg.MaxConnLifetime = c.config.MaxConnLifetime
	cfg.MaxConnIdleTime = c.config.MaxConnIdleTime
	cfg.HealthCheckPeriod = c.config.HealthCheckPeriod
	return cfg, nil
}

// ping is bounded by AcquireTimeout so a saturated pool reports
// unhealthy instead of hanging the health endpoint.
func (c *Connection) ping(ctx context.Context, pool *pgxpool.Pool) error {
	if c.config.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.AcquireTimeout)
		defer cancel()
	}
	return pool.Ping(ctx)
}

func (c *Connection) Pool() *pgxpool.Pool {
	if c.pool == nil {
		panic("postgres connection not established, call Connect() first")
	}
	return c.pool
}

func (c *Connection) Close() {
	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
}

func (c *Connection) Health(ctx context.Context) error {
	if c.pool == nil {
		return ErrNotConnected
	}
	if err := c.ping(ctx, c.pool); err != nil {
		return err
	}

	stats := c.pool.Stat()
	c.logger.Debug("pool stats",
		"total", stats.TotalConns(),
		"idle", stats.IdleConns(),
		"acquired", stats.AcquiredConns())
	return nil
}

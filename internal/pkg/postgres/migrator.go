package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	. "github.com/go-ozzo/ozzo-validation"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"

	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

type MigrationConfig struct {
	Source    fs.FS         `json:"-"`
	Timeout   time.Duration `json:"timeout"`
	TableName string        `json:"table_name"`
	Enabled   bool          `json:"enabled"`
}

func (c *MigrationConfig) Validate() error {
	return ValidateStruct(c,
		Field(&c.Source, By(func(value interface{}) error {
			if c.Enabled && c.Source == nil {
				return errors.New("migration source is required")
			}
			return nil
		})),
		Field(&c.Timeout, Required, Min(time.Second)),
		Field(&c.TableName, Required, Length(1, 63)),
	)
}

// Migrator applies the embedded tern migrations for the decision journal.
type Migrator struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
	config *MigrationConfig
}

func NewMigrator(pool *pgxpool.Pool, config *MigrationConfig, logger *logger.Logger) *Migrator {
	return &Migrator{
		pool:   pool,
		logger: logger.Component("postgres/migrator"),
		config: config,
	}
}

func (m *Migrator) RunMigrations(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.Info("migrations disabled, skipping")
		return nil
	}
	if err := m.config.Validate(); err != nil {
		return fmt.Errorf("invalid migration config: %w", err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	migrator, err := m.load(ctx, conn)
	if err != nil {
		return err
	}

	current, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	latest := latestSequence(migrator.Migrations)
	if current >= latest {
		m.logger.Info("journal schema up to date", "version", current)
		return nil
	}

	m.logger.Info("applying journal migrations",
		"current_version", current,
		"target_version", latest)

	if err = migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	m.logger.Info("journal migrations applied",
		"from_version", current,
		"to_version", latest,
		"duration", time.Since(start))

	return nil
}

// Health fails when the journal schema is behind the embedded migrations,
// which means decisions cannot be written.
func (m *Migrator) Health(ctx context.Context) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	migrator, err := m.load(ctx, conn)
	if err != nil {
		return err
	}

	current, err := migrator.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}
	if latest := latestSequence(migrator.Migrations); current < latest {
		return fmt.Errorf("journal schema at version %d, want %d", current, latest)
	}
	return nil
}

func (m *Migrator) load(ctx context.Context, conn *pgxpool.Conn) (*migrate.Migrator, error) {
	migrator, err := migrate.NewMigrator(ctx, conn.Conn(), m.config.TableName)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	if m.config.Source == nil {
		return migrator, nil
	}
	if err := migrator.LoadMigrations(m.config.Source); err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return migrator, nil
}

func latestSequence(migrations []*migrate.Migration) int32 {
	var latest int32
	for _, mg := range migrations {
		if mg.Sequence > latest {
			latest = mg.Sequence
		}
	}
	return latest
}

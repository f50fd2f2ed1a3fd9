package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"os"
	"time"
)

type Config struct {
	// application settings
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	ServiceName string `env:"SERVICE_NAME" env-default:"gerrit-automerge"`

	// logging configuration
	LogLevel     string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat    string `env:"LOG_FORMAT" env-default:"text"`
	LogAddSource bool   `env:"LOG_ADD_SOURCE" env-default:"false"`

	// gerrit rest api
	GerritURL            string        `env:"GERRIT_URL" env-required:"true"`
	GerritUsername       string        `env:"GERRIT_USERNAME"`
	GerritHTTPPassword   string        `env:"GERRIT_HTTP_PASSWORD"`
	GerritRequestTimeout time.Duration `env:"GERRIT_REQUEST_TIMEOUT" env-default:"30s"`

	// identity used to recognise our own annotations
	BotEmail string `env:"BOT_EMAIL" env-required:"true"`

	// message templates, empty means the built-in text
	TemplateAtomicReviewDetected  string `env:"TEMPLATE_ATOMIC_REVIEW_DETECTED"`
	TemplateAtomicReviewsSameRepo string `env:"TEMPLATE_ATOMIC_REVIEWS_SAME_REPO"`
	TemplateCantMerge             string `env:"TEMPLATE_CANT_MERGE"`

	// event dispatch
	EventQueueSize      int           `env:"EVENT_QUEUE_SIZE" env-default:"256"`
	EventEnqueueTimeout time.Duration `env:"EVENT_ENQUEUE_TIMEOUT" env-default:"10s"`

	// gerrit stream-events over ssh
	GerritSSHEnabled        bool          `env:"GERRIT_SSH_ENABLED" env-default:"false"`
	GerritSSHAddr           string        `env:"GERRIT_SSH_ADDR" env-default:"localhost:29418"`
	GerritSSHUser           string        `env:"GERRIT_SSH_USER"`
	GerritSSHKeyFile        string        `env:"GERRIT_SSH_KEY_FILE"`
	GerritSSHKnownHosts     string        `env:"GERRIT_SSH_KNOWN_HOSTS"`
	GerritSSHReconnectDelay time.Duration `env:"GERRIT_SSH_RECONNECT_DELAY" env-default:"15s"`

	// decision journal database
	DatabaseEnabled  bool   `env:"DATABASE_ENABLED" env-default:"true"`
	DatabaseHost     string `env:"DATABASE_HOST" env-default:"localhost"`
	DatabasePort     int    `env:"DATABASE_PORT" env-default:"5432"`
	DatabaseUser     string `env:"DATABASE_USER" env-default:"postgres"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`
	DatabaseName     string `env:"DATABASE_NAME" env-default:"postgres"`
	DatabaseSchema   string `env:"DATABASE_SCHEMA" env-default:"public"`
	DatabaseSSLMode  string `env:"DATABASE_SSL_MODE" env-default:"require"`

	// database connection pool settings
	DatabaseMaxConns          int32         `env:"DATABASE_MAX_CONNS" env-default:"10"`
	DatabaseMinConns          int32         `env:"DATABASE_MIN_CONNS" env-default:"1"`
	DatabaseMaxConnLifetime   time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
	DatabaseMaxConnIdleTime   time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	DatabaseHealthCheckPeriod time.Duration `env:"DATABASE_HEALTH_CHECK_PERIOD" env-default:"1m"`
	DatabaseConnectTimeout    time.Duration `env:"DATABASE_CONNECT_TIMEOUT" env-default:"30s"`
	DatabaseAcquireTimeout    time.Duration `env:"DATABASE_ACQUIRE_TIMEOUT" env-default:"10s"`

	// database migrations settings
	DatabaseMigrationEnabled bool          `env:"DATABASE_MIGRATION_ENABLED" env-default:"true"`
	DatabaseMigrationTimeout time.Duration `env:"DATABASE_MIGRATION_TIMEOUT" env-default:"5m"`
	DatabaseMigrationTable   string        `env:"DATABASE_MIGRATION_TABLE" env-default:"schema_version"`

	// http server configuration (webhooks + decision journal)
	ServerHost           string        `env:"SERVER_HOST" env-default:"0.0.0.0"`
	ServerPort           int           `env:"SERVER_PORT" env-default:"8081"`
	ServerReadTimeout    time.Duration `env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	ServerWriteTimeout   time.Duration `env:"SERVER_WRITE_TIMEOUT" env-default:"2m"`
	ServerIdleTimeout    time.Duration `env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ServerRequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" env-default:"90s"`
}

func New() (*Config, error) {
	var cfg Config

	// read from .env file if exists (optional)
	if err := cleanenv.ReadConfig(".env", &cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read dotenv file: %w", err)
	}

	// read from environment variables (required)
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment variables: %w", err)
	}

	return &cfg, nil
}

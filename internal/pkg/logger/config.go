package logger

import (
	"io"
	"log/slog"
	"strings"

	. "github.com/go-ozzo/ozzo-validation"
)

type Config struct {
	Level     string
	Format    string
	AddSource bool

	// Service and Environment are attached to every record when set.
	Service     string
	Environment string

	// Output defaults to stdout.
	Output io.Writer
}

func (c *Config) Validate() error {
	return ValidateStruct(c,
		Field(&c.Level, Required, By(func(value interface{}) error {
			level, _ := value.(string)
			return In("debug", "info", "warn", "error", "fatal").Validate(strings.ToLower(level))
		})),
		Field(&c.Format, Required, In("json", "text")),
	)
}

func (c *Config) GetSlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) baseAttrs() []any {
	var attrs []any
	if c.Service != "" {
		attrs = append(attrs, "service", c.Service)
	}
	if c.Environment != "" {
		attrs = append(attrs, "env", c.Environment)
	}
	return attrs
}

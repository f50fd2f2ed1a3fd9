package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

type Logger struct {
	*slog.Logger
}

func New(cfg *Config) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := slog.New(createHandler(cfg))
	if attrs := cfg.baseAttrs(); len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return &Logger{logger}, nil
}

// NewDiscard returns a logger that drops every record, for tests.
func NewDiscard() *Logger {
	return &Logger{slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func createHandler(cfg *Config) slog.Handler {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     cfg.GetSlogLevel(),
		AddSource: cfg.AddSource,
	}

	switch cfg.Format {
	case "text":
		return tint.NewHandler(out, &tint.Options{
			Level:      opts.Level,
			AddSource:  opts.AddSource,
			TimeFormat: "15:04:05",
		})
	case "json":
		fallthrough
	default:
		return slog.NewJSONHandler(out, opts)
	}
}

func (l *Logger) Component(name string) *Logger {
	return &Logger{l.Logger.With("component", name)}
}

// Change scopes the logger to one review change.
func (l *Logger) Change(project string, number int, topic string) *Logger {
	args := []any{"project", project, "change", number}
	if topic != "" {
		args = append(args, "topic", topic)
	}
	return &Logger{l.Logger.With(args...)}
}

// Package log configures the process-wide slog logger.
package log

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a flag value to a slog level, defaulting to info.
func ParseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs a text logger on stderr as the default logger.
func Setup(logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	})))
}

// SetupWithFile logs text to stderr and JSON lines to logFile. An empty
// logFile behaves like Setup. The returned function closes the file.
func SetupWithFile(logLevel, logFile string) (func() error, error) {
	if logFile == "" {
		Setup(logLevel)

		return func() error { return nil }, nil
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		Setup(logLevel)

		return func() error { return nil }, err
	}

	slog.SetDefault(NewFanout(os.Stderr, file, ParseLevel(logLevel)))

	return file.Close, nil
}

// NewFanout writes text records to console and JSON records to sink.
func NewFanout(console, sink io.Writer, level slog.Level) *slog.Logger {
	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: level})
	sinkHandler := slog.NewJSONHandler(sink, &slog.HandlerOptions{Level: level})

	return slog.New(slogmulti.Fanout(consoleHandler, sinkHandler))
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

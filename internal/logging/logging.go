package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger creates a structured logger with configurable level and format.
// level: "debug", "info", "warn", "error" (defaults to info if invalid)
// format: "json" for JSON output, anything else for human-readable text
func NewLogger(level, format string) *slog.Logger {
	return newLogger(os.Stdout, level, format)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// AsynqLogger adapts slog.Logger to the asynq.Logger interface.
type AsynqLogger struct {
	Logger *slog.Logger
}

func (a *AsynqLogger) Debug(args ...interface{}) {
	a.Logger.Debug(fmt.Sprint(args...))
}

func (a *AsynqLogger) Info(args ...interface{}) {
	a.Logger.Info(fmt.Sprint(args...))
}

func (a *AsynqLogger) Warn(args ...interface{}) {
	a.Logger.Warn(fmt.Sprint(args...))
}

func (a *AsynqLogger) Error(args ...interface{}) {
	a.Logger.Error(fmt.Sprint(args...))
}

func (a *AsynqLogger) Fatal(args ...interface{}) {
	a.Logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

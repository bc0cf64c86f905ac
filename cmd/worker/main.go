package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/samber/do/v2"
	"podscribe/internal/app"
	"podscribe/internal/config"
	"podscribe/internal/db"
	"podscribe/internal/logging"
	"podscribe/internal/worker"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	injector := app.New(cfg)
	store, err := do.Invoke[*db.Store](injector)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	redisOpt := do.MustInvoke[asynq.RedisConnOpt](injector)
	taskHandler, err := do.Invoke[*worker.TaskHandler](injector)
	if err != nil {
		slog.Error("failed to build task handler", "error", err)
		os.Exit(1)
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Logger:      &logging.AsynqLogger{Logger: logger},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				if errors.Is(err, asynq.SkipRetry) {
					slog.Warn("task archived", "type", task.Type(), "error", err)
					return
				}
				slog.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	taskHandler.Register(mux)

	slog.Info("worker starting", "commit", CommitSHA, "concurrency", cfg.WorkerConcurrency)
	if err := srv.Run(mux); err != nil {
		slog.Error("could not run worker", "error", err)
		os.Exit(1)
	}
}
